package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"healthcare-admin-server/internal/models"
)

func TestCanTransition(t *testing.T) {
	all := []models.AppointmentStatus{
		models.StatusPending, models.StatusApproved, models.StatusRejected,
		models.StatusCancelled, models.StatusCompleted,
	}
	legal := map[[2]models.AppointmentStatus]bool{
		{models.StatusPending, models.StatusApproved}:   true,
		{models.StatusPending, models.StatusRejected}:   true,
		{models.StatusPending, models.StatusCancelled}:  true,
		{models.StatusPending, models.StatusCompleted}:  true,
		{models.StatusApproved, models.StatusCompleted}: true,
		{models.StatusApproved, models.StatusCancelled}: true,
		{models.StatusRejected, models.StatusCancelled}: true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]models.AppointmentStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestDefaultNote(t *testing.T) {
	kinds := []TransitionKind{KindApprove, KindReject, KindComplete, KindAdminCancel, KindUserCancel}
	seen := map[string]bool{}
	for _, k := range kinds {
		note := DefaultNote(k)
		assert.NotEmpty(t, note)
		assert.False(t, seen[note], "notes should differ per kind")
		seen[note] = true
	}
	assert.Equal(t, "Appointment status updated.", DefaultNote("unknown"))
}

func TestKindFor(t *testing.T) {
	assert.Equal(t, KindApprove, kindFor(models.StatusApproved, true))
	assert.Equal(t, KindReject, kindFor(models.StatusRejected, true))
	assert.Equal(t, KindComplete, kindFor(models.StatusCompleted, true))
	assert.Equal(t, KindAdminCancel, kindFor(models.StatusCancelled, true))
	assert.Equal(t, KindUserCancel, kindFor(models.StatusCancelled, false))
}

func TestStatusChange_ApplySetsOnlyMatchingTimestamp(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	for _, status := range []models.AppointmentStatus{
		models.StatusApproved, models.StatusRejected, models.StatusCancelled, models.StatusCompleted,
	} {
		t.Run(string(status), func(t *testing.T) {
			apt := &models.Appointment{Status: models.StatusPending}
			StatusChange{Status: status, AdminNote: "n", At: at}.Apply(apt)

			stamps := map[string]*time.Time{
				"approved_at":  apt.ApprovedAt,
				"rejected_at":  apt.RejectedAt,
				"cancelled_at": apt.CancelledAt,
				"completed_at": apt.CompletedAt,
			}
			for column, value := range stamps {
				if column == TimestampColumn(status) {
					if assert.NotNil(t, value) {
						assert.Equal(t, at, *value)
					}
				} else {
					assert.Nil(t, value, column)
				}
			}
			assert.Nil(t, apt.AdminID)
			assert.Equal(t, status, apt.Status)
		})
	}
}

func TestStatusChange_ApplyAdmin(t *testing.T) {
	apt := &models.Appointment{Status: models.StatusPending}
	StatusChange{Status: models.StatusApproved, AdminID: "a1", At: time.Now()}.Apply(apt)

	if assert.NotNil(t, apt.AdminID) {
		assert.Equal(t, "a1", *apt.AdminID)
	}
}

func TestSlotKey(t *testing.T) {
	utc := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	plus2 := utc.In(time.FixedZone("UTC+2", 2*3600))

	assert.Equal(t, SlotKey("d1", utc), SlotKey("d1", plus2))
	assert.NotEqual(t, SlotKey("d1", utc), SlotKey("d2", utc))
}
