package scheduling

import (
	"time"

	"healthcare-admin-server/internal/models"
)

// legalTransitions is the single transition graph shared by every transition
// operation, including the generic admin status update.
var legalTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusPending: {
		models.StatusApproved,
		models.StatusRejected,
		models.StatusCancelled,
		models.StatusCompleted,
	},
	models.StatusApproved: {
		models.StatusCompleted,
		models.StatusCancelled,
	},
	models.StatusRejected: {
		models.StatusCancelled,
	},
}

// CanTransition reports whether an appointment in status from may move to to.
func CanTransition(from, to models.AppointmentStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionKind identifies who moved an appointment and where to.
type TransitionKind string

const (
	KindApprove     TransitionKind = "approve"
	KindReject      TransitionKind = "reject"
	KindComplete    TransitionKind = "complete"
	KindAdminCancel TransitionKind = "admin_cancel"
	KindUserCancel  TransitionKind = "user_cancel"
)

func kindFor(target models.AppointmentStatus, byAdmin bool) TransitionKind {
	switch target {
	case models.StatusApproved:
		return KindApprove
	case models.StatusRejected:
		return KindReject
	case models.StatusCompleted:
		return KindComplete
	}
	if byAdmin {
		return KindAdminCancel
	}
	return KindUserCancel
}

// DefaultNote is the adminNote recorded when the caller supplies none.
func DefaultNote(kind TransitionKind) string {
	switch kind {
	case KindApprove:
		return "Your appointment has been approved."
	case KindReject:
		return "Your appointment request has been rejected."
	case KindComplete:
		return "Appointment marked as completed."
	case KindAdminCancel:
		return "Appointment cancelled by the administration."
	case KindUserCancel:
		return "Appointment cancelled by the patient."
	}
	return "Appointment status updated."
}

// StatusChange is the write performed by a successful transition.
type StatusChange struct {
	Status    models.AppointmentStatus
	AdminID   string // empty for user-initiated transitions
	AdminNote string
	At        time.Time
}

// TimestampColumn is the column stamped when an appointment enters status.
func TimestampColumn(status models.AppointmentStatus) string {
	switch status {
	case models.StatusApproved:
		return "approved_at"
	case models.StatusRejected:
		return "rejected_at"
	case models.StatusCancelled:
		return "cancelled_at"
	case models.StatusCompleted:
		return "completed_at"
	}
	return ""
}

// Apply mirrors change onto apt. Only the timestamp matching the new status
// is written; the others keep their values.
func (change StatusChange) Apply(apt *models.Appointment) {
	apt.Status = change.Status
	apt.AdminNote = change.AdminNote
	apt.UpdatedAt = change.At
	if change.AdminID != "" {
		adminID := change.AdminID
		apt.AdminID = &adminID
	}
	at := change.At
	switch change.Status {
	case models.StatusApproved:
		apt.ApprovedAt = &at
	case models.StatusRejected:
		apt.RejectedAt = &at
	case models.StatusCancelled:
		apt.CancelledAt = &at
	case models.StatusCompleted:
		apt.CompletedAt = &at
	}
}
