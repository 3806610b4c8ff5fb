package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"healthcare-admin-server/internal/logger"
	"healthcare-admin-server/internal/metrics"
	"healthcare-admin-server/internal/models"
	"healthcare-admin-server/internal/notify"
	"healthcare-admin-server/internal/scheduling"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	return db, mock
}

var appointmentColumns = []string{"id", "doctor_id", "user_id", "date", "status", "reason", "appointment_type", "created_at", "updated_at"}

func TestAppointmentStore_Create(t *testing.T) {
	db, mock := setupTestDB(t)
	store := NewAppointmentStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `appointments`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	apt := &models.Appointment{DoctorID: "d1", UserID: "u1", Date: time.Now().Add(time.Hour), Status: models.StatusPending}
	require.NoError(t, store.Create(context.Background(), apt))

	assert.NotEmpty(t, apt.ID, "BeforeCreate assigns a uuid")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentStore_Get(t *testing.T) {
	db, mock := setupTestDB(t)
	store := NewAppointmentStore(db)
	date := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT \\* FROM `appointments` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(appointmentColumns).
			AddRow("apt-1", "d1", "u1", date, "approved", "Checkup", "consultation", date, date))

	apt, err := store.Get(context.Background(), "apt-1")

	require.NoError(t, err)
	assert.Equal(t, "apt-1", apt.ID)
	assert.Equal(t, models.StatusApproved, apt.Status)
	assert.True(t, apt.Date.Equal(date))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentStore_GetNotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	store := NewAppointmentStore(db)

	mock.ExpectQuery("SELECT \\* FROM `appointments`").WillReturnRows(sqlmock.NewRows(appointmentColumns))

	_, err := store.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, scheduling.ErrNotFound)
}

func TestAppointmentStore_HasApproved(t *testing.T) {
	db, mock := setupTestDB(t)
	store := NewAppointmentStore(db)
	date := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `appointments` WHERE \\(doctor_id = \\? AND date = \\? AND status = \\?\\) AND id <> \\?").
		WithArgs("d1", date, models.StatusApproved, "apt-2").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	taken, err := store.HasApproved(context.Background(), "d1", date, "apt-2")

	require.NoError(t, err)
	assert.True(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentStore_TransitionGuardsSourceStatus(t *testing.T) {
	db, mock := setupTestDB(t)
	store := NewAppointmentStore(db)
	change := scheduling.StatusChange{Status: models.StatusApproved, AdminID: "a1", AdminNote: "ok", At: time.Now()}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `appointments` SET .*`approved_at`=\\?.*WHERE id = \\? AND status = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Transition(context.Background(), "apt-1", models.StatusPending, change))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentStore_TransitionStale(t *testing.T) {
	db, mock := setupTestDB(t)
	store := NewAppointmentStore(db)
	change := scheduling.StatusChange{Status: models.StatusRejected, AdminNote: "no", At: time.Now()}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `appointments` SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.Transition(context.Background(), "apt-1", models.StatusPending, change)

	assert.ErrorIs(t, err, scheduling.ErrInvalidTransition)
}

func TestAppointmentStore_List(t *testing.T) {
	db, mock := setupTestDB(t)
	store := NewAppointmentStore(db)
	now := time.Now()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `appointments` WHERE status = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(30))
	mock.ExpectQuery("SELECT \\* FROM `appointments` WHERE status = \\? ORDER BY date ASC,id ASC LIMIT").
		WillReturnRows(sqlmock.NewRows(appointmentColumns).
			AddRow("apt-13", "d1", "u1", now, "pending", "", "", now, now))

	items, total, err := store.List(context.Background(), scheduling.ListQuery{
		Status: models.StatusPending,
		Page:   2,
		Limit:  12,
		SortBy: "date",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(30), total)
	require.Len(t, items, 1)
	assert.Equal(t, "apt-13", items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectory_GetDoctorNotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	dir := NewDirectory(db)

	mock.ExpectQuery("SELECT \\* FROM `doctors` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := dir.GetDoctor(context.Background(), "nobody")

	assert.ErrorIs(t, err, scheduling.ErrNotFound)
}

func TestDirectory_GetDoctorKeepsInactive(t *testing.T) {
	db, mock := setupTestDB(t)
	dir := NewDirectory(db)

	mock.ExpectQuery("SELECT \\* FROM `doctors` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "active"}).AddRow("d1", "Dr. Gone", false))

	doctor, err := dir.GetDoctor(context.Background(), "d1")

	require.NoError(t, err)
	assert.False(t, doctor.Active)
}

type discardPublisher struct{}

func (discardPublisher) Publish(notify.Event) bool { return true }

func TestBookInactiveDoctorWritesNothing(t *testing.T) {
	db, mock := setupTestDB(t)
	svc := scheduling.NewService(NewAppointmentStore(db), NewDirectory(db), NewLocalSlotLocker(),
		discardPublisher{}, metrics.New(), logger.Discard())

	mock.ExpectQuery("SELECT \\* FROM `doctors` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "active"}).AddRow("d1", "Dr. Gone", false))

	caller := scheduling.Identity{SubjectID: "u1", Role: models.RoleUser}
	_, err := svc.Book(context.Background(), caller, scheduling.BookRequest{
		DoctorID: "d1",
		Date:     time.Now().Add(24 * time.Hour),
	})

	assert.ErrorIs(t, err, scheduling.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectory_UsersByIDs(t *testing.T) {
	db, mock := setupTestDB(t)
	dir := NewDirectory(db)

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE id IN \\(\\?,\\?\\)").
		WithArgs("u1", "a1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "role"}).
			AddRow("u1", "u1@example.com", "Una", "One", "user").
			AddRow("a1", "a1@example.com", "Ada", "Admin", "admin"))

	users, err := dir.UsersByIDs(context.Background(), []string{"u1", "a1"})

	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, models.RoleAdmin, users["a1"].Role)
}

func TestDirectory_EmptyLookupsSkipQuery(t *testing.T) {
	db, mock := setupTestDB(t)
	dir := NewDirectory(db)

	users, err := dir.UsersByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)

	doctors, err := dir.DoctorsByIDs(context.Background(), []string{})
	require.NoError(t, err)
	assert.Empty(t, doctors)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectory_Admins(t *testing.T) {
	db, mock := setupTestDB(t)
	dir := NewDirectory(db)

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE role = \\?").
		WithArgs(models.RoleAdmin).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role"}).AddRow("a1", "a1@example.com", "admin"))

	admins, err := dir.Admins(context.Background())

	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "a1@example.com", admins[0].Email)
}
