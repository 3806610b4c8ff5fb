package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"healthcare-admin-server/internal/metrics"
	"healthcare-admin-server/internal/models"
	"healthcare-admin-server/internal/notify"
)

// Store persists appointments. Implementations return ErrNotFound for unknown
// ids and ErrInvalidTransition when Transition finds the appointment no longer
// in the expected source status.
type Store interface {
	Create(ctx context.Context, apt *models.Appointment) error
	Get(ctx context.Context, id string) (*models.Appointment, error)
	HasApproved(ctx context.Context, doctorID string, date time.Time, excludeID string) (bool, error)
	Transition(ctx context.Context, id string, from models.AppointmentStatus, change StatusChange) error
	List(ctx context.Context, query ListQuery) ([]models.Appointment, int64, error)
}

// Directory resolves doctors and users referenced by appointments.
// GetDoctor returns ErrNotFound for unknown doctors and returns inactive
// doctors as stored.
type Directory interface {
	GetDoctor(ctx context.Context, id string) (*models.Doctor, error)
	DoctorsByIDs(ctx context.Context, ids []string) (map[string]models.Doctor, error)
	UsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

// SlotLocker serializes approvals of the same slot.
type SlotLocker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// Publisher accepts notification events without blocking. A false return
// means the event was dropped.
type Publisher interface {
	Publish(event notify.Event) bool
}

// SlotKey identifies a (doctor, instant) slot.
func SlotKey(doctorID string, date time.Time) string {
	return doctorID + "|" + date.UTC().Format(time.RFC3339Nano)
}

// Service implements booking, the appointment status state machine and
// listing. Notification side effects are published after commit and never
// affect the result of an operation.
type Service struct {
	store     Store
	directory Directory
	locker    SlotLocker
	publisher Publisher
	metrics   *metrics.Metrics
	log       *logrus.Logger
	now       func() time.Time
}

// NewService creates a Service.
func NewService(store Store, directory Directory, locker SlotLocker, publisher Publisher, m *metrics.Metrics, log *logrus.Logger) *Service {
	return &Service{
		store:     store,
		directory: directory,
		locker:    locker,
		publisher: publisher,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// BookRequest is a user's booking request.
type BookRequest struct {
	DoctorID        string
	Date            time.Time
	Reason          string
	AppointmentType string
}

// Book creates a pending appointment for the caller.
func (s *Service) Book(ctx context.Context, caller Identity, req BookRequest) (view *AppointmentView, err error) {
	defer func() {
		s.metrics.BookingsTotal.WithLabelValues(Outcome(err)).Inc()
	}()

	if err := Authorize(OpBook, caller, ""); err != nil {
		return nil, err
	}

	doctorID := strings.TrimSpace(req.DoctorID)
	if doctorID == "" || req.Date.IsZero() {
		return nil, fmt.Errorf("%w: doctor id and date are required", ErrValidation)
	}
	// Slots compare by exact instant; second precision keeps that stable
	// across the database round trip.
	date := req.Date.UTC().Truncate(time.Second)
	if !date.After(s.now()) {
		return nil, fmt.Errorf("%w: appointment date must be in the future", ErrValidation)
	}

	doctor, err := s.directory.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: doctor not found", ErrNotFound)
		}
		return nil, fmt.Errorf("look up doctor: %w", err)
	}
	// Deactivated doctors keep their history but take no new bookings.
	if !doctor.Active {
		return nil, fmt.Errorf("%w: doctor not found", ErrNotFound)
	}

	taken, err := s.store.HasApproved(ctx, doctorID, date, "")
	if err != nil {
		return nil, fmt.Errorf("check slot: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: doctor already has an approved appointment at this time", ErrConflict)
	}

	apt := &models.Appointment{
		DoctorID:        doctorID,
		UserID:          caller.SubjectID,
		Date:            date,
		Reason:          defaultString(req.Reason, models.DefaultReason),
		AppointmentType: defaultString(req.AppointmentType, models.DefaultAppointmentType),
		Status:          models.StatusPending,
	}
	if err := s.store.Create(ctx, apt); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"appointment_id": apt.ID,
		"doctor_id":      apt.DoctorID,
		"user_id":        apt.UserID,
		"date":           apt.Date,
	}).Info("Appointment booked")

	s.emit(notify.FromAppointment(notify.KindBookingConfirmation, apt, s.now()))
	s.emit(notify.FromAppointment(notify.KindNewRequest, apt, s.now()))

	return s.enrichOne(ctx, apt), nil
}

// Approve moves a pending appointment to approved, provided no other
// appointment holds the same slot.
func (s *Service) Approve(ctx context.Context, caller Identity, id, adminNote string) (*AppointmentView, error) {
	return s.transition(ctx, caller, OpApprove, id, models.StatusApproved, adminNote)
}

// Reject moves a pending appointment to rejected.
func (s *Service) Reject(ctx context.Context, caller Identity, id, adminNote string) (*AppointmentView, error) {
	return s.transition(ctx, caller, OpReject, id, models.StatusRejected, adminNote)
}

// UpdateStatus moves an appointment to any status reachable from its current
// one. It applies the same rules as the dedicated transitions.
func (s *Service) UpdateStatus(ctx context.Context, caller Identity, id, status, adminNote string) (*AppointmentView, error) {
	target, ok := models.ParseAppointmentStatus(status)
	if !ok {
		if err := authorizeRole(OpUpdateStatus, caller); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, status)
	}
	return s.transition(ctx, caller, OpUpdateStatus, id, target, adminNote)
}

// Cancel cancels one of the caller's own appointments.
func (s *Service) Cancel(ctx context.Context, caller Identity, id, reason string) (*AppointmentView, error) {
	return s.transition(ctx, caller, OpCancel, id, models.StatusCancelled, reason)
}

func (s *Service) transition(ctx context.Context, caller Identity, op Operation, id string, target models.AppointmentStatus, note string) (view *AppointmentView, err error) {
	defer func() {
		s.metrics.TransitionsTotal.WithLabelValues(string(target), Outcome(err)).Inc()
	}()

	if err := authorizeRole(op, caller); err != nil {
		return nil, err
	}

	apt, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: appointment not found", ErrNotFound)
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if err := Authorize(op, caller, apt.UserID); err != nil {
		return nil, err
	}

	if (op == OpApprove || op == OpReject) && apt.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: only pending appointments can be %s", ErrInvalidTransition, target)
	}
	if !CanTransition(apt.Status, target) {
		return nil, fmt.Errorf("%w: cannot move appointment from %s to %s", ErrInvalidTransition, apt.Status, target)
	}

	byAdmin := op != OpCancel
	if strings.TrimSpace(note) == "" {
		note = DefaultNote(kindFor(target, byAdmin))
	}
	change := StatusChange{
		Status:    target,
		AdminNote: note,
		At:        s.now().UTC(),
	}
	if byAdmin {
		change.AdminID = caller.SubjectID
	}

	if target == models.StatusApproved {
		err = s.commitApproval(ctx, apt, change)
	} else {
		err = s.store.Transition(ctx, apt.ID, apt.Status, change)
	}
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	from := apt.Status
	change.Apply(apt)

	s.log.WithFields(logrus.Fields{
		"appointment_id": apt.ID,
		"from":           from,
		"to":             target,
		"actor_id":       caller.SubjectID,
		"actor_role":     caller.Role,
	}).Info("Appointment status changed")

	if byAdmin {
		switch target {
		case models.StatusApproved:
			s.emit(notify.FromAppointment(notify.KindApproved, apt, change.At))
		case models.StatusRejected:
			s.emit(notify.FromAppointment(notify.KindRejected, apt, change.At))
		}
	}

	return s.enrichOne(ctx, apt), nil
}

// commitApproval re-checks the slot under the slot lock immediately before
// writing, so two admins approving competing requests cannot both succeed.
func (s *Service) commitApproval(ctx context.Context, apt *models.Appointment, change StatusChange) error {
	release, err := s.locker.Lock(ctx, SlotKey(apt.DoctorID, apt.Date))
	if err != nil {
		return fmt.Errorf("lock slot: %w", err)
	}
	defer release()

	taken, err := s.store.HasApproved(ctx, apt.DoctorID, apt.Date, apt.ID)
	if err != nil {
		return fmt.Errorf("check slot: %w", err)
	}
	if taken {
		return fmt.Errorf("%w: doctor already has an approved appointment at this time", ErrConflict)
	}
	return s.store.Transition(ctx, apt.ID, apt.Status, change)
}

// Get returns a single appointment with full enrichment.
func (s *Service) Get(ctx context.Context, caller Identity, id string) (*AppointmentView, error) {
	if err := Authorize(OpGet, caller, ""); err != nil {
		return nil, err
	}
	apt, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: appointment not found", ErrNotFound)
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return s.enrichOne(ctx, apt), nil
}

// List returns one page of appointments matching params for an admin.
func (s *Service) List(ctx context.Context, caller Identity, params ListParams) (*AppointmentPage, error) {
	if err := Authorize(OpList, caller, ""); err != nil {
		return nil, err
	}
	query, err := NormalizeListParams(params)
	if err != nil {
		return nil, err
	}

	items, total, err := s.store.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	return &AppointmentPage{
		Appointments: s.enrich(ctx, items),
		Pagination: Pagination{
			Total: total,
			Page:  query.Page,
			Pages: PageCount(total, query.Limit),
			Limit: query.Limit,
		},
	}, nil
}

// ListMine returns all of the caller's appointments, newest first.
func (s *Service) ListMine(ctx context.Context, caller Identity) ([]AppointmentView, error) {
	if err := Authorize(OpListMine, caller, ""); err != nil {
		return nil, err
	}
	items, _, err := s.store.List(ctx, ListQuery{
		UserID:   caller.SubjectID,
		SortBy:   "created_at",
		SortDesc: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return s.enrich(ctx, items), nil
}

func (s *Service) emit(event notify.Event) {
	if s.publisher.Publish(event) {
		return
	}
	s.log.WithFields(logrus.Fields{
		"kind":           event.Kind,
		"appointment_id": event.AppointmentID,
	}).Warn("Notification not queued")
}

func defaultString(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
