package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"healthcare-admin-server/internal/models"
	"healthcare-admin-server/internal/scheduling"
)

// AppointmentStore is the MySQL-backed appointment store.
type AppointmentStore struct {
	db *gorm.DB
}

// NewAppointmentStore creates an AppointmentStore.
func NewAppointmentStore(db *gorm.DB) *AppointmentStore {
	return &AppointmentStore{db: db}
}

// Create inserts apt. The id is assigned by BaseModel.BeforeCreate.
func (s *AppointmentStore) Create(ctx context.Context, apt *models.Appointment) error {
	return s.db.WithContext(ctx).Create(apt).Error
}

// Get loads an appointment by id.
func (s *AppointmentStore) Get(ctx context.Context, id string) (*models.Appointment, error) {
	var apt models.Appointment
	if err := s.db.WithContext(ctx).First(&apt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, scheduling.ErrNotFound
		}
		return nil, err
	}
	return &apt, nil
}

// HasApproved reports whether another approved appointment holds the slot.
func (s *AppointmentStore) HasApproved(ctx context.Context, doctorID string, date time.Time, excludeID string) (bool, error) {
	query := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("doctor_id = ? AND date = ? AND status = ?", doctorID, date, models.StatusApproved)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Transition applies change only if the appointment is still in status from.
// A single guarded UPDATE keeps the write atomic without a transaction.
func (s *AppointmentStore) Transition(ctx context.Context, id string, from models.AppointmentStatus, change scheduling.StatusChange) error {
	updates := map[string]interface{}{
		"status":     change.Status,
		"admin_note": change.AdminNote,
		"updated_at": change.At,
	}
	if column := scheduling.TimestampColumn(change.Status); column != "" {
		updates[column] = change.At
	}
	if change.AdminID != "" {
		updates["admin_id"] = change.AdminID
	}

	result := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: appointment %s is no longer %s", scheduling.ErrInvalidTransition, id, from)
	}
	return nil
}

// List returns the appointments matching q and the total before paging.
func (s *AppointmentStore) List(ctx context.Context, q scheduling.ListQuery) ([]models.Appointment, int64, error) {
	filtered := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&models.Appointment{})
		if q.Status != "" {
			query = query.Where("status = ?", q.Status)
		}
		if q.DoctorID != "" {
			query = query.Where("doctor_id = ?", q.DoctorID)
		}
		if q.UserID != "" {
			query = query.Where("user_id = ?", q.UserID)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	// sortBy comes from the whitelist in scheduling.NormalizeListParams.
	query := filtered().Order(sortBy + " " + direction).Order("id " + direction)
	if q.Limit > 0 {
		query = query.Offset(q.Offset()).Limit(q.Limit)
	}

	var items []models.Appointment
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
