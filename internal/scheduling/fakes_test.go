package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"healthcare-admin-server/internal/models"
	"healthcare-admin-server/internal/notify"
)

// memoryStore is an in-memory Store with the same conditional-update
// semantics as the gorm store.
type memoryStore struct {
	mu    sync.Mutex
	items map[string]models.Appointment
	seq   int
	err   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{items: map[string]models.Appointment{}}
}

func (m *memoryStore) Create(_ context.Context, apt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if apt.ID == "" {
		apt.ID = uuid.New().String()
	}
	m.seq++
	// strictly increasing creation times keep ordering deterministic
	apt.CreatedAt = time.Date(2025, 1, 1, 0, 0, m.seq, 0, time.UTC)
	apt.UpdatedAt = apt.CreatedAt
	m.items[apt.ID] = *apt
	return nil
}

func (m *memoryStore) put(apt models.Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[apt.ID] = apt
}

func (m *memoryStore) Get(_ context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	apt, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &apt, nil
}

func (m *memoryStore) HasApproved(_ context.Context, doctorID string, date time.Time, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, apt := range m.items {
		if apt.ID != excludeID && apt.DoctorID == doctorID && apt.Date.Equal(date) && apt.Status == models.StatusApproved {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) Transition(_ context.Context, id string, from models.AppointmentStatus, change StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	apt, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	if apt.Status != from {
		return fmt.Errorf("%w: appointment changed concurrently", ErrInvalidTransition)
	}
	change.Apply(&apt)
	m.items[id] = apt
	return nil
}

func (m *memoryStore) List(_ context.Context, q ListQuery) ([]models.Appointment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []models.Appointment
	for _, apt := range m.items {
		if q.Status != "" && apt.Status != q.Status {
			continue
		}
		if q.DoctorID != "" && apt.DoctorID != q.DoctorID {
			continue
		}
		if q.UserID != "" && apt.UserID != q.UserID {
			continue
		}
		out = append(out, apt)
	}
	sort.Slice(out, func(i, j int) bool {
		less := out[i].CreatedAt.Before(out[j].CreatedAt)
		if q.SortBy == "date" {
			less = out[i].Date.Before(out[j].Date)
		}
		if q.SortDesc {
			return !less
		}
		return less
	})
	total := int64(len(out))
	if q.Limit > 0 {
		start := q.Offset()
		if start > len(out) {
			start = len(out)
		}
		end := start + q.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (m *memoryStore) status(id string) models.AppointmentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].Status
}

type memoryDirectory struct {
	doctors map[string]models.Doctor
	users   map[string]models.User
	err     error
}

func (d *memoryDirectory) GetDoctor(_ context.Context, id string) (*models.Doctor, error) {
	if d.err != nil {
		return nil, d.err
	}
	doc, ok := d.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (d *memoryDirectory) DoctorsByIDs(_ context.Context, ids []string) (map[string]models.Doctor, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := map[string]models.Doctor{}
	for _, id := range ids {
		if doc, ok := d.doctors[id]; ok {
			out[id] = doc
		}
	}
	return out, nil
}

func (d *memoryDirectory) UsersByIDs(_ context.Context, ids []string) (map[string]models.User, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := map[string]models.User{}
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type mutexLocker struct {
	mu    sync.Mutex
	locks int
	err   error
}

func (l *mutexLocker) Lock(context.Context, string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	l.locks++
	return l.mu.Unlock, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []notify.Event
	reject bool
}

func (p *capturePublisher) Publish(e notify.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reject {
		return false
	}
	p.events = append(p.events, e)
	return true
}

func (p *capturePublisher) kinds() []notify.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notify.Kind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

var errStoreDown = errors.New("connection refused")
