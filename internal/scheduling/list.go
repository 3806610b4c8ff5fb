package scheduling

import (
	"fmt"
	"strings"

	"healthcare-admin-server/internal/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

// sortColumns maps accepted sortBy values to columns.
var sortColumns = map[string]string{
	"createdAt":  "created_at",
	"created_at": "created_at",
	"date":       "date",
	"status":     "status",
	"updatedAt":  "updated_at",
	"updated_at": "updated_at",
}

// ListParams are the raw listing parameters of the admin view.
type ListParams struct {
	Status    string
	DoctorID  string
	UserID    string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// ListQuery is a validated listing request. A zero Limit means unpaginated.
type ListQuery struct {
	Status   models.AppointmentStatus
	DoctorID string
	UserID   string
	Page     int
	Limit    int
	SortBy   string
	SortDesc bool
}

// Offset is the number of records skipped before the page.
func (q ListQuery) Offset() int {
	if q.Limit <= 0 || q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// NormalizeListParams applies defaults and validates p. "all" or an empty
// status means no status filter; unknown sort fields fall back to creation time.
func NormalizeListParams(p ListParams) (ListQuery, error) {
	q := ListQuery{
		DoctorID: strings.TrimSpace(p.DoctorID),
		UserID:   strings.TrimSpace(p.UserID),
		Page:     p.Page,
		Limit:    p.Limit,
		SortBy:   "created_at",
		SortDesc: true,
	}

	if status := strings.TrimSpace(p.Status); status != "" && !strings.EqualFold(status, "all") {
		parsed, ok := models.ParseAppointmentStatus(status)
		if !ok {
			return ListQuery{}, fmt.Errorf("%w: invalid status %q", ErrValidation, p.Status)
		}
		q.Status = parsed
	}

	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}

	if column, ok := sortColumns[strings.TrimSpace(p.SortBy)]; ok {
		q.SortBy = column
	}
	if strings.EqualFold(strings.TrimSpace(p.SortOrder), "asc") {
		q.SortDesc = false
	}
	return q, nil
}

// PageCount is ceil(total / limit).
func PageCount(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// Pagination describes the page returned by List.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Limit int   `json:"limit"`
}

// AppointmentPage is one page of the admin listing.
type AppointmentPage struct {
	Appointments []AppointmentView `json:"appointments"`
	Pagination   Pagination        `json:"pagination"`
}
