package models

import (
	"strings"
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusApproved  AppointmentStatus = "approved"
	StatusRejected  AppointmentStatus = "rejected"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

const (
	DefaultReason          = "General consultation"
	DefaultAppointmentType = "consultation"
)

// ParseAppointmentStatus accepts any casing of the five status names.
func ParseAppointmentStatus(s string) (AppointmentStatus, bool) {
	switch st := AppointmentStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCompleted:
		return st, true
	}
	return "", false
}

// Appointment represents a requested patient/doctor visit. DoctorID and Date
// together form the slot; at most one approved appointment may hold a slot.
type Appointment struct {
	BaseModel
	DoctorID        string            `gorm:"size:36;not null;index:idx_appointment_slot,priority:1" json:"doctorId"`
	UserID          string            `gorm:"size:36;not null;index" json:"userId"`
	AdminID         *string           `gorm:"size:36" json:"adminId,omitempty"`
	Date            time.Time         `gorm:"not null;index:idx_appointment_slot,priority:2" json:"date"`
	Reason          string            `gorm:"size:500" json:"reason"`
	AppointmentType string            `gorm:"size:50" json:"appointmentType"`
	AdminNote       string            `gorm:"type:text" json:"adminNote,omitempty"`
	Status          AppointmentStatus `gorm:"size:20;default:'pending';index" json:"status"`
	ApprovedAt      *time.Time        `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time        `json:"rejectedAt,omitempty"`
	CancelledAt     *time.Time        `json:"cancelledAt,omitempty"`
	CompletedAt     *time.Time        `json:"completedAt,omitempty"`
}
