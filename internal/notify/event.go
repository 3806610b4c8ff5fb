// Package notify delivers best-effort notifications about appointment
// activity. Producers publish events onto a bounded queue; a worker pool
// consumes them so that delivery never sits on a request path.
package notify

import (
	"context"
	"time"
)

// Kind identifies what happened.
type Kind string

const (
	KindBookingConfirmation Kind = "booking.confirmation"
	KindNewRequest          Kind = "booking.new_request"
	KindApproved            Kind = "appointment.approved"
	KindRejected            Kind = "appointment.rejected"
)

// Event is a snapshot of an appointment at the moment something happened.
// Recipients are resolved by the handler, not the producer.
type Event struct {
	Kind            Kind
	AppointmentID   string
	UserID          string
	DoctorID        string
	Date            time.Time
	Status          string
	Reason          string
	AppointmentType string
	AdminNote       string
	OccurredAt      time.Time
}

// Handler consumes events.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}
