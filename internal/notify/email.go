package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"healthcare-admin-server/internal/models"
)

const dateLayout = "Monday, January 2, 2006 at 15:04 MST"

// Directory resolves the people an event refers to.
type Directory interface {
	UsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
	DoctorsByIDs(ctx context.Context, ids []string) (map[string]models.Doctor, error)
	Admins(ctx context.Context) ([]models.User, error)
}

// EmailHandler renders events as HTML email and hands them to a Mailer.
type EmailHandler struct {
	mailer    Mailer
	directory Directory
	appURL    string
	templates map[Kind]*template.Template
}

// NewEmailHandler creates an EmailHandler.
func NewEmailHandler(mailer Mailer, directory Directory, appURL string) *EmailHandler {
	return &EmailHandler{
		mailer:    mailer,
		directory: directory,
		appURL:    appURL,
		templates: parseTemplates(),
	}
}

type emailData struct {
	Heading         string
	Color           string
	RecipientName   string
	PatientName     string
	DoctorName      string
	Specialization  string
	Date            string
	AppointmentType string
	Reason          string
	Status          string
	AdminNote       string
	AppURL          string
}

// Handle sends the email for event. Booking confirmations and outcomes go to
// the patient; new requests go to every admin.
func (h *EmailHandler) Handle(ctx context.Context, event Event) error {
	tmpl, ok := h.templates[event.Kind]
	if !ok {
		return fmt.Errorf("no email template for %q", event.Kind)
	}
	style := kindStyles[event.Kind]

	users, err := h.directory.UsersByIDs(ctx, []string{event.UserID})
	if err != nil {
		return fmt.Errorf("resolve patient: %w", err)
	}
	patient, ok := users[event.UserID]
	if !ok {
		return fmt.Errorf("patient %s not found", event.UserID)
	}

	doctorName := "your doctor"
	specialization := ""
	doctors, err := h.directory.DoctorsByIDs(ctx, []string{event.DoctorID})
	if err != nil {
		return fmt.Errorf("resolve doctor: %w", err)
	}
	if doctor, ok := doctors[event.DoctorID]; ok {
		doctorName = doctor.Name
		specialization = doctor.Specialization
	}

	data := emailData{
		Heading:         style.Heading,
		Color:           style.Color,
		PatientName:     patient.FullName(),
		DoctorName:      doctorName,
		Specialization:  specialization,
		Date:            event.Date.UTC().Format(dateLayout),
		AppointmentType: event.AppointmentType,
		Reason:          event.Reason,
		Status:          event.Status,
		AdminNote:       event.AdminNote,
		AppURL:          h.appURL,
	}

	if event.Kind != KindNewRequest {
		data.RecipientName = patient.FullName()
		return h.send(ctx, tmpl, style.Subject, []string{patient.Email}, data)
	}

	admins, err := h.directory.Admins(ctx)
	if err != nil {
		return fmt.Errorf("resolve admins: %w", err)
	}
	// One message per admin so each greeting is personal and one bad
	// address does not stop the rest.
	var firstErr error
	for _, admin := range admins {
		data.RecipientName = admin.FullName()
		if err := h.send(ctx, tmpl, style.Subject, []string{admin.Email}, data); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("notify admin %s: %w", admin.ID, err)
		}
	}
	return firstErr
}

func (h *EmailHandler) send(ctx context.Context, tmpl *template.Template, subject string, to []string, data emailData) error {
	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, "layout", data); err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	return h.mailer.Send(ctx, Message{To: to, Subject: subject, HTMLBody: body.String()})
}

// FromAppointment builds an event snapshot of apt.
func FromAppointment(kind Kind, apt *models.Appointment, at time.Time) Event {
	return Event{
		Kind:            kind,
		AppointmentID:   apt.ID,
		UserID:          apt.UserID,
		DoctorID:        apt.DoctorID,
		Date:            apt.Date,
		Status:          string(apt.Status),
		Reason:          apt.Reason,
		AppointmentType: apt.AppointmentType,
		AdminNote:       apt.AdminNote,
		OccurredAt:      at,
	}
}
