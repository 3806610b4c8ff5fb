package scheduling

import (
	"context"

	"github.com/sirupsen/logrus"

	"healthcare-admin-server/internal/models"
)

// DoctorSummary is the doctor as shown alongside an appointment.
type DoctorSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Email          string `json:"email,omitempty"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
}

// PersonSummary is a user or admin as shown alongside an appointment.
type PersonSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AppointmentView is an appointment with its references resolved for
// display. The resolved fields are never written back.
type AppointmentView struct {
	models.Appointment
	Doctor *DoctorSummary `json:"doctor,omitempty"`
	User   *PersonSummary `json:"user,omitempty"`
	Admin  *PersonSummary `json:"admin,omitempty"`
}

func (s *Service) enrichOne(ctx context.Context, apt *models.Appointment) *AppointmentView {
	views := s.enrich(ctx, []models.Appointment{*apt})
	return &views[0]
}

// enrich resolves doctors, users and admins in two batched lookups. A failed
// lookup leaves the affected fields empty; the appointments are still returned.
func (s *Service) enrich(ctx context.Context, apts []models.Appointment) []AppointmentView {
	views := make([]AppointmentView, len(apts))
	if len(apts) == 0 {
		return views
	}

	doctorIDs := make([]string, 0, len(apts))
	personIDs := make([]string, 0, len(apts)*2)
	for _, apt := range apts {
		doctorIDs = append(doctorIDs, apt.DoctorID)
		personIDs = append(personIDs, apt.UserID)
		if apt.AdminID != nil {
			personIDs = append(personIDs, *apt.AdminID)
		}
	}

	doctors, err := s.directory.DoctorsByIDs(ctx, uniqueStrings(doctorIDs))
	if err != nil {
		s.log.WithError(err).Warn("Resolving doctors for appointments failed")
	}
	people, err := s.directory.UsersByIDs(ctx, uniqueStrings(personIDs))
	if err != nil {
		s.log.WithFields(logrus.Fields{"error": err}).Warn("Resolving users for appointments failed")
	}

	for i, apt := range apts {
		views[i] = AppointmentView{Appointment: apt}
		if doc, ok := doctors[apt.DoctorID]; ok {
			views[i].Doctor = &DoctorSummary{
				ID:             doc.ID,
				Name:           doc.Name,
				Specialization: doc.Specialization,
				Email:          doc.Email,
				PhoneNumber:    doc.PhoneNumber,
			}
		}
		if u, ok := people[apt.UserID]; ok {
			views[i].User = personSummary(u)
		}
		if apt.AdminID != nil {
			if a, ok := people[*apt.AdminID]; ok {
				views[i].Admin = personSummary(a)
			}
		}
	}
	return views
}

func personSummary(u models.User) *PersonSummary {
	return &PersonSummary{ID: u.ID, Name: u.FullName(), Email: u.Email}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
