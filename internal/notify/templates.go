package notify

import "html/template"

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: {{.Color}};">{{.Heading}}</h2>
    <p>Dear {{.RecipientName}},</p>
    {{template "content" .}}
    <table style="border-collapse: collapse; margin: 16px 0;">
      <tr><td style="padding: 4px 12px 4px 0;"><strong>Doctor</strong></td><td>{{.DoctorName}}{{if .Specialization}} ({{.Specialization}}){{end}}</td></tr>
      <tr><td style="padding: 4px 12px 4px 0;"><strong>Date</strong></td><td>{{.Date}}</td></tr>
      <tr><td style="padding: 4px 12px 4px 0;"><strong>Type</strong></td><td>{{.AppointmentType}}</td></tr>
      <tr><td style="padding: 4px 12px 4px 0;"><strong>Reason</strong></td><td>{{.Reason}}</td></tr>
      <tr><td style="padding: 4px 12px 4px 0;"><strong>Status</strong></td><td>{{.Status}}</td></tr>
    </table>
    {{if .AdminNote}}<p><strong>Note:</strong> {{.AdminNote}}</p>{{end}}
    {{if .AppURL}}<p><a href="{{.AppURL}}">Open your dashboard</a></p>{{end}}
    <p style="font-size: 12px; color: #888;">This is an automated message, please do not reply.</p>
  </div>
</body>
</html>{{end}}`

var contentTemplates = map[Kind]string{
	KindBookingConfirmation: `<p>We have received your appointment request. You will be notified once an administrator reviews it.</p>`,
	KindNewRequest:          `<p>A new appointment request from <strong>{{.PatientName}}</strong> is waiting for review.</p>`,
	KindApproved:            `<p>Good news! Your appointment has been <strong>approved</strong>. Please arrive 10 minutes early.</p>`,
	KindRejected:            `<p>Unfortunately your appointment request could not be accepted. You are welcome to book another time.</p>`,
}

type kindStyle struct {
	Subject string
	Heading string
	Color   string
}

var kindStyles = map[Kind]kindStyle{
	KindBookingConfirmation: {"Appointment request received", "Appointment Request Received", "#2c7be5"},
	KindNewRequest:          {"New appointment request", "New Appointment Request", "#f6c343"},
	KindApproved:            {"Your appointment has been approved", "Appointment Approved", "#00d97e"},
	KindRejected:            {"Your appointment request was rejected", "Appointment Rejected", "#e63757"},
}

// parseTemplates builds one template per kind, each sharing the layout.
func parseTemplates() map[Kind]*template.Template {
	out := make(map[Kind]*template.Template, len(contentTemplates))
	for kind, content := range contentTemplates {
		t := template.Must(template.New(string(kind)).Parse(layoutTemplate))
		template.Must(t.New("content").Parse(content))
		out[kind] = t
	}
	return out
}
