package models

// Doctor is a bookable practitioner. Doctors do not log in; they are
// managed by admins and referenced by appointments.
type Doctor struct {
	BaseModel
	Name            string `gorm:"size:150;not null" json:"name"`
	Specialization  string `gorm:"size:100;index" json:"specialization"`
	Email           string `gorm:"size:255" json:"email,omitempty"`
	PhoneNumber     string `gorm:"size:30" json:"phoneNumber,omitempty"`
	ExperienceYears int    `json:"experienceYears"`
	Active          bool   `gorm:"not null" json:"active"`
}
