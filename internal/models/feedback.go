package models

import "time"

// FeedbackStatus is the moderation state of a feedback entry.
type FeedbackStatus string

const (
	FeedbackPending  FeedbackStatus = "pending"
	FeedbackApproved FeedbackStatus = "approved"
	FeedbackRejected FeedbackStatus = "rejected"
)

// Feedback is a user's rating of the service. Only approved entries are public.
type Feedback struct {
	BaseModel
	UserID         string         `gorm:"size:36;not null;index" json:"userId"`
	Rating         int            `gorm:"not null" json:"rating"`
	Comment        string         `gorm:"type:text" json:"comment"`
	Status         FeedbackStatus `gorm:"size:20;default:'pending';index" json:"status"`
	ModerationNote string         `gorm:"type:text" json:"moderationNote,omitempty"`
	ModeratedBy    *string        `gorm:"size:36" json:"moderatedBy,omitempty"`
	ModeratedAt    *time.Time     `json:"moderatedAt,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
