package models

import (
	"time"
)

// RefreshToken records an issued refresh token by its SHA-256 digest so a
// database leak does not expose usable tokens.
type RefreshToken struct {
	BaseModel
	UserID    string     `gorm:"size:36;index" json:"userId"`
	TokenHash string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `json:"expiresAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Active reports whether the token can still be exchanged at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
