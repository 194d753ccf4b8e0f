package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the identity anchor of the system. It is bound to exactly one
// external-auth subject and owns exactly one Profile.
type User struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id"`
	// AuthSubject is the stable subject identifier returned by the identity verifier.
	AuthSubject string `gorm:"uniqueIndex;not null" json:"auth_subject"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   *time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
	LastLoginAt time.Time  `json:"last_login_at"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// BeforeCreate generates a UUID for the user if none is set.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Profile holds the display attributes of a User.
type Profile struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string     `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	DisplayName *string    `json:"display_name"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   *time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return
}

// Snapshot returns the copy of the profile embedded into ephemeral state.
func (p *Profile) Snapshot() ProfileSnapshot {
	if p == nil {
		return ProfileSnapshot{}
	}
	return ProfileSnapshot{ID: p.ID, UserID: p.UserID, DisplayName: p.DisplayName}
}
