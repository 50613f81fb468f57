package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           string         `gorm:"type:varchar(128);primaryKey" json:"id"`
	Email        string         `gorm:"unique;not null" json:"email"`
	DisplayName  string         `json:"display_name"`
	PasswordHash string         `json:"-"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Profile is the signed-in identity handed to clients. In mirror mode it
// is also what the local storage keeps as the current user.
type Profile struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

func (u User) Profile() Profile {
	return Profile{UID: u.ID, DisplayName: u.DisplayName, Email: u.Email}
}
