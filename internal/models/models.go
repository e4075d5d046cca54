package models

import "time"

type User struct {
	ID            string `gorm:"primaryKey"           json:"id"`
	Username      string `gorm:"uniqueIndex;not null" json:"username"`
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	FullName      string `gorm:"not null"             json:"full_name"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
	PasswordHash  string `gorm:"not null"             json:"-"`

	// Fingerprint of the one live refresh token, empty when logged out.
	CurrentRefreshToken string `gorm:"index" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
