package models

import "time"

// Session holds the credential issued to one chat after login.
type Session struct {
	ChatID     int64     `json:"chat_id"`
	Email      string    `json:"email"`
	Token      string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Credentials are what the user types to log in.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
