// ABOUTME: Auth request/response models and the server-side session record
// ABOUTME: Defines login contracts and the session structure persisted in the cache store

package models

import "time"

// LoginRequest carries portal credentials
type LoginRequest struct {
	DNI      string `json:"dni"`
	Password string `json:"password"`
}

// ValidateEmailRequest is sent by first-time users to activate their account
type ValidateEmailRequest struct {
	DNI      string `json:"dni"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RecoverPasswordRequest asks the API to email a reset link
type RecoverPasswordRequest struct {
	Email string `json:"email"`
}

// ChangePasswordRequest is forwarded to PUT /user/change-password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// LoginResult is returned by a successful authentication
type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// FlashLevel classifies one-shot messages shown on the next page render
type FlashLevel string

const (
	FlashSuccess FlashLevel = "success"
	FlashError   FlashLevel = "error"
	FlashInfo    FlashLevel = "info"
)

// Flash is a message shown once and then discarded
type Flash struct {
	Level   FlashLevel `json:"level"`
	Message string     `json:"message"`
}

// Session stores server-side portal state.
// The record lives only in the session store; the browser holds the ID.
type Session struct {
	ID        string    `json:"id"`
	JWTToken  string    `json:"jwt_token,omitempty"`
	TestToken string    `json:"test_token,omitempty"`
	CSRFToken string    `json:"csrf_token"`
	Flashes   []Flash   `json:"flashes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
