package httpapi

import "time"

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Locale   string `json:"locale"`
}

type verifyRequest struct {
	Token string `json:"token" binding:"required"`
	Kind  string `json:"kind" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

type resetRequest struct {
	Email string `json:"email" binding:"required"`
}

type resetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Code     string `json:"code" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Locale string `json:"locale"`
}

type loginResponse struct {
	Status           string       `json:"status"`
	SessionToken     string       `json:"session_token"`
	SessionExpiresAt time.Time    `json:"session_expires_at"`
	Remembered       bool         `json:"remembered"`
	User             userResponse `json:"user"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type meResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

type errorResponse struct {
	Error             string `json:"error"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
}
