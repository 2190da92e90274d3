package dto

import "time"

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	LoginAs  string `json:"loginAs"`
}

// ForgotPasswordRequest payload for initiating reset.
type ForgotPasswordRequest struct {
	Email       string `json:"email"`
	AccountType string `json:"accountType"`
}

// ResetPasswordRequest payload for completing a reset.
type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// LoginResponse is returned by login and clinician registration.
type LoginResponse struct {
	Message         string    `json:"message"`
	User            any       `json:"user"`
	AccessToken     string    `json:"accessToken"`
	AccessExpiresAt time.Time `json:"accessTokenExpiresAt"`
}

// TokenResponse is returned by the refresh endpoint.
type TokenResponse struct {
	AccessToken     string    `json:"accessToken"`
	AccessExpiresAt time.Time `json:"accessTokenExpiresAt"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
