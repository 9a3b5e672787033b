// File: internal/auth/model.go
package auth

import "desirius_backend/internal/shared"

// LoginRequest defines the structure for login requests.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest defines the structure for sign-up requests.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"omitempty,max=32"`
	Password string `json:"password" binding:"required,min=6"`
}

func (r RegisterRequest) toShared() shared.SignUpRequest {
	return shared.SignUpRequest{Name: r.Name, Email: r.Email, Phone: r.Phone, Password: r.Password}
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}
