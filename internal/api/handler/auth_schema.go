package handler

import "time"

// --- Request / Response types ---

type registerRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name"  validate:"required,max=100"`
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"password"   validate:"required,min=8,max=72"`
	Role      string `json:"role"       validate:"omitempty,oneof=doctor admin"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// refreshRequest is optional: browsers send the refresh token as a cookie,
// other clients may post it in the body.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgetPasswordRequest struct {
	Email     string `json:"email"      validate:"required,email"`
	ClientURI string `json:"client_uri" validate:"required,url"`
}

type resetPasswordRequest struct {
	Password        string `json:"password"         validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Token           string `json:"token"            validate:"required"`
	Email           string `json:"email"            validate:"required,email"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type userResponse struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type meResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}
