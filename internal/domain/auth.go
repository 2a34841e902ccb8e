package domain

import "time"

// ============================================================
// Auth - users and tokens
// ============================================================

// User is an operator of the back office, bound to one company. FilialID
// empty means the user may act on any branch of the company.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Nome         string    `json:"nome"`
	PasswordHash string    `json:"-"`
	EmpresaID    string    `json:"empresaId"`
	FilialID     string    `json:"filialId,omitempty"`
	Papel        string    `json:"papel"` // admin, financeiro, rh
	Ativo        bool      `json:"ativo"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the body for 200 from POST /v1/auth/login.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
	UserID      string `json:"userId"`
	Nome        string `json:"nome"`
	EmpresaID   string `json:"empresaId"`
	FilialID    string `json:"filialId,omitempty"`
	Papel       string `json:"papel"`
}
