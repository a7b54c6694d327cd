package authapi

import (
	"time"

	"balcao/cmd/identity"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type signupRequest struct {
	Name     string   `json:"name"`
	Nickname *string  `json:"nickname"`
	Email    *string  `json:"email"`
	CPF      *string  `json:"cpf"`
	Roles    []string `json:"roles"`
	Password *string  `json:"password"`
	Notes    *string  `json:"notes"`
}

type userResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Nickname    *string    `json:"nickname"`
	Email       *string    `json:"email"`
	CPF         *string    `json:"cpf"`
	Roles       []string   `json:"roles"`
	TenantID    string     `json:"tenant_id"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

type sessionResponse struct {
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type loginResponse struct {
	User    userResponse    `json:"user"`
	Session sessionResponse `json:"session"`
}

type refreshResponse struct {
	Session sessionResponse `json:"session"`
}

type signupResponse struct {
	User userResponse `json:"user"`
}

type meResponse struct {
	User userResponse `json:"user"`
}

func toUserResponse(u identity.User) userResponse {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	return userResponse{
		ID:          u.ID.String(),
		Name:        u.Name,
		Nickname:    u.Nickname,
		Email:       u.Email,
		CPF:         u.CPF,
		Roles:       roles,
		TenantID:    u.TenantID.String(),
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
