package dto

import (
	"time"

	"github.com/postspot/user-service/internal/domain"
)

// SignUpRequest optional profile fields for POST /users. Values present in
// the bearer token take precedence.
type SignUpRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserSummaryResponse is the public projection of a user.
type UserSummaryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserResponse is the full record returned to its owner.
type UserResponse struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Email     string               `json:"email"`
	Status    domain.AccountStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NewUserSummaryResponse maps a summary.
func NewUserSummaryResponse(s domain.UserSummary) UserSummaryResponse {
	return UserSummaryResponse{ID: s.ID, Name: s.Name, Email: s.Email}
}

// NewUserSummaryList maps summaries, never returning nil.
func NewUserSummaryList(summaries []domain.UserSummary) []UserSummaryResponse {
	out := make([]UserSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, NewUserSummaryResponse(s))
	}
	return out
}
