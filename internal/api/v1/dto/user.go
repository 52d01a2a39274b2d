package dto

import "time"

// UserCreateDTO is the payload for creating a user profile.
type UserCreateDTO struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// UserResponseDTO is the user profile returned to clients.
type UserResponseDTO struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UsageSummaryDTO is the account view of tier, usage and quota.
type UsageSummaryDTO struct {
	Tier      string    `json:"tier"`
	Usage     int       `json:"usage"`
	Quota     int       `json:"quota"`
	ResetDate time.Time `json:"reset_date"`
}
