package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Owner is the minimal record of a user a task can be assigned to.
type Owner struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewOwner creates an owner with an already hashed password.
func NewOwner(username, email, passwordHash string, now time.Time) (*Owner, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyOwnerName
	}

	return &Owner{
		ID:           newID(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now.UTC(),
	}, nil
}
