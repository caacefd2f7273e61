package services

import (
	"github.com/google/uuid"

	"marketplace-service/models"
)

// Caller is the authenticated identity resolved from the session.
type Caller struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Role   string
}

func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}
