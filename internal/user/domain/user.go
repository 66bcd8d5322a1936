package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserDisabled = errors.New("user is disabled")
)

// User is the slice of the identity service the auction core needs: a display
// name for bid broadcasts and an email address for the email dispatcher.
// Identity management itself lives outside this service.
type User struct {
	ID          uuid.UUID
	DisplayName string
	Email       string
	Disabled    bool
}

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}
