package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/auth_gateway/internal/models"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserAlreadyExist = errors.New("user already exist")

// CredentialStore is the keyed user store consumed by the auth workflow.
type CredentialStore interface {
	CreateUserIfNotExists(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
