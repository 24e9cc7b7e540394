package userrepo

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
)

// User is the persistence shape used by the user repository.
type User struct {
	ID    domain.UserID
	Email string
	// Name is optional; nil means unset.
	Name *string

	CreatedAt time.Time
}

// Repository provides access to the user directory.
//
// Result ordering expectations:
// - List returns users ordered by CreatedAt ascending, then ID.
type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id domain.UserID) (User, error)
	List(ctx context.Context) ([]User, error)
}
