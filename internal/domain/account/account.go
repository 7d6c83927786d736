// Package account defines marketplace account roles and the authenticated
// actor identity resolved from a request's credentials.
package account

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Role is an account's single active role. Every account has exactly one.
type Role string

const (
	// RoleClient is a buyer account.
	RoleClient Role = "client"
	// RoleVendor is a seller account ("entreprise").
	RoleVendor Role = "vendor"
	// RoleAdmin supersedes both other roles for read access.
	RoleAdmin Role = "admin"
)

// ErrNotFound is returned when a requested account does not exist.
var ErrNotFound = errors.New("account not found")

// ParseRole converts a raw role string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleClient, RoleVendor, RoleAdmin:
		return Role(s), nil
	default:
		return "", errors.Errorf("unknown role %q", s)
	}
}

// Account is a registered marketplace user.
type Account struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
}

// Actor is the identity attached to an authenticated request. It is resolved
// once, at authentication time, and carried through the call chain instead of
// probing for profile attributes downstream.
type Actor struct {
	AccountID string
	Role      Role
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsClient reports whether the actor is a buyer.
func (a Actor) IsClient() bool { return a.Role == RoleClient }

// IsVendor reports whether the actor is a seller.
func (a Actor) IsVendor() bool { return a.Role == RoleVendor }

// Repository defines persistence operations for accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, a *Account) error
}
