// Package identity defines the personnel account port. Accounts are keyed
// by an email derived from the person's phone number.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/eggbucket/admin-api/internal/model"
)

// ErrNotFound signals that no principal exists for the email; callers use
// it as the duplicate-phone check before creating a person.
var ErrNotFound = errors.New("principal not found")

type Service interface {
	// LookupByEmail returns the principal's UID, or ErrNotFound.
	LookupByEmail(ctx context.Context, email string) (uid string, err error)
	Create(ctx context.Context, email, password, displayName string) (uid string, err error)
	Update(ctx context.Context, uid, email, displayName string) error
	Delete(ctx context.Context, uid string) error
}

// EmailFor derives the account email for a role's phone number.
func EmailFor(role, phone, deliveryDomain, salesDomain string) (string, error) {
	switch role {
	case model.RoleDelivery:
		return phone + "@" + deliveryDomain, nil
	case model.RoleSales:
		return phone + "@" + salesDomain, nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}
