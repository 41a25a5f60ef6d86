// Package store defines the document store port. Implementations live in
// memstore (tests, local dev) and fsstore (Firestore).
package store

import (
	"context"
	"errors"

	"github.com/eggbucket/admin-api/internal/model"
)

// ErrNotFound signals a missing document, distinct from an empty collection.
var ErrNotFound = errors.New("not found")

// ErrDuplicate signals a uniqueness conflict (e.g. zone name).
var ErrDuplicate = errors.New("already exists")

// CustomerUpdate carries the editable profile fields. Nil means unchanged.
type CustomerUpdate struct {
	Name     *string
	Business *string
	Phone    *string
}

// MetaUpdate carries the classification fields. Set distinguishes "change to
// this value (possibly null)" from "leave alone", since category and zone
// can legitimately be cleared.
type MetaUpdate struct {
	Category    *string
	CategorySet bool
	Zone        *string
	ZoneSet     bool
	Paid        *bool
	Remarks     *string
}

// Empty reports whether the update would change nothing.
func (u MetaUpdate) Empty() bool {
	return !u.CategorySet && !u.ZoneSet && u.Paid == nil && u.Remarks == nil
}

type Store interface {
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	GetCustomer(ctx context.Context, id string) (model.Customer, error)
	CreateCustomer(ctx context.Context, c model.Customer) (id string, err error)
	UpdateCustomer(ctx context.Context, id string, upd CustomerUpdate) error
	UpdateCustomerMeta(ctx context.Context, id string, upd MetaUpdate) error
	DeleteCustomer(ctx context.Context, id string) error

	// ResetCustomers clears paid/category/remarks/zone on every customer
	// and drops all zones, as one batched sweep. Returns how many of each
	// were touched.
	ResetCustomers(ctx context.Context) (customers, zones int, err error)

	// ListDeliveries returns a customer's delivery events in stable
	// document order. An unknown customer yields an empty list, matching
	// the upstream subcollection semantics.
	ListDeliveries(ctx context.Context, customerID string) ([]model.Delivery, error)
	PutDelivery(ctx context.Context, customerID string, d model.Delivery) error

	ListPersons(ctx context.Context, role string) ([]model.Person, error)
	GetPerson(ctx context.Context, role, id string) (model.Person, error)
	PutPerson(ctx context.Context, p model.Person) error
	UpdatePerson(ctx context.Context, role, uid, name, phone, email string) error
	TogglePersonActive(ctx context.Context, role, id string) (active bool, err error)
	DeletePerson(ctx context.Context, role, id string) (uid string, err error)

	ListZones(ctx context.Context) ([]model.Zone, error)
	AddZone(ctx context.Context, name string) error

	// NextCounter atomically increments the named sequence and returns
	// the new value.
	NextCounter(ctx context.Context, name string) (int64, error)

	GetCredentials(ctx context.Context, role string) (model.Credentials, error)
}

// Counter names used by customer and salesperson ID generation.
const (
	CustomerCounter = "customercounter"
	SalesCounter    = "salescounter"
)
