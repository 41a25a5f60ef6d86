// Package admin implements the dashboard's command side: login, customer
// and personnel management, zones, and the season reset. Every mutation
// drops the cached report views it could have staled; reads go through the
// report service and are not duplicated here.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/eggbucket/admin-api/internal/blob"
	"github.com/eggbucket/admin-api/internal/identity"
	"github.com/eggbucket/admin-api/internal/model"
	"github.com/eggbucket/admin-api/internal/report"
	"github.com/eggbucket/admin-api/internal/store"
)

// ErrUnauthorized signals a failed credential check.
var ErrUnauthorized = errors.New("invalid username or password")

// ErrInvalid wraps request validation failures; handlers map it to 400.
var ErrInvalid = errors.New("invalid input")

// ErrDuplicatePhone signals that a personnel account already exists for
// the derived email.
var ErrDuplicatePhone = errors.New("phone number already registered")

type Config struct {
	DeliveryEmailDomain string
	SalesEmailDomain    string
}

type Service struct {
	store   store.Store
	ident   identity.Service
	images  blob.Store
	reports *report.Service
	log     zerolog.Logger
	now     func() time.Time

	deliveryDomain string
	salesDomain    string
}

func New(st store.Store, ident identity.Service, images blob.Store, reports *report.Service, log zerolog.Logger, cfg Config) *Service {
	s := &Service{
		store:          st,
		ident:          ident,
		images:         images,
		reports:        reports,
		log:            log,
		now:            time.Now,
		deliveryDomain: cfg.DeliveryEmailDomain,
		salesDomain:    cfg.SalesEmailDomain,
	}
	if s.deliveryDomain == "" {
		s.deliveryDomain = "eggbucketdelivery.in"
	}
	if s.salesDomain == "" {
		s.salesDomain = "eggbucketsales.in"
	}
	return s
}

// WithClock injects the time source; tests pin customer creation times.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Login checks the role's stored credentials. A missing role document maps
// to store.ErrNotFound, a mismatch to ErrUnauthorized.
func (s *Service) Login(ctx context.Context, role, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalid)
	}
	creds, err := s.store.GetCredentials(ctx, role)
	if err != nil {
		return err
	}
	if creds.Username != username || creds.Password != password {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	return s.store.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	return s.store.GetCustomer(ctx, id)
}

// Upload is a multipart file as received by the transport layer.
type Upload struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// AddCustomerInput carries the add-customer form. Lat and Lng stay raw
// strings: the stored location is legacy display text, not a typed point.
type AddCustomerInput struct {
	Name      string
	Phone     string
	Business  string
	CreatedBy string
	SalesID   string
	Lat       string
	Lng       string
	Image     *Upload
}

// AddCustomer allocates the next customer ID off the sales counter, stores
// the image, and creates the document.
func (s *Service) AddCustomer(ctx context.Context, in AddCustomerInput) (model.Customer, error) {
	if in.Name == "" || in.Phone == "" || in.Business == "" {
		return model.Customer{}, fmt.Errorf("%w: name, phone and business are required", ErrInvalid)
	}
	if in.Image == nil {
		return model.Customer{}, fmt.Errorf("%w: image file missing", ErrInvalid)
	}

	n, err := s.store.NextCounter(ctx, store.CustomerCounter)
	if err != nil {
		return model.Customer{}, fmt.Errorf("customer counter: %w", err)
	}
	custID := fmt.Sprintf("%sC%d", in.SalesID, n)

	imageURL, err := s.images.Save(ctx, blob.CustomerImageKey(in.Image.Filename), in.Image.ContentType, in.Image.Data)
	if err != nil {
		return model.Customer{}, fmt.Errorf("store customer image: %w", err)
	}

	c := model.Customer{
		Name:      in.Name,
		Phone:     in.Phone,
		Business:  in.Business,
		ImageURL:  imageURL,
		CreatedAt: s.now(),
		CreatedBy: in.CreatedBy,
		CustID:    custID,
		Location:  fmt.Sprintf("Lat: %s, Lng: %s", strings.TrimSpace(in.Lat), strings.TrimSpace(in.Lng)),
	}
	id, err := s.store.CreateCustomer(ctx, c)
	if err != nil {
		return model.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	c.ID = id

	s.reports.InvalidateAll()
	s.log.Info().Str("customer", id).Str("custid", custID).Msg("customer added")
	return c, nil
}

// UpdateCustomer replaces the editable profile fields. All three are
// required, matching the dashboard's edit form.
func (s *Service) UpdateCustomer(ctx context.Context, id, name, business, phone string) error {
	if id == "" || name == "" || business == "" || phone == "" {
		return fmt.Errorf("%w: id, name, business and phone are required", ErrInvalid)
	}
	upd := store.CustomerUpdate{Name: &name, Business: &business, Phone: &phone}
	if err := s.store.UpdateCustomer(ctx, id, upd); err != nil {
		return err
	}
	s.reports.InvalidateCustomer(id)
	return nil
}

// UpdateCustomerMeta applies the classification fields. An update that
// would change nothing is rejected rather than silently accepted.
func (s *Service) UpdateCustomerMeta(ctx context.Context, id string, upd store.MetaUpdate) error {
	if id == "" {
		return fmt.Errorf("%w: customer id is required", ErrInvalid)
	}
	if upd.Empty() {
		return fmt.Errorf("%w: nothing to update", ErrInvalid)
	}
	if err := s.store.UpdateCustomerMeta(ctx, id, upd); err != nil {
		return err
	}
	s.reports.InvalidateCustomer(id)
	return nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: customer id is required", ErrInvalid)
	}
	if err := s.store.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.reports.InvalidateCustomer(id)
	return nil
}

// ResetAll clears the per-season classification on every customer and
// deletes all zones, then drops the global report views.
func (s *Service) ResetAll(ctx context.Context) (customers, zones int, err error) {
	customers, zones, err = s.store.ResetCustomers(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("reset customers: %w", err)
	}
	s.reports.InvalidateAll()
	s.log.Info().Int("customers", customers).Int("zones", zones).Msg("season reset")
	return customers, zones, nil
}

// AddPerson provisions a delivery partner or salesperson: an identity
// principal keyed by the phone-derived email plus the person document.
// Salespersons additionally get a sequential sales ID.
func (s *Service) AddPerson(ctx context.Context, role, name, phone, password string) (model.Person, error) {
	if name == "" || phone == "" || password == "" {
		return model.Person{}, fmt.Errorf("%w: name, phone number and password are required", ErrInvalid)
	}
	email, err := identity.EmailFor(role, phone, s.deliveryDomain, s.salesDomain)
	if err != nil {
		return model.Person{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if _, err := s.ident.LookupByEmail(ctx, email); err == nil {
		return model.Person{}, ErrDuplicatePhone
	} else if !errors.Is(err, identity.ErrNotFound) {
		return model.Person{}, fmt.Errorf("lookup %s: %w", email, err)
	}

	var salesID string
	if role == model.RoleSales {
		n, err := s.store.NextCounter(ctx, store.SalesCounter)
		if err != nil {
			return model.Person{}, fmt.Errorf("sales counter: %w", err)
		}
		salesID = fmt.Sprintf("S%d", n)
	}

	uid, err := s.ident.Create(ctx, email, password, name)
	if err != nil {
		return model.Person{}, fmt.Errorf("create principal: %w", err)
	}

	p := model.Person{
		UID:     uid,
		Name:    name,
		Phone:   phone,
		Email:   email,
		Role:    role,
		SalesID: salesID,
		Active:  true,
	}
	if err := s.store.PutPerson(ctx, p); err != nil {
		return model.Person{}, fmt.Errorf("store person: %w", err)
	}

	s.reports.InvalidatePersons()
	s.log.Info().Str("role", role).Str("uid", uid).Msg("person added")
	return p, nil
}

func (s *Service) ListPersons(ctx context.Context, role string) ([]model.Person, error) {
	return s.store.ListPersons(ctx, role)
}

// UpdatePerson renames a person and moves their account to the email
// derived from the new phone number.
func (s *Service) UpdatePerson(ctx context.Context, role, uid, name, phone string) error {
	if uid == "" || name == "" || phone == "" {
		return fmt.Errorf("%w: uid, name and phone number are required", ErrInvalid)
	}
	email, err := identity.EmailFor(role, phone, s.deliveryDomain, s.salesDomain)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.ident.Update(ctx, uid, email, name); err != nil {
		return fmt.Errorf("update principal: %w", err)
	}
	if err := s.store.UpdatePerson(ctx, role, uid, name, phone, email); err != nil {
		return err
	}
	s.reports.InvalidatePersons()
	return nil
}

// DeletePerson removes the person document, then the identity principal.
// A document without a principal reference is still removed cleanly.
func (s *Service) DeletePerson(ctx context.Context, role, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	uid, err := s.store.DeletePerson(ctx, role, id)
	if err != nil {
		return err
	}
	if uid != "" {
		if err := s.ident.Delete(ctx, uid); err != nil {
			return fmt.Errorf("delete principal %s: %w", uid, err)
		}
	}
	s.reports.InvalidatePersons()
	return nil
}

// TogglePersonActive flips the active flag and returns the new state. The
// flag never reaches a cached view, so nothing is invalidated.
func (s *Service) TogglePersonActive(ctx context.Context, role, id string) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("%w: id is required", ErrInvalid)
	}
	return s.store.TogglePersonActive(ctx, role, id)
}

// ListZoneNames returns just the zone names, the shape the dashboard's
// dropdowns consume.
func (s *Service) ListZoneNames(ctx context.Context) ([]string, error) {
	zones, err := s.store.ListZones(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(zones))
	for _, z := range zones {
		names = append(names, z.Name)
	}
	return names, nil
}

func (s *Service) AddZone(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: zone name required", ErrInvalid)
	}
	return s.store.AddZone(ctx, name)
}
