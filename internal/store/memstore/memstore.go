// Package memstore is an in-memory Store used by tests and local
// development. Collections preserve insertion order so aggregate results
// stay deterministic.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/eggbucket/admin-api/internal/model"
	"github.com/eggbucket/admin-api/internal/store"
)

type Store struct {
	mu sync.RWMutex

	customerIDs []string
	customers   map[string]model.Customer
	deliveries  map[string][]model.Delivery // customerID -> insertion order

	personIDs map[string][]string // role -> uid order
	persons   map[string]map[string]model.Person

	zones    []model.Zone
	counters map[string]int64
	creds    map[string]model.Credentials

	nextID int
}

func New() *Store {
	return &Store{
		customers:  make(map[string]model.Customer),
		deliveries: make(map[string][]model.Delivery),
		personIDs:  make(map[string][]string),
		persons:    make(map[string]map[string]model.Person),
		counters:   make(map[string]int64),
		creds:      make(map[string]model.Credentials),
	}
}

func (s *Store) ListCustomers(_ context.Context) ([]model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Customer, 0, len(s.customerIDs))
	for _, id := range s.customerIDs {
		out = append(out, s.customers[id])
	}
	return out, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return model.Customer{}, fmt.Errorf("customer %s: %w", id, store.ErrNotFound)
	}
	return c, nil
}

func (s *Store) CreateCustomer(_ context.Context, c model.Customer) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		s.nextID++
		c.ID = fmt.Sprintf("cust-%04d", s.nextID)
	}
	if _, ok := s.customers[c.ID]; !ok {
		s.customerIDs = append(s.customerIDs, c.ID)
	}
	s.customers[c.ID] = c
	return c.ID, nil
}

func (s *Store) UpdateCustomer(_ context.Context, id string, upd store.CustomerUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return fmt.Errorf("customer %s: %w", id, store.ErrNotFound)
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Business != nil {
		c.Business = *upd.Business
	}
	if upd.Phone != nil {
		c.Phone = *upd.Phone
	}
	s.customers[id] = c
	return nil
}

func (s *Store) UpdateCustomerMeta(_ context.Context, id string, upd store.MetaUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return fmt.Errorf("customer %s: %w", id, store.ErrNotFound)
	}
	if upd.CategorySet {
		c.Category = upd.Category
	}
	if upd.ZoneSet {
		c.Zone = upd.Zone
	}
	if upd.Paid != nil {
		c.Paid = *upd.Paid
	}
	if upd.Remarks != nil {
		c.Remarks = *upd.Remarks
	}
	s.customers[id] = c
	return nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[id]; !ok {
		return fmt.Errorf("customer %s: %w", id, store.ErrNotFound)
	}
	delete(s.customers, id)
	// The Firestore backend leaves the deliveries subcollection behind on
	// delete. Dropping it here keeps a reused ID from resurrecting another
	// customer's history; generated IDs never collide, so the backends
	// only diverge on data no caller can reach.
	delete(s.deliveries, id)
	for i, cid := range s.customerIDs {
		if cid == id {
			s.customerIDs = append(s.customerIDs[:i], s.customerIDs[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) ResetCustomers(_ context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.customers {
		c.Paid = false
		c.Category = nil
		c.Zone = nil
		c.Remarks = ""
		s.customers[id] = c
	}
	zoneCount := len(s.zones)
	s.zones = nil
	return len(s.customers), zoneCount, nil
}

func (s *Store) ListDeliveries(_ context.Context, customerID string) ([]model.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.deliveries[customerID]
	out := make([]model.Delivery, len(src))
	copy(out, src)
	return out, nil
}

func (s *Store) PutDelivery(_ context.Context, customerID string, d model.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[customerID]; !ok {
		return fmt.Errorf("customer %s: %w", customerID, store.ErrNotFound)
	}
	list := s.deliveries[customerID]
	for i, cur := range list {
		if cur.ID == d.ID {
			list[i] = d
			return nil
		}
	}
	s.deliveries[customerID] = append(list, d)
	return nil
}

func (s *Store) ListPersons(_ context.Context, role string) ([]model.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.personIDs[role]
	out := make([]model.Person, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.persons[role][id])
	}
	return out, nil
}

func (s *Store) GetPerson(_ context.Context, role, id string) (model.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[role][id]
	if !ok {
		return model.Person{}, fmt.Errorf("person %s/%s: %w", role, id, store.ErrNotFound)
	}
	return p, nil
}

func (s *Store) PutPerson(_ context.Context, p model.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persons[p.Role] == nil {
		s.persons[p.Role] = make(map[string]model.Person)
	}
	if _, ok := s.persons[p.Role][p.UID]; !ok {
		s.personIDs[p.Role] = append(s.personIDs[p.Role], p.UID)
	}
	s.persons[p.Role][p.UID] = p
	return nil
}

func (s *Store) UpdatePerson(_ context.Context, role, uid, name, phone, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[role][uid]
	if !ok {
		return fmt.Errorf("person %s/%s: %w", role, uid, store.ErrNotFound)
	}
	p.Name, p.Phone, p.Email = name, phone, email
	s.persons[role][uid] = p
	return nil
}

func (s *Store) TogglePersonActive(_ context.Context, role, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[role][id]
	if !ok {
		return false, fmt.Errorf("person %s/%s: %w", role, id, store.ErrNotFound)
	}
	p.Active = !p.Active
	s.persons[role][id] = p
	return p.Active, nil
}

func (s *Store) DeletePerson(_ context.Context, role, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[role][id]
	if !ok {
		return "", fmt.Errorf("person %s/%s: %w", role, id, store.ErrNotFound)
	}
	delete(s.persons[role], id)
	for i, pid := range s.personIDs[role] {
		if pid == id {
			s.personIDs[role] = append(s.personIDs[role][:i], s.personIDs[role][i+1:]...)
			break
		}
	}
	return p.UID, nil
}

func (s *Store) ListZones(_ context.Context) ([]model.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Zone, len(s.zones))
	copy(out, s.zones)
	return out, nil
}

func (s *Store) AddZone(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, z := range s.zones {
		if z.Name == name {
			return fmt.Errorf("zone %q: %w", name, store.ErrDuplicate)
		}
	}
	s.nextID++
	s.zones = append(s.zones, model.Zone{ID: fmt.Sprintf("zone-%04d", s.nextID), Name: name})
	return nil
}

func (s *Store) NextCounter(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name]++
	return s.counters[name], nil
}

func (s *Store) GetCredentials(_ context.Context, role string) (model.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creds[role]
	if !ok {
		return model.Credentials{}, fmt.Errorf("role %s: %w", role, store.ErrNotFound)
	}
	return c, nil
}

// SetCredentials seeds a role's login document.
func (s *Store) SetCredentials(role string, c model.Credentials) {
	s.mu.Lock()
	s.creds[role] = c
	s.mu.Unlock()
}

var _ store.Store = (*Store)(nil)
