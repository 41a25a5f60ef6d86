// Package fsstore implements the document store port on Cloud Firestore,
// matching the collection layout the rest of the system was built around:
// customers (with a deliveries subcollection), DeliveryMan, Salesman, zones,
// globalcounter and Authentication.
package fsstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/eggbucket/admin-api/internal/model"
	"github.com/eggbucket/admin-api/internal/observability"
	"github.com/eggbucket/admin-api/internal/store"
)

const (
	colCustomers  = "customers"
	colDeliveries = "deliveries"
	colDelivery   = "DeliveryMan"
	colSales      = "Salesman"
	colZones      = "zones"
	colCounters   = "globalcounter"
	colAuth       = "Authentication"
)

type Store struct {
	cli *firestore.Client
}

func New(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore project ID is required")
	}
	cli, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Store{cli: cli}, nil
}

func (s *Store) Close() error {
	return s.cli.Close()
}

type customerDoc struct {
	Name      string    `firestore:"name"`
	Phone     string    `firestore:"phone"`
	Business  string    `firestore:"business"`
	ImageURL  string    `firestore:"imageUrl"`
	CreatedAt time.Time `firestore:"createdAt"`
	CreatedBy string    `firestore:"createdby"`
	CustID    string    `firestore:"custid"`
	Location  string    `firestore:"location"`
	Category  *string   `firestore:"category"`
	Zone      *string   `firestore:"zone"`
	Paid      bool      `firestore:"paid"`
	Remarks   string    `firestore:"remarks"`
}

func (d customerDoc) toModel(id string) model.Customer {
	return model.Customer{
		ID:        id,
		Name:      d.Name,
		Phone:     d.Phone,
		Business:  d.Business,
		ImageURL:  d.ImageURL,
		CreatedAt: d.CreatedAt,
		CreatedBy: d.CreatedBy,
		CustID:    d.CustID,
		Location:  d.Location,
		Category:  d.Category,
		Zone:      d.Zone,
		Paid:      d.Paid,
		Remarks:   d.Remarks,
	}
}

func fromCustomer(c model.Customer) customerDoc {
	return customerDoc{
		Name:      c.Name,
		Phone:     c.Phone,
		Business:  c.Business,
		ImageURL:  c.ImageURL,
		CreatedAt: c.CreatedAt,
		CreatedBy: c.CreatedBy,
		CustID:    c.CustID,
		Location:  c.Location,
		Category:  c.Category,
		Zone:      c.Zone,
		Paid:      c.Paid,
		Remarks:   c.Remarks,
	}
}

type deliveryDoc struct {
	DeliveredBy string    `firestore:"deliveredBy"`
	Timestamp   time.Time `firestore:"timestamp"`
	Type        string    `firestore:"type"`
}

type personDoc struct {
	UID     string `firestore:"uid"`
	Name    string `firestore:"name"`
	Phone   string `firestore:"phone"`
	Email   string `firestore:"email"`
	SalesID string `firestore:"sales_id,omitempty"`
	Active  bool   `firestore:"active"`
}

func roleCollection(role string) (string, error) {
	switch role {
	case model.RoleDelivery:
		return colDelivery, nil
	case model.RoleSales:
		return colSales, nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *Store) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	start := time.Now()
	out, err := s.listCustomers(ctx)
	observability.ObserveStoreOp("customers.list", err, time.Since(start).Seconds())
	return out, err
}

func (s *Store) listCustomers(ctx context.Context) ([]model.Customer, error) {
	var out []model.Customer
	it := s.cli.Collection(colCustomers).Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list customers: %w", err)
		}
		var d customerDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode customer %s: %w", snap.Ref.ID, err)
		}
		out = append(out, d.toModel(snap.Ref.ID))
	}
	return out, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	start := time.Now()
	snap, err := s.cli.Collection(colCustomers).Doc(id).Get(ctx)
	observability.ObserveStoreOp("customers.get", err, time.Since(start).Seconds())
	if notFound(err) {
		return model.Customer{}, fmt.Errorf("customer %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return model.Customer{}, fmt.Errorf("get customer %s: %w", id, err)
	}
	var d customerDoc
	if err := snap.DataTo(&d); err != nil {
		return model.Customer{}, fmt.Errorf("decode customer %s: %w", id, err)
	}
	return d.toModel(snap.Ref.ID), nil
}

func (s *Store) CreateCustomer(ctx context.Context, c model.Customer) (string, error) {
	start := time.Now()
	ref := s.cli.Collection(colCustomers).NewDoc()
	_, err := ref.Set(ctx, fromCustomer(c))
	observability.ObserveStoreOp("customers.create", err, time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return ref.ID, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, id string, upd store.CustomerUpdate) error {
	var updates []firestore.Update
	if upd.Name != nil {
		updates = append(updates, firestore.Update{Path: "name", Value: *upd.Name})
	}
	if upd.Business != nil {
		updates = append(updates, firestore.Update{Path: "business", Value: *upd.Business})
	}
	if upd.Phone != nil {
		updates = append(updates, firestore.Update{Path: "phone", Value: *upd.Phone})
	}
	return s.update(ctx, "customers.update", s.cli.Collection(colCustomers).Doc(id), updates)
}

func (s *Store) UpdateCustomerMeta(ctx context.Context, id string, upd store.MetaUpdate) error {
	var updates []firestore.Update
	if upd.CategorySet {
		updates = append(updates, firestore.Update{Path: "category", Value: ptrValue(upd.Category)})
	}
	if upd.ZoneSet {
		updates = append(updates, firestore.Update{Path: "zone", Value: ptrValue(upd.Zone)})
	}
	if upd.Paid != nil {
		updates = append(updates, firestore.Update{Path: "paid", Value: *upd.Paid})
	}
	if upd.Remarks != nil {
		updates = append(updates, firestore.Update{Path: "remarks", Value: *upd.Remarks})
	}
	return s.update(ctx, "customers.meta", s.cli.Collection(colCustomers).Doc(id), updates)
}

func ptrValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func (s *Store) update(ctx context.Context, op string, ref *firestore.DocumentRef, updates []firestore.Update) error {
	if len(updates) == 0 {
		return nil
	}
	start := time.Now()
	_, err := ref.Update(ctx, updates)
	observability.ObserveStoreOp(op, err, time.Since(start).Seconds())
	if notFound(err) {
		return fmt.Errorf("%s %s: %w", op, ref.ID, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, ref.ID, err)
	}
	return nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	ref := s.cli.Collection(colCustomers).Doc(id)
	start := time.Now()
	_, err := ref.Get(ctx)
	if notFound(err) {
		observability.ObserveStoreOp("customers.delete", err, time.Since(start).Seconds())
		return fmt.Errorf("customer %s: %w", id, store.ErrNotFound)
	}
	if err == nil {
		_, err = ref.Delete(ctx)
	}
	observability.ObserveStoreOp("customers.delete", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("delete customer %s: %w", id, err)
	}
	return nil
}

func (s *Store) ResetCustomers(ctx context.Context) (int, int, error) {
	start := time.Now()
	customers, zones, err := s.resetCustomers(ctx)
	observability.ObserveStoreOp("customers.reset", err, time.Since(start).Seconds())
	return customers, zones, err
}

func (s *Store) resetCustomers(ctx context.Context) (int, int, error) {
	bw := s.cli.BulkWriter(ctx)

	customers := 0
	it := s.cli.Collection(colCustomers).Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, 0, fmt.Errorf("reset: list customers: %w", err)
		}
		_, err = bw.Update(snap.Ref, []firestore.Update{
			{Path: "paid", Value: false},
			{Path: "category", Value: nil},
			{Path: "remarks", Value: ""},
			{Path: "zone", Value: nil},
		})
		if err != nil {
			return 0, 0, fmt.Errorf("reset: queue customer %s: %w", snap.Ref.ID, err)
		}
		customers++
	}

	zones := 0
	zit := s.cli.Collection(colZones).Documents(ctx)
	defer zit.Stop()
	for {
		snap, err := zit.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, 0, fmt.Errorf("reset: list zones: %w", err)
		}
		if _, err := bw.Delete(snap.Ref); err != nil {
			return 0, 0, fmt.Errorf("reset: queue zone %s: %w", snap.Ref.ID, err)
		}
		zones++
	}

	bw.End()
	return customers, zones, nil
}

func (s *Store) ListDeliveries(ctx context.Context, customerID string) ([]model.Delivery, error) {
	start := time.Now()
	out, err := s.listDeliveries(ctx, customerID)
	observability.ObserveStoreOp("deliveries.list", err, time.Since(start).Seconds())
	return out, err
}

func (s *Store) listDeliveries(ctx context.Context, customerID string) ([]model.Delivery, error) {
	var out []model.Delivery
	it := s.cli.Collection(colCustomers).Doc(customerID).Collection(colDeliveries).Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list deliveries for %s: %w", customerID, err)
		}
		var d deliveryDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode delivery %s/%s: %w", customerID, snap.Ref.ID, err)
		}
		out = append(out, model.Delivery{
			ID:          snap.Ref.ID,
			DeliveredBy: d.DeliveredBy,
			Timestamp:   d.Timestamp,
			Type:        d.Type,
		})
	}
	return out, nil
}

func (s *Store) PutDelivery(ctx context.Context, customerID string, d model.Delivery) error {
	start := time.Now()
	_, err := s.cli.Collection(colCustomers).Doc(customerID).
		Collection(colDeliveries).Doc(d.ID).
		Set(ctx, deliveryDoc{DeliveredBy: d.DeliveredBy, Timestamp: d.Timestamp, Type: d.Type})
	observability.ObserveStoreOp("deliveries.put", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("put delivery %s/%s: %w", customerID, d.ID, err)
	}
	return nil
}

func (s *Store) ListPersons(ctx context.Context, role string) ([]model.Person, error) {
	col, err := roleCollection(role)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := s.listPersons(ctx, role, col)
	observability.ObserveStoreOp("persons.list", err, time.Since(start).Seconds())
	return out, err
}

func (s *Store) listPersons(ctx context.Context, role, col string) ([]model.Person, error) {
	var out []model.Person
	it := s.cli.Collection(col).Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", col, err)
		}
		var d personDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode person %s/%s: %w", col, snap.Ref.ID, err)
		}
		out = append(out, personFromDoc(snap.Ref.ID, role, d))
	}
	return out, nil
}

func personFromDoc(id, role string, d personDoc) model.Person {
	uid := d.UID
	if uid == "" {
		uid = id
	}
	return model.Person{
		UID:     uid,
		Name:    d.Name,
		Phone:   d.Phone,
		Email:   d.Email,
		Role:    role,
		SalesID: d.SalesID,
		Active:  d.Active,
	}
}

func (s *Store) GetPerson(ctx context.Context, role, id string) (model.Person, error) {
	col, err := roleCollection(role)
	if err != nil {
		return model.Person{}, err
	}
	start := time.Now()
	snap, err := s.cli.Collection(col).Doc(id).Get(ctx)
	observability.ObserveStoreOp("persons.get", err, time.Since(start).Seconds())
	if notFound(err) {
		return model.Person{}, fmt.Errorf("person %s/%s: %w", role, id, store.ErrNotFound)
	}
	if err != nil {
		return model.Person{}, fmt.Errorf("get person %s/%s: %w", role, id, err)
	}
	var d personDoc
	if err := snap.DataTo(&d); err != nil {
		return model.Person{}, fmt.Errorf("decode person %s/%s: %w", role, id, err)
	}
	return personFromDoc(snap.Ref.ID, role, d), nil
}

func (s *Store) PutPerson(ctx context.Context, p model.Person) error {
	col, err := roleCollection(p.Role)
	if err != nil {
		return err
	}
	start := time.Now()
	_, err = s.cli.Collection(col).Doc(p.UID).Set(ctx, personDoc{
		UID:     p.UID,
		Name:    p.Name,
		Phone:   p.Phone,
		Email:   p.Email,
		SalesID: p.SalesID,
		Active:  p.Active,
	})
	observability.ObserveStoreOp("persons.put", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("put person %s/%s: %w", p.Role, p.UID, err)
	}
	return nil
}

func (s *Store) UpdatePerson(ctx context.Context, role, uid, name, phone, email string) error {
	col, err := roleCollection(role)
	if err != nil {
		return err
	}
	return s.update(ctx, "persons.update", s.cli.Collection(col).Doc(uid), []firestore.Update{
		{Path: "name", Value: name},
		{Path: "phone", Value: phone},
		{Path: "email", Value: email},
	})
}

func (s *Store) TogglePersonActive(ctx context.Context, role, id string) (bool, error) {
	col, err := roleCollection(role)
	if err != nil {
		return false, err
	}
	ref := s.cli.Collection(col).Doc(id)

	var active bool
	start := time.Now()
	err = s.cli.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if notFound(err) {
			return fmt.Errorf("person %s/%s: %w", role, id, store.ErrNotFound)
		}
		if err != nil {
			return err
		}
		var d personDoc
		if err := snap.DataTo(&d); err != nil {
			return err
		}
		active = !d.Active
		return tx.Update(ref, []firestore.Update{{Path: "active", Value: active}})
	})
	observability.ObserveStoreOp("persons.toggle", err, time.Since(start).Seconds())
	if err != nil {
		return false, err
	}
	return active, nil
}

func (s *Store) DeletePerson(ctx context.Context, role, id string) (string, error) {
	col, err := roleCollection(role)
	if err != nil {
		return "", err
	}
	ref := s.cli.Collection(col).Doc(id)

	start := time.Now()
	snap, err := ref.Get(ctx)
	if notFound(err) {
		observability.ObserveStoreOp("persons.delete", err, time.Since(start).Seconds())
		return "", fmt.Errorf("person %s/%s: %w", role, id, store.ErrNotFound)
	}
	if err != nil {
		observability.ObserveStoreOp("persons.delete", err, time.Since(start).Seconds())
		return "", fmt.Errorf("get person %s/%s: %w", role, id, err)
	}
	var d personDoc
	if err := snap.DataTo(&d); err != nil {
		return "", fmt.Errorf("decode person %s/%s: %w", role, id, err)
	}
	_, err = ref.Delete(ctx)
	observability.ObserveStoreOp("persons.delete", err, time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("delete person %s/%s: %w", role, id, err)
	}
	uid := d.UID
	if uid == "" {
		uid = id
	}
	return uid, nil
}

func (s *Store) ListZones(ctx context.Context) ([]model.Zone, error) {
	start := time.Now()
	var out []model.Zone
	it := s.cli.Collection(colZones).Documents(ctx)
	defer it.Stop()
	var err error
	for {
		var snap *firestore.DocumentSnapshot
		snap, err = it.Next()
		if err == iterator.Done {
			err = nil
			break
		}
		if err != nil {
			err = fmt.Errorf("list zones: %w", err)
			break
		}
		name, _ := snap.DataAt("name")
		n, _ := name.(string)
		out = append(out, model.Zone{ID: snap.Ref.ID, Name: n})
	}
	observability.ObserveStoreOp("zones.list", err, time.Since(start).Seconds())
	return out, err
}

func (s *Store) AddZone(ctx context.Context, name string) error {
	start := time.Now()
	err := s.addZone(ctx, name)
	observability.ObserveStoreOp("zones.add", err, time.Since(start).Seconds())
	return err
}

func (s *Store) addZone(ctx context.Context, name string) error {
	it := s.cli.Collection(colZones).Where("name", "==", name).Limit(1).Documents(ctx)
	defer it.Stop()
	if _, err := it.Next(); err == nil {
		return fmt.Errorf("zone %q: %w", name, store.ErrDuplicate)
	} else if err != iterator.Done {
		return fmt.Errorf("check zone %q: %w", name, err)
	}
	if _, _, err := s.cli.Collection(colZones).Add(ctx, map[string]any{"name": name}); err != nil {
		return fmt.Errorf("add zone %q: %w", name, err)
	}
	return nil
}

func (s *Store) NextCounter(ctx context.Context, name string) (int64, error) {
	ref := s.cli.Collection(colCounters).Doc(name)

	var next int64
	start := time.Now()
	err := s.cli.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && !notFound(err) {
			return err
		}
		var cur int64
		if err == nil {
			if v, err := snap.DataAt("counter"); err == nil {
				if n, ok := v.(int64); ok {
					cur = n
				}
			}
		}
		next = cur + 1
		return tx.Set(ref, map[string]any{"counter": next})
	})
	observability.ObserveStoreOp("counter.next", err, time.Since(start).Seconds())
	if err != nil {
		return 0, fmt.Errorf("counter %s: %w", name, err)
	}
	return next, nil
}

func (s *Store) GetCredentials(ctx context.Context, role string) (model.Credentials, error) {
	start := time.Now()
	snap, err := s.cli.Collection(colAuth).Doc(role).Get(ctx)
	observability.ObserveStoreOp("auth.get", err, time.Since(start).Seconds())
	if notFound(err) {
		return model.Credentials{}, fmt.Errorf("role %s: %w", role, store.ErrNotFound)
	}
	if err != nil {
		return model.Credentials{}, fmt.Errorf("get credentials %s: %w", role, err)
	}
	var c struct {
		Username string `firestore:"username"`
		Password string `firestore:"password"`
	}
	if err := snap.DataTo(&c); err != nil {
		return model.Credentials{}, fmt.Errorf("decode credentials %s: %w", role, err)
	}
	return model.Credentials{Username: c.Username, Password: c.Password}, nil
}

var _ store.Store = (*Store)(nil)
