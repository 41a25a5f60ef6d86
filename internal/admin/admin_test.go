package admin

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/eggbucket/admin-api/internal/blob/memblob"
	"github.com/eggbucket/admin-api/internal/cache/memcache"
	"github.com/eggbucket/admin-api/internal/identity/memident"
	"github.com/eggbucket/admin-api/internal/model"
	"github.com/eggbucket/admin-api/internal/report"
	"github.com/eggbucket/admin-api/internal/store"
	"github.com/eggbucket/admin-api/internal/store/memstore"
)

type fixture struct {
	svc     *Service
	store   *memstore.Store
	ident   *memident.Service
	images  *memblob.Store
	reports *report.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	ident := memident.New()
	images := memblob.New()
	mc := memcache.New()
	t.Cleanup(mc.Close)
	reports := report.New(st, mc, zerolog.Nop())
	svc := New(st, ident, images, reports, zerolog.Nop(), Config{})
	return &fixture{svc: svc, store: st, ident: ident, images: images, reports: reports}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.SetCredentials("admin", model.Credentials{Username: "boss", Password: "secret"})

	if err := f.svc.Login(ctx, "admin", "boss", "secret"); err != nil {
		t.Fatalf("valid login: %v", err)
	}
	if err := f.svc.Login(ctx, "admin", "boss", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("bad password err = %v, want ErrUnauthorized", err)
	}
	if err := f.svc.Login(ctx, "ghost", "boss", "secret"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing role err = %v, want ErrNotFound", err)
	}
	if err := f.svc.Login(ctx, "admin", "", "secret"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("empty username err = %v, want ErrInvalid", err)
	}
}

func TestAddCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := AddCustomerInput{
		Name:      "Kirana Stores",
		Phone:     "9000000001",
		Business:  "retail",
		CreatedBy: "uid-1",
		SalesID:   "S3",
		Lat:       "12.9",
		Lng:       "77.6",
		Image:     &Upload{Filename: "shop.jpg", ContentType: "image/jpeg", Data: strings.NewReader("jpegdata")},
	}
	c, err := f.svc.AddCustomer(ctx, in)
	if err != nil {
		t.Fatalf("AddCustomer: %v", err)
	}
	if c.CustID != "S3C1" {
		t.Fatalf("custid = %q, want S3C1", c.CustID)
	}
	if c.Location != "Lat: 12.9, Lng: 77.6" {
		t.Fatalf("location = %q", c.Location)
	}
	if !strings.HasPrefix(c.ImageURL, "mem://Customer/") {
		t.Fatalf("imageUrl = %q, want stored customer image", c.ImageURL)
	}
	key := strings.TrimPrefix(c.ImageURL, "mem://")
	if data, ok := f.images.Object(key); !ok || string(data) != "jpegdata" {
		t.Fatalf("image payload not stored under %q", key)
	}

	// Counter advances per customer.
	in.Image = &Upload{Filename: "b.png", ContentType: "image/png", Data: strings.NewReader("x")}
	c2, err := f.svc.AddCustomer(ctx, in)
	if err != nil {
		t.Fatalf("second AddCustomer: %v", err)
	}
	if c2.CustID != "S3C2" {
		t.Fatalf("second custid = %q, want S3C2", c2.CustID)
	}
}

func TestAddCustomer_ImageRequired(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddCustomer(context.Background(), AddCustomerInput{
		Name: "A", Phone: "1", Business: "b",
	})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid for missing image", err)
	}
}

func TestAddCustomer_InvalidatesCachedViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seed := AddCustomerInput{
		Name: "First", Phone: "1", Business: "b", SalesID: "S1",
		Image: &Upload{Filename: "a.jpg", Data: strings.NewReader("x")},
	}
	if _, err := f.svc.AddCustomer(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	warm, err := f.reports.AllCustomersWithDeliveries(ctx)
	if err != nil || len(warm) != 1 {
		t.Fatalf("warm view = %d customers, err %v", len(warm), err)
	}

	seed.Name = "Second"
	seed.Image = &Upload{Filename: "b.jpg", Data: strings.NewReader("y")}
	if _, err := f.svc.AddCustomer(ctx, seed); err != nil {
		t.Fatalf("second add: %v", err)
	}
	got, err := f.reports.AllCustomersWithDeliveries(ctx)
	if err != nil {
		t.Fatalf("after add: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("cached view not invalidated: %d customers, want 2", len(got))
	}
}

func TestUpdateCustomerMeta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.store.CreateCustomer(ctx, model.Customer{Name: "A"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := f.svc.UpdateCustomerMeta(ctx, id, store.MetaUpdate{}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("empty update err = %v, want ErrInvalid", err)
	}

	cat := "premium"
	paid := true
	upd := store.MetaUpdate{Category: &cat, CategorySet: true, Paid: &paid}
	if err := f.svc.UpdateCustomerMeta(ctx, id, upd); err != nil {
		t.Fatalf("meta update: %v", err)
	}
	got, err := f.store.GetCustomer(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Category == nil || *got.Category != "premium" || !got.Paid {
		t.Fatalf("customer after meta update = %+v", got)
	}

	// Clearing a set field via an explicit null.
	clr := store.MetaUpdate{Category: nil, CategorySet: true}
	if err := f.svc.UpdateCustomerMeta(ctx, id, clr); err != nil {
		t.Fatalf("clear category: %v", err)
	}
	got, _ = f.store.GetCustomer(ctx, id)
	if got.Category != nil {
		t.Fatalf("category = %v, want cleared", *got.Category)
	}
}

func TestAddPerson_SalesIDSequenceAndDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p1, err := f.svc.AddPerson(ctx, model.RoleSales, "Meera", "9000000010", "pw")
	if err != nil {
		t.Fatalf("add salesperson: %v", err)
	}
	if p1.SalesID != "S1" {
		t.Fatalf("sales_id = %q, want S1", p1.SalesID)
	}
	if p1.Email != "9000000010@eggbucketsales.in" {
		t.Fatalf("email = %q", p1.Email)
	}
	if !p1.Active {
		t.Fatal("new person must start active")
	}

	p2, err := f.svc.AddPerson(ctx, model.RoleSales, "Ravi", "9000000011", "pw")
	if err != nil {
		t.Fatalf("second salesperson: %v", err)
	}
	if p2.SalesID != "S2" {
		t.Fatalf("second sales_id = %q, want S2", p2.SalesID)
	}

	if _, err := f.svc.AddPerson(ctx, model.RoleSales, "Dup", "9000000010", "pw"); !errors.Is(err, ErrDuplicatePhone) {
		t.Fatalf("duplicate phone err = %v, want ErrDuplicatePhone", err)
	}
}

func TestAddPerson_DeliveryHasNoSalesID(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.AddPerson(context.Background(), model.RoleDelivery, "Asha", "9000000020", "pw")
	if err != nil {
		t.Fatalf("add delivery partner: %v", err)
	}
	if p.SalesID != "" {
		t.Fatalf("delivery partner sales_id = %q, want empty", p.SalesID)
	}
	if p.Email != "9000000020@eggbucketdelivery.in" {
		t.Fatalf("email = %q", p.Email)
	}
}

func TestUpdatePerson_MovesEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.AddPerson(ctx, model.RoleDelivery, "Asha", "111", "pw")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.svc.UpdatePerson(ctx, model.RoleDelivery, p.UID, "Asha K", "222"); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := f.store.GetPerson(ctx, model.RoleDelivery, p.UID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Asha K" || got.Phone != "222" || got.Email != "222@eggbucketdelivery.in" {
		t.Fatalf("person after update = %+v", got)
	}
	if _, err := f.ident.LookupByEmail(ctx, "111@eggbucketdelivery.in"); err == nil {
		t.Fatal("old email still resolves to a principal")
	}
	if uid, err := f.ident.LookupByEmail(ctx, "222@eggbucketdelivery.in"); err != nil || uid != p.UID {
		t.Fatalf("new email lookup = %q, %v", uid, err)
	}
}

func TestDeletePerson_RemovesPrincipal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.AddPerson(ctx, model.RoleSales, "Meera", "333", "pw")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.svc.DeletePerson(ctx, model.RoleSales, p.UID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.store.GetPerson(ctx, model.RoleSales, p.UID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("person still in store: %v", err)
	}
	if _, err := f.ident.LookupByEmail(ctx, p.Email); err == nil {
		t.Fatal("principal still exists after delete")
	}
}

func TestTogglePersonActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.AddPerson(ctx, model.RoleDelivery, "Asha", "444", "pw")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	active, err := f.svc.TogglePersonActive(ctx, model.RoleDelivery, p.UID)
	if err != nil || active {
		t.Fatalf("first toggle = %v, %v; want inactive", active, err)
	}
	active, err = f.svc.TogglePersonActive(ctx, model.RoleDelivery, p.UID)
	if err != nil || !active {
		t.Fatalf("second toggle = %v, %v; want active again", active, err)
	}
}

func TestZones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.AddZone(ctx, "North"); err != nil {
		t.Fatalf("add zone: %v", err)
	}
	if err := f.svc.AddZone(ctx, "North"); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("duplicate zone err = %v, want ErrDuplicate", err)
	}
	if err := f.svc.AddZone(ctx, "  "); !errors.Is(err, ErrInvalid) {
		t.Fatalf("blank zone err = %v, want ErrInvalid", err)
	}

	names, err := f.svc.ListZoneNames(ctx)
	if err != nil {
		t.Fatalf("list zones: %v", err)
	}
	if len(names) != 1 || names[0] != "North" {
		t.Fatalf("zones = %v", names)
	}
}

func TestResetAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, _ := f.store.CreateCustomer(ctx, model.Customer{Name: "A"})
	cat := "premium"
	paid := true
	_ = f.svc.UpdateCustomerMeta(ctx, id, store.MetaUpdate{Category: &cat, CategorySet: true, Paid: &paid})
	_ = f.svc.AddZone(ctx, "North")

	customers, zones, err := f.svc.ResetAll(ctx)
	if err != nil {
		t.Fatalf("ResetAll: %v", err)
	}
	if customers != 1 || zones != 1 {
		t.Fatalf("reset counts = %d customers, %d zones", customers, zones)
	}
	got, _ := f.store.GetCustomer(ctx, id)
	if got.Category != nil || got.Paid || got.Remarks != "" || got.Zone != nil {
		t.Fatalf("customer after reset = %+v", got)
	}
	names, _ := f.svc.ListZoneNames(ctx)
	if len(names) != 0 {
		t.Fatalf("zones after reset = %v", names)
	}
}

func TestAddCustomer_ClockInjection(t *testing.T) {
	f := newFixture(t)
	fixed := time.Date(2026, 8, 1, 9, 0, 0, 0, time.Local)
	f.svc.WithClock(func() time.Time { return fixed })

	c, err := f.svc.AddCustomer(context.Background(), AddCustomerInput{
		Name: "A", Phone: "1", Business: "b", SalesID: "S1",
		Image: &Upload{Filename: "a.jpg", Data: strings.NewReader("x")},
	})
	if err != nil {
		t.Fatalf("AddCustomer: %v", err)
	}
	if !c.CreatedAt.Equal(fixed) {
		t.Fatalf("createdAt = %v, want %v", c.CreatedAt, fixed)
	}
}
