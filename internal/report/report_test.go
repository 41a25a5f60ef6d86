package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/eggbucket/admin-api/internal/cache/memcache"
	"github.com/eggbucket/admin-api/internal/dates"
	"github.com/eggbucket/admin-api/internal/model"
	"github.com/eggbucket/admin-api/internal/store"
	"github.com/eggbucket/admin-api/internal/store/memstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestService(t *testing.T) (*Service, *memstore.Store, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2026, 8, 30, 11, 0, 0, 0, time.Local)}
	mc := memcache.New(memcache.WithClock(clk.Now))
	t.Cleanup(mc.Close)
	st := memstore.New()
	svc := New(st, mc, zerolog.Nop(), WithClock(clk.Now))
	return svc, st, clk
}

func seedCustomer(t *testing.T, st *memstore.Store, c model.Customer) string {
	t.Helper()
	id, err := st.CreateCustomer(context.Background(), c)
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return id
}

func seedDelivery(t *testing.T, st *memstore.Store, customerID string, d model.Delivery) {
	t.Helper()
	if d.ID == "" {
		d.ID = dates.DayKey(d.Timestamp)
	}
	if err := st.PutDelivery(context.Background(), customerID, d); err != nil {
		t.Fatalf("seed delivery: %v", err)
	}
}

func seedPerson(t *testing.T, st *memstore.Store, p model.Person) {
	t.Helper()
	if err := st.PutPerson(context.Background(), p); err != nil {
		t.Fatalf("seed person: %v", err)
	}
}

func TestCustomerDeliveries_JoinWithPerson(t *testing.T) {
	svc, st, clk := newTestService(t)
	ctx := context.Background()

	seedPerson(t, st, model.Person{UID: "p1", Name: "Asha", Phone: "555", Role: model.RoleDelivery, Active: true})
	id := seedCustomer(t, st, model.Customer{ID: "C1", Name: "Kirana Stores"})

	d1 := clk.Now().AddDate(0, 0, -2)
	d2 := clk.Now().AddDate(0, 0, -1)
	seedDelivery(t, st, id, model.Delivery{Timestamp: d1, Type: model.TypeDelivered, DeliveredBy: "p1"})
	seedDelivery(t, st, id, model.Delivery{Timestamp: d2, Type: model.TypeReached})

	got, err := svc.CustomerDeliveries(ctx, id)
	if err != nil {
		t.Fatalf("CustomerDeliveries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(got))
	}
	if got[0].ID != dates.DayKey(d1) || got[0].Type != model.TypeDelivered {
		t.Fatalf("first entry = %+v", got[0])
	}
	if got[0].DeliveryMan == nil || got[0].DeliveryMan.Name != "Asha" || got[0].DeliveryMan.Phone != "555" {
		t.Fatalf("deliveryMan = %+v, want Asha/555", got[0].DeliveryMan)
	}
	if got[1].DeliveryMan != nil {
		t.Fatalf("entry without deliveredBy resolved to %+v, want nil", got[1].DeliveryMan)
	}
}

func TestCustomerDeliveries_BrokenReferenceSoftFails(t *testing.T) {
	svc, st, clk := newTestService(t)
	ctx := context.Background()

	id := seedCustomer(t, st, model.Customer{ID: "C1", Name: "A"})
	seedDelivery(t, st, id, model.Delivery{
		Timestamp: clk.Now().AddDate(0, 0, -1), Type: model.TypeDelivered, DeliveredBy: "ghost",
	})

	got, err := svc.CustomerDeliveries(ctx, id)
	if err != nil {
		t.Fatalf("CustomerDeliveries: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("broken reference dropped the delivery entry: %d entries", len(got))
	}
	if got[0].DeliveryMan != nil {
		t.Fatalf("deliveryMan = %+v, want nil for dangling reference", got[0].DeliveryMan)
	}
}

func TestCustomerDeliveries_UnknownCustomerEmptyList(t *testing.T) {
	svc, _, _ := newTestService(t)
	got, err := svc.CustomerDeliveries(context.Background(), "nope")
	if err != nil {
		t.Fatalf("CustomerDeliveries: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d deliveries for unknown customer, want 0", len(got))
	}
}

func TestAllCustomers_EmptyCollectionSignalsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.AllCustomersWithDeliveries(context.Background())
	if !errors.Is(err, ErrNoCustomers) {
		t.Fatalf("err = %v, want ErrNoCustomers", err)
	}
}

func TestAllCustomers_JoinAndOrder(t *testing.T) {
	svc, st, clk := newTestService(t)
	ctx := context.Background()

	a := seedCustomer(t, st, model.Customer{ID: "A", Name: "First"})
	b := seedCustomer(t, st, model.Customer{ID: "B", Name: "Second"})
	seedDelivery(t, st, b, model.Delivery{Timestamp: clk.Now().AddDate(0, 0, -1), Type: model.TypeReached})

	got, err := svc.AllCustomersWithDeliveries(ctx)
	if err != nil {
		t.Fatalf("AllCustomersWithDeliveries: %v", err)
	}
	if len(got) != 2 || got[0].ID != a || got[1].ID != b {
		t.Fatalf("unexpected order/content: %+v", got)
	}
	if len(got[0].Deliveries) != 0 {
		t.Fatalf("customer A should have zero deliveries, got %d", len(got[0].Deliveries))
	}
	if len(got[1].Deliveries) != 1 {
		t.Fatalf("customer B should have one delivery, got %d", len(got[1].Deliveries))
	}
}

func TestTodayMapStatus_PendingDefault(t *testing.T) {
	svc, st, clk := newTestService(t)

	id := seedCustomer(t, st, model.Customer{
		ID: "C2", Name: "Mapped", Location: "Lat: 12.9, Lng: 77.6",
	})
	// A delivery yesterday must not count for today.
	seedDelivery(t, st, id, model.Delivery{Timestamp: clk.Now().AddDate(0, 0, -1), Type: model.TypeDelivered})

	got, err := svc.TodayMapStatus(context.Background())
	if err != nil {
		t.Fatalf("TodayMapStatus: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	e := got[0]
	if e.Status != model.StatusPending || e.Lat != 12.9 || e.Lng != 77.6 {
		t.Fatalf("entry = %+v, want pending at 12.9/77.6", e)
	}
}

func TestTodayMapStatus_SkipsUnmappableCustomers(t *testing.T) {
	svc, st, clk := newTestService(t)

	noLoc := seedCustomer(t, st, model.Customer{ID: "X1", Name: "NoLoc"})
	seedCustomer(t, st, model.Customer{ID: "X2", Name: "Garbage", Location: "Lat: abc, Lng: 77"})
	seedCustomer(t, st, model.Customer{ID: "X3", Name: "Good", Location: " Lat: 1.5 , Lng: 2.5 "})
	// Delivery history must not rescue an unmappable customer.
	seedDelivery(t, st, noLoc, model.Delivery{Timestamp: clk.Now(), Type: model.TypeDelivered})

	got, err := svc.TodayMapStatus(context.Background())
	if err != nil {
		t.Fatalf("TodayMapStatus: %v", err)
	}
	if len(got) != 1 || got[0].ID != "X3" {
		t.Fatalf("got %+v, want only X3", got)
	}
	if got[0].Lat != 1.5 || got[0].Lng != 2.5 {
		t.Fatalf("coords = %v/%v, want 1.5/2.5", got[0].Lat, got[0].Lng)
	}
}

func TestTodayMapStatus_LastSameDayEntryWins(t *testing.T) {
	svc, st, clk := newTestService(t)

	id := seedCustomer(t, st, model.Customer{ID: "C3", Name: "Dup", Location: "Lat: 1, Lng: 2"})
	// Two documents land on today; insertion order pins the scan order.
	seedDelivery(t, st, id, model.Delivery{
		ID: dates.DayKey(clk.Now()), Timestamp: clk.Now().Add(-2 * time.Hour), Type: model.TypeReached,
	})
	seedDelivery(t, st, id, model.Delivery{
		ID: "legacy-dup", Timestamp: clk.Now().Add(-time.Hour), Type: model.TypeDelivered,
	})

	got, err := svc.TodayMapStatus(context.Background())
	if err != nil {
		t.Fatalf("TodayMapStatus: %v", err)
	}
	if len(got) != 1 || got[0].Status != model.TypeDelivered {
		t.Fatalf("status = %+v, want delivered (last scanned entry wins)", got)
	}
}

func TestTodayMapStatus_ReachedStatus(t *testing.T) {
	svc, st, clk := newTestService(t)

	id := seedCustomer(t, st, model.Customer{ID: "C4", Name: "R", Location: "Lat: 1, Lng: 2"})
	seedDelivery(t, st, id, model.Delivery{Timestamp: clk.Now(), Type: model.TypeReached})

	got, err := svc.TodayMapStatus(context.Background())
	if err != nil {
		t.Fatalf("TodayMapStatus: %v", err)
	}
	if len(got) != 1 || got[0].Status != model.TypeReached {
		t.Fatalf("status = %+v, want reached", got)
	}
}

func TestLast7Days_LengthAndWindow(t *testing.T) {
	now := time.Date(2026, 8, 30, 15, 0, 0, 0, time.Local)

	got := Last7Days(now, nil)
	if len(got) != 7 {
		t.Fatalf("empty input: got %d entries, want 7", len(got))
	}
	for i, e := range got {
		want := dates.StartOfDay(now).AddDate(0, 0, -(7 - i))
		if !e.Date.Equal(want) {
			t.Fatalf("entry %d date = %v, want %v", i, e.Date, want)
		}
		if e.Type != nil {
			t.Fatalf("entry %d type = %q, want nil", i, *e.Type)
		}
	}
}

func TestLast7Days_ClassifiesAndExcludesToday(t *testing.T) {
	now := time.Date(2026, 8, 30, 15, 0, 0, 0, time.Local)
	deliveries := []model.Delivery{
		{ID: "2026-08-27", Timestamp: now.AddDate(0, 0, -3), Type: model.TypeDelivered},
		{ID: "2026-08-29", Timestamp: now.AddDate(0, 0, -1), Type: model.TypeReached},
		{ID: "2026-08-30", Timestamp: now, Type: model.TypeDelivered}, // today: out of window
	}

	got := Last7Days(now, deliveries)
	if len(got) != 7 {
		t.Fatalf("got %d entries, want 7", len(got))
	}
	byKey := map[string]*string{}
	for _, e := range got {
		byKey[dates.DayKey(e.Date)] = e.Type
	}
	if typ := byKey["2026-08-27"]; typ == nil || *typ != model.TypeDelivered {
		t.Fatalf("2026-08-27 = %v, want delivered", typ)
	}
	if typ := byKey["2026-08-29"]; typ == nil || *typ != model.TypeReached {
		t.Fatalf("2026-08-29 = %v, want reached", typ)
	}
	if _, ok := byKey["2026-08-30"]; ok {
		t.Fatal("window must exclude today")
	}
}

func TestRangeSummary_Counts(t *testing.T) {
	svc, st, clk := newTestService(t)
	ctx := context.Background()

	day1 := clk.Now().AddDate(0, 0, -2)
	day2 := clk.Now().AddDate(0, 0, -1)

	a := seedCustomer(t, st, model.Customer{ID: "A"})
	b := seedCustomer(t, st, model.Customer{ID: "B"})
	c := seedCustomer(t, st, model.Customer{ID: "C"})
	seedDelivery(t, st, a, model.Delivery{Timestamp: day1, Type: model.TypeDelivered})
	seedDelivery(t, st, b, model.Delivery{Timestamp: day1, Type: model.TypeReached})
	seedDelivery(t, st, c, model.Delivery{Timestamp: day2, Type: model.TypeDelivered})

	rows, err := svc.RangeSummary(ctx, day1, day2)
	if err != nil {
		t.Fatalf("RangeSummary: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	r1 := rows[0]
	if r1.Date != dates.DayKey(day1) || r1.Total != 3 || r1.Delivered != 1 || r1.Checked != 1 || r1.NotDelivered != 1 {
		t.Fatalf("day1 row = %+v", r1)
	}
	r2 := rows[1]
	if r2.Delivered != 1 || r2.Checked != 0 || r2.NotDelivered != 2 {
		t.Fatalf("day2 row = %+v", r2)
	}
}

func TestRangeSummary_InvertedRangeRejected(t *testing.T) {
	svc, st, clk := newTestService(t)
	seedCustomer(t, st, model.Customer{ID: "A"})
	_, err := svc.RangeSummary(context.Background(), clk.Now(), clk.Now().AddDate(0, 0, -1))
	if err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestCacheTTLBoundary_StaleThenFresh(t *testing.T) {
	svc, st, clk := newTestService(t)
	ctx := context.Background()

	seedCustomer(t, st, model.Customer{ID: "A", Name: "Original"})

	first, err := svc.AllCustomersWithDeliveries(ctx)
	if err != nil {
		t.Fatalf("cold call: %v", err)
	}
	if len(first) != 1 || first[0].Name != "Original" {
		t.Fatalf("cold aggregate = %+v", first)
	}

	// Mutate the store directly, bypassing invalidation.
	name := "Renamed"
	if err := st.UpdateCustomer(ctx, "A", store.CustomerUpdate{Name: &name}); err != nil {
		t.Fatalf("mutate: %v", err)
	}

	clk.Advance(299 * time.Second)
	within, err := svc.AllCustomersWithDeliveries(ctx)
	if err != nil {
		t.Fatalf("within TTL: %v", err)
	}
	if within[0].Name != "Original" {
		t.Fatalf("within TTL name = %q, want stale Original", within[0].Name)
	}

	clk.Advance(2 * time.Second)
	after, err := svc.AllCustomersWithDeliveries(ctx)
	if err != nil {
		t.Fatalf("after TTL: %v", err)
	}
	if after[0].Name != "Renamed" {
		t.Fatalf("after TTL name = %q, want Renamed", after[0].Name)
	}
}

func TestInvalidateCustomer_DropsAffectedViews(t *testing.T) {
	svc, st, clk := newTestService(t)
	ctx := context.Background()

	id := seedCustomer(t, st, model.Customer{ID: "A", Name: "Before"})
	if _, err := svc.AllCustomersWithDeliveries(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	name := "After"
	if err := st.UpdateCustomer(ctx, id, store.CustomerUpdate{Name: &name}); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	svc.InvalidateCustomer(id)

	clk.Advance(time.Second) // still well inside the TTL
	got, err := svc.AllCustomersWithDeliveries(ctx)
	if err != nil {
		t.Fatalf("after invalidation: %v", err)
	}
	if got[0].Name != "After" {
		t.Fatalf("name = %q, want After immediately after invalidation", got[0].Name)
	}
}

func TestTodayMapStatus_ShortTTL(t *testing.T) {
	svc, st, clk := newTestService(t)
	ctx := context.Background()

	id := seedCustomer(t, st, model.Customer{ID: "A", Name: "M", Location: "Lat: 1, Lng: 2"})

	got, err := svc.TodayMapStatus(ctx)
	if err != nil || got[0].Status != model.StatusPending {
		t.Fatalf("cold map status = %+v err=%v", got, err)
	}

	seedDelivery(t, st, id, model.Delivery{Timestamp: clk.Now(), Type: model.TypeDelivered})

	clk.Advance(59 * time.Second)
	within, _ := svc.TodayMapStatus(ctx)
	if within[0].Status != model.StatusPending {
		t.Fatalf("status inside 60s TTL = %q, want stale pending", within[0].Status)
	}

	clk.Advance(2 * time.Second)
	after, _ := svc.TodayMapStatus(ctx)
	if after[0].Status != model.TypeDelivered {
		t.Fatalf("status after TTL = %q, want delivered", after[0].Status)
	}
}
