// Package report computes the derived delivery views and fronts them with
// the report cache. Every view is a fan-out read over customers and their
// delivery subcollections; results are cached as encoded payloads under
// per-view keys with a TTL, and mutating callers invalidate the affected
// keys (TTL stays as the staleness backstop).
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/eggbucket/admin-api/internal/cache"
	"github.com/eggbucket/admin-api/internal/cache/keys"
	"github.com/eggbucket/admin-api/internal/dates"
	"github.com/eggbucket/admin-api/internal/model"
	"github.com/eggbucket/admin-api/internal/observability"
	"github.com/eggbucket/admin-api/internal/store"
)

// ErrNoCustomers distinguishes "the customer collection is empty" from a
// customer with zero deliveries; the all-customers join maps it to 404.
var ErrNoCustomers = errors.New("no customers found")

// PersonRef is the display shape a delivery's person reference resolves to.
type PersonRef struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// DeliveryView is one delivery with its person reference resolved.
// DeliveryMan is null when the delivery has no reference or the referenced
// person no longer exists; one broken reference must not fail the aggregate.
type DeliveryView struct {
	ID          string     `json:"id"`
	DeliveredBy string     `json:"deliveredBy,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
	Type        string     `json:"type"`
	DeliveryMan *PersonRef `json:"deliveryMan"`
}

// CustomerDeliveries is a customer joined with its full delivery history.
type CustomerDeliveries struct {
	model.Customer
	Deliveries []DeliveryView `json:"deliveries"`
}

// MapStatus is one pin on the delivery map: parsed coordinates plus the
// derived status for today.
type MapStatus struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Business string  `json:"business"`
	ImageURL string  `json:"imageUrl"`
	Location string  `json:"location"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Status   string  `json:"status"`
}

// DayStatus is one cell of a last-7-days strip. Type is nil when no
// delivery landed that day; consumers render nil as "not reached".
type DayStatus struct {
	Type *string   `json:"type"`
	Date time.Time `json:"date"`
}

// CustomerLast7 is a customer with its trailing-week strip.
type CustomerLast7 struct {
	model.Customer
	Last7 []DayStatus `json:"last7"`
}

// SummaryRow is one calendar day of the date-range report.
type SummaryRow struct {
	Date         string `json:"date"` // day key
	Total        int    `json:"total"`
	Delivered    int    `json:"delivered"`
	Checked      int    `json:"checked"` // stored type "reached"
	NotDelivered int    `json:"notDelivered"`
}

type Service struct {
	store store.Store
	cache cache.Interface
	log   zerolog.Logger

	now        func() time.Time
	ttlDefault time.Duration
	ttlToday   time.Duration
	fanout     int

	// persons memoizes person-reference resolution across a fan-out. A
	// stored nil records a known-broken reference.
	persons *expirable.LRU[string, *PersonRef]
}

type Option func(*Service)

// WithClock injects the time source used for day bucketing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTTLs overrides the default and today-view cache TTLs.
func WithTTLs(def, today time.Duration) Option {
	return func(s *Service) {
		if def > 0 {
			s.ttlDefault = def
		}
		if today > 0 {
			s.ttlToday = today
		}
	}
}

// WithFanoutLimit bounds concurrent per-customer reads.
func WithFanoutLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fanout = n
		}
	}
}

func New(st store.Store, c cache.Interface, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:      st,
		cache:      c,
		log:        log,
		now:        time.Now,
		ttlDefault: 300 * time.Second,
		ttlToday:   60 * time.Second,
		fanout:     8,
		persons:    expirable.NewLRU[string, *PersonRef](512, nil, time.Minute),
	}
	for _, f := range opts {
		f(s)
	}
	return s
}

// cached runs the read-through protocol: decode a live cache entry, or
// compute, store and return. Cache faults and decode failures degrade to a
// recompute; errors are never cached.
func cached[T any](s *Service, view, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	if raw, ok := s.cache.Get(key); ok {
		var out T
		if err := json.Unmarshal(raw, &out); err == nil {
			observability.IncCacheHit(view)
			return out, nil
		}
		// Unreadable entry: drop it and fall through to compute.
		s.cache.Del(key)
	}
	observability.IncCacheMiss(view)

	out, err := compute()
	if err != nil {
		return out, err
	}
	if raw, err := json.Marshal(out); err == nil {
		s.cache.Set(key, raw, ttl)
	} else {
		s.log.Warn().Err(err).Str("key", key).Msg("encode cache payload failed")
	}
	return out, nil
}

// CustomerDeliveries returns a customer's deliveries with person references
// resolved. An unknown customer or empty subcollection yields an empty
// list.
func (s *Service) CustomerDeliveries(ctx context.Context, customerID string) ([]DeliveryView, error) {
	return cached(s, "customer_deliveries", keys.CustomerDeliveries(customerID), s.ttlDefault,
		func() ([]DeliveryView, error) {
			raw, err := s.store.ListDeliveries(ctx, customerID)
			if err != nil {
				return nil, fmt.Errorf("deliveries for %s: %w", customerID, err)
			}
			return s.resolveDeliveries(ctx, raw)
		})
}

func (s *Service) resolveDeliveries(ctx context.Context, raw []model.Delivery) ([]DeliveryView, error) {
	out := make([]DeliveryView, 0, len(raw))
	for _, d := range raw {
		ref, err := s.resolvePerson(ctx, d.DeliveredBy)
		if err != nil {
			return nil, err
		}
		out = append(out, DeliveryView{
			ID:          d.ID,
			DeliveredBy: d.DeliveredBy,
			Timestamp:   d.Timestamp,
			Type:        d.Type,
			DeliveryMan: ref,
		})
	}
	return out, nil
}

// resolvePerson maps a person reference to its display shape. An empty or
// dangling reference resolves to nil rather than an error.
func (s *Service) resolvePerson(ctx context.Context, uid string) (*PersonRef, error) {
	if uid == "" {
		return nil, nil
	}
	if ref, ok := s.persons.Get(uid); ok {
		return ref, nil
	}
	p, err := s.store.GetPerson(ctx, model.RoleDelivery, uid)
	if errors.Is(err, store.ErrNotFound) {
		s.persons.Add(uid, nil)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve person %s: %w", uid, err)
	}
	ref := &PersonRef{Name: p.Name, Phone: p.Phone}
	s.persons.Add(uid, ref)
	return ref, nil
}

// AllCustomersWithDeliveries is the global N+1 join: every customer with
// its full delivery history. An empty customer collection is reported as
// ErrNoCustomers, not an empty list.
func (s *Service) AllCustomersWithDeliveries(ctx context.Context) ([]CustomerDeliveries, error) {
	return cached(s, "all_deliveries", keys.AllCustomerDeliveries, s.ttlDefault,
		func() ([]CustomerDeliveries, error) {
			customers, err := s.store.ListCustomers(ctx)
			if err != nil {
				return nil, fmt.Errorf("list customers: %w", err)
			}
			if len(customers) == 0 {
				return nil, ErrNoCustomers
			}
			observability.ObserveFanout("all_deliveries", len(customers))

			out := make([]CustomerDeliveries, len(customers))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(s.fanout)
			for i, c := range customers {
				i, c := i, c
				g.Go(func() error {
					raw, err := s.store.ListDeliveries(gctx, c.ID)
					if err != nil {
						return fmt.Errorf("deliveries for %s: %w", c.ID, err)
					}
					views, err := s.resolveDeliveries(gctx, raw)
					if err != nil {
						return err
					}
					out[i] = CustomerDeliveries{Customer: c, Deliveries: views}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}
			return out, nil
		})
}

// TodayMapStatus returns every mappable customer with its derived status
// for today. Customers whose location is missing or unparseable are
// skipped. When several same-day entries exist, the last scanned
// delivered/reached entry wins; this mirrors how the view has always
// behaved and keeps historical duplicates rendering identically.
func (s *Service) TodayMapStatus(ctx context.Context) ([]MapStatus, error) {
	return cached(s, "map_status", keys.CustomerMapStatusToday, s.ttlToday,
		func() ([]MapStatus, error) {
			customers, err := s.store.ListCustomers(ctx)
			if err != nil {
				return nil, fmt.Errorf("list customers: %w", err)
			}
			observability.ObserveFanout("map_status", len(customers))
			today := dates.StartOfDay(s.now())

			type slot struct {
				ok bool
				ms MapStatus
			}
			slots := make([]slot, len(customers))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(s.fanout)
			for i, c := range customers {
				i, c := i, c
				coords, err := model.ParseLocation(c.Location)
				if err != nil {
					continue // unmappable legacy row
				}
				g.Go(func() error {
					deliveries, err := s.store.ListDeliveries(gctx, c.ID)
					if err != nil {
						return fmt.Errorf("deliveries for %s: %w", c.ID, err)
					}
					status := model.StatusPending
					for _, d := range deliveries {
						if !dates.SameDay(d.Timestamp, today) {
							continue
						}
						switch d.Type {
						case model.TypeDelivered:
							status = model.TypeDelivered
						case model.TypeReached:
							status = model.TypeReached
						}
					}
					slots[i] = slot{ok: true, ms: MapStatus{
						ID:       c.ID,
						Name:     c.Name,
						Business: c.Business,
						ImageURL: c.ImageURL,
						Location: c.Location,
						Lat:      coords.Lat,
						Lng:      coords.Lng,
						Status:   status,
					}}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}
			out := make([]MapStatus, 0, len(slots))
			for _, sl := range slots {
				if sl.ok {
					out = append(out, sl.ms)
				}
			}
			return out, nil
		})
}

// Last7Days classifies a customer's trailing week: exactly 7 entries for
// the days now-7 through now-1 (today excluded), oldest first. Type passes
// through the first delivery found on each day, nil when none landed.
func Last7Days(now time.Time, deliveries []model.Delivery) []DayStatus {
	out := make([]DayStatus, 0, 7)
	for _, day := range dates.LastNDays(now, 7) {
		var typ *string
		for _, d := range deliveries {
			if dates.SameDay(d.Timestamp, day) {
				t := d.Type
				typ = &t
				break
			}
		}
		out = append(out, DayStatus{Type: typ, Date: day})
	}
	return out
}

// AnalyticsLast7 returns every customer with its trailing-week strip.
func (s *Service) AnalyticsLast7(ctx context.Context) ([]CustomerLast7, error) {
	return cached(s, "analytics_last7", keys.AnalyticsLast7, s.ttlDefault,
		func() ([]CustomerLast7, error) {
			customers, err := s.store.ListCustomers(ctx)
			if err != nil {
				return nil, fmt.Errorf("list customers: %w", err)
			}
			observability.ObserveFanout("analytics_last7", len(customers))
			now := s.now()

			out := make([]CustomerLast7, len(customers))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(s.fanout)
			for i, c := range customers {
				i, c := i, c
				g.Go(func() error {
					deliveries, err := s.store.ListDeliveries(gctx, c.ID)
					if err != nil {
						return fmt.Errorf("deliveries for %s: %w", c.ID, err)
					}
					out[i] = CustomerLast7{Customer: c, Last7: Last7Days(now, deliveries)}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}
			return out, nil
		})
}

// RangeSummary counts delivery outcomes per calendar day across all
// customers, matching deliveries by day key. A customer with no entry for
// a day counts as not delivered.
func (s *Service) RangeSummary(ctx context.Context, start, end time.Time) ([]SummaryRow, error) {
	startKey, endKey := dates.DayKey(start), dates.DayKey(end)
	if dates.StartOfDay(start).After(dates.StartOfDay(end)) {
		return nil, fmt.Errorf("invalid range %s..%s: start after end", startKey, endKey)
	}
	return cached(s, "range_summary", keys.RangeSummary(startKey, endKey), s.ttlDefault,
		func() ([]SummaryRow, error) {
			all, err := s.AllCustomersWithDeliveries(ctx)
			if err != nil {
				return nil, err
			}
			days := dates.Range(start, end)
			rows := make([]SummaryRow, 0, len(days))
			for _, day := range days {
				key := dates.DayKey(day)
				row := SummaryRow{Date: key, Total: len(all)}
				for _, c := range all {
					var found *DeliveryView
					for i := range c.Deliveries {
						if c.Deliveries[i].ID == key {
							found = &c.Deliveries[i]
							break
						}
					}
					switch {
					case found == nil:
						row.NotDelivered++
					case found.Type == model.TypeDelivered:
						row.Delivered++
					case found.Type == model.TypeReached:
						row.Checked++
					default:
						row.NotDelivered++
					}
				}
				rows = append(rows, row)
			}
			return rows, nil
		})
}

// InvalidateCustomer drops every cached view a write to the given customer
// could have staled. Range summaries age out by TTL alone; they derive
// from the all-customers join, which is dropped here.
func (s *Service) InvalidateCustomer(customerID string) {
	s.cache.Del(
		keys.CustomerDeliveries(customerID),
		keys.AllCustomerDeliveries,
		keys.CustomerMapStatusToday,
		keys.AnalyticsLast7,
	)
}

// InvalidateAll drops the global aggregate views after bulk mutations.
func (s *Service) InvalidateAll() {
	s.cache.Del(
		keys.AllCustomerDeliveries,
		keys.CustomerMapStatusToday,
		keys.AnalyticsLast7,
	)
	s.persons.Purge()
}

// InvalidatePersons drops memoized person references and the global views
// that embed person display names. Per-customer entries cannot be
// enumerated here and age out by TTL.
func (s *Service) InvalidatePersons() {
	s.persons.Purge()
	s.InvalidateAll()
}
