// Package model holds the typed records the admin API works with. The
// backing store keeps them as schemaless documents; validation of required
// vs. optional fields happens here, at the boundary, instead of being
// re-checked throughout the call tree.
package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Delivery event types as stored on the delivery document. Anything else
// (including absence) renders as "not delivered" / "not reached" / "pending"
// depending on the view.
const (
	TypeDelivered = "delivered"
	TypeReached   = "reached"
)

// Map/report status labels derived from the day's delivery record.
const (
	StatusPending      = "pending"
	StatusNotDelivered = "not delivered"
)

// Personnel roles. Delivery partners and salespersons live in separate
// collections upstream but share one record shape.
const (
	RoleDelivery = "delivery"
	RoleSales    = "sales"
)

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Business  string    `json:"business"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdby,omitempty"`
	CustID    string    `json:"custid"`

	// Location is the legacy free-text "Lat: <num>, Lng: <num>" field.
	// Parse it with ParseLocation; malformed legacy rows are tolerated
	// and skipped by the map view.
	Location string `json:"location,omitempty"`

	Category *string `json:"category"`
	Zone     *string `json:"zone"`
	Paid     bool    `json:"paid"`
	Remarks  string  `json:"remarks"`
}

// Delivery is one day-keyed event under a customer. ID is the canonical
// local-midnight calendar date (YYYY-MM-DD) of Timestamp; several views join
// by exact ID match rather than timestamp range, so the two must agree.
type Delivery struct {
	ID          string    `json:"id"`
	DeliveredBy string    `json:"deliveredBy,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
}

// Person is a delivery partner or salesperson. UID doubles as the identity
// provider's principal ID.
type Person struct {
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Role    string `json:"-"`
	SalesID string `json:"sales_id,omitempty"`
	Active  bool   `json:"active"`
}

type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Credentials is the per-role login document.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ParseLocation extracts coordinates from the legacy "Lat: X, Lng: Y" text.
// It trims whitespace and label prefixes and rejects anything that does not
// yield two finite numbers.
func ParseLocation(s string) (Coordinates, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Coordinates{}, fmt.Errorf("empty location")
	}
	s = strings.ReplaceAll(s, "Lat:", "")
	s = strings.ReplaceAll(s, "Lng:", "")
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinates{}, fmt.Errorf("location %q: want 2 comma-separated values", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("location lat: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("location lng: %w", err)
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return Coordinates{}, fmt.Errorf("location %q: non-finite coordinates", s)
	}
	return Coordinates{Lat: lat, Lng: lng}, nil
}

// FormatLocation renders coordinates back into the legacy stored form.
func FormatLocation(c Coordinates) string {
	return fmt.Sprintf("Lat: %v, Lng: %v", c.Lat, c.Lng)
}
