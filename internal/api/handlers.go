package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/eggbucket/admin-api/internal/admin"
	"github.com/eggbucket/admin-api/internal/dates"
	"github.com/eggbucket/admin-api/internal/export"
	"github.com/eggbucket/admin-api/internal/logger"
	"github.com/eggbucket/admin-api/internal/report"
	"github.com/eggbucket/admin-api/internal/store"
)

const maxBodyBytes = 1 << 20
const maxUploadBytes = 10 << 20

// Handlers exposes the admin dashboard API over the command and report
// services.
type Handlers struct {
	admin   *admin.Service
	reports *report.Service
	log     zerolog.Logger
}

func NewHandlers(adminSvc *admin.Service, reports *report.Service, log zerolog.Logger) *Handlers {
	return &Handlers{admin: adminSvc, reports: reports, log: log}
}

// fail maps service errors onto the response contract. Collaborator faults
// surface as a generic 500; the detail stays in the log.
func (h *Handlers) fail(r *http.Request, w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, admin.ErrInvalid),
		errors.Is(err, admin.ErrDuplicatePhone),
		errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, admin.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, report.ErrNoCustomers):
		writeError(w, http.StatusNotFound, "no customers found")
	default:
		lg := logger.FromContext(r.Context(), h.log)
		lg.Error().Err(err).Str("op", op).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json body", admin.ErrInvalid)
	}
	return nil
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(r, w, err, "login")
		return
	}
	if req.Role == "" {
		h.fail(r, w, fmt.Errorf("%w: role is required", admin.ErrInvalid), "login")
		return
	}
	if err := h.admin.Login(r.Context(), req.Role, req.Username, req.Password); err != nil {
		h.fail(r, w, err, "login")
		return
	}
	writeMessage(w, http.StatusOK, "Login successful")
}

func (h *Handlers) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.admin.ListCustomers(r.Context())
	if err != nil {
		h.fail(r, w, err, "list customers")
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (h *Handlers) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.admin.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(r, w, err, "get customer")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) AddCustomer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.fail(r, w, fmt.Errorf("%w: invalid multipart form", admin.ErrInvalid), "add customer")
		return
	}
	in := admin.AddCustomerInput{
		Name:      r.FormValue("name"),
		Phone:     r.FormValue("phone"),
		Business:  r.FormValue("business"),
		CreatedBy: r.FormValue("createdby"),
		SalesID:   r.FormValue("sales_id"),
		Lat:       r.FormValue("lat"),
		Lng:       r.FormValue("lng"),
	}
	if file, hdr, err := r.FormFile("image"); err == nil {
		defer file.Close()
		in.Image = &admin.Upload{
			Filename:    hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
			Data:        file,
		}
	}
	if _, err := h.admin.AddCustomer(r.Context(), in); err != nil {
		h.fail(r, w, err, "add customer")
		return
	}
	writeMessage(w, http.StatusOK, "Customer added successfully")
}

func (h *Handlers) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Business string `json:"business"`
		Phone    string `json:"phone"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(r, w, err, "update customer")
		return
	}
	if err := h.admin.UpdateCustomer(r.Context(), req.ID, req.Name, req.Business, req.Phone); err != nil {
		h.fail(r, w, err, "update customer")
		return
	}
	writeMessage(w, http.StatusOK, "Customer updated successfully")
}

func (h *Handlers) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(r, w, err, "delete customer")
		return
	}
	if err := h.admin.DeleteCustomer(r.Context(), req.ID); err != nil {
		h.fail(r, w, err, "delete customer")
		return
	}
	writeMessage(w, http.StatusOK, "Customer deleted successfully")
}

// UpdateCustomerMeta applies a partial classification update. Field
// presence matters: an explicit null clears category or zone, an absent
// key leaves it alone.
func (h *Handlers) UpdateCustomerMeta(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if err := decodeJSON(r, &raw); err != nil {
		h.fail(r, w, err, "update customer meta")
		return
	}

	var id string
	if v, ok := raw["id"]; ok {
		_ = json.Unmarshal(v, &id)
	}

	var upd store.MetaUpdate
	if v, ok := raw["category"]; ok {
		upd.CategorySet = true
		upd.Category = decodeNullableString(v)
	}
	if v, ok := raw["zone"]; ok {
		upd.ZoneSet = true
		upd.Zone = decodeNullableString(v)
	}
	if v, ok := raw["paid"]; ok {
		var b bool
		if err := json.Unmarshal(v, &b); err == nil {
			upd.Paid = &b
		}
	}
	if v, ok := raw["remarks"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			upd.Remarks = &s
		}
	}

	if err := h.admin.UpdateCustomerMeta(r.Context(), id, upd); err != nil {
		h.fail(r, w, err, "update customer meta")
		return
	}
	writeMessage(w, http.StatusOK, "Customer updated successfully")
}

func decodeNullableString(v json.RawMessage) *string {
	var s *string
	_ = json.Unmarshal(v, &s)
	return s
}

func (h *Handlers) ResetAll(w http.ResponseWriter, r *http.Request) {
	customers, zones, err := h.admin.ResetAll(r.Context())
	if err != nil {
		h.fail(r, w, err, "reset all")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "All customers and zones reset successfully",
		"customers": customers,
		"zones":     zones,
	})
}

func (h *Handlers) CustomerDeliveries(w http.ResponseWriter, r *http.Request) {
	deliveries, err := h.reports.CustomerDeliveries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(r, w, err, "customer deliveries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deliveries": deliveries})
}

func (h *Handlers) AllDeliveries(w http.ResponseWriter, r *http.Request) {
	customers, err := h.reports.AllCustomersWithDeliveries(r.Context())
	if err != nil {
		h.fail(r, w, err, "all deliveries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

// AllDeliveriesRange serves the per-day summary for a date range, as JSON
// or as a CSV/XLSX download.
func (h *Handlers) AllDeliveriesRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := time.ParseInLocation(dates.Layout, q.Get("start"), time.Local)
	if err != nil {
		h.fail(r, w, fmt.Errorf("%w: start must be YYYY-MM-DD", admin.ErrInvalid), "range summary")
		return
	}
	end, err := time.ParseInLocation(dates.Layout, q.Get("end"), time.Local)
	if err != nil {
		h.fail(r, w, fmt.Errorf("%w: end must be YYYY-MM-DD", admin.ErrInvalid), "range summary")
		return
	}
	if start.After(end) {
		h.fail(r, w, fmt.Errorf("%w: start is after end", admin.ErrInvalid), "range summary")
		return
	}

	rows, err := h.reports.RangeSummary(r.Context(), start, end)
	if err != nil {
		h.fail(r, w, err, "range summary")
		return
	}

	format := q.Get("format")
	switch format {
	case "", "json":
		writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
	case "csv":
		name := export.Filename(q.Get("start"), q.Get("end"), "csv")
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		if err := export.WriteCSV(w, rows); err != nil {
			lg := logger.FromContext(r.Context(), h.log)
			lg.Error().Err(err).Msg("csv export failed")
		}
	case "xlsx":
		name := export.Filename(q.Get("start"), q.Get("end"), "xlsx")
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		if err := export.WriteXLSX(w, rows); err != nil {
			lg := logger.FromContext(r.Context(), h.log)
			lg.Error().Err(err).Msg("xlsx export failed")
		}
	default:
		h.fail(r, w, fmt.Errorf("%w: format must be json, csv or xlsx", admin.ErrInvalid), "range summary")
	}
}

func (h *Handlers) CustomerMapStatus(w http.ResponseWriter, r *http.Request) {
	result, err := h.reports.TodayMapStatus(r.Context())
	if err != nil {
		h.fail(r, w, err, "map status")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) AnalyticsLast7(w http.ResponseWriter, r *http.Request) {
	customers, err := h.reports.AnalyticsLast7(r.Context())
	if err != nil {
		h.fail(r, w, err, "analytics last7")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (h *Handlers) addPerson(role, label string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string `json:"name"`
			Phone    string `json:"phone"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			h.fail(r, w, err, "add "+label)
			return
		}
		if _, err := h.admin.AddPerson(r.Context(), role, req.Name, req.Phone, req.Password); err != nil {
			h.fail(r, w, err, "add "+label)
			return
		}
		writeMessage(w, http.StatusCreated, label+" added successfully")
	}
}

func (h *Handlers) listPersons(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		persons, err := h.admin.ListPersons(r.Context(), role)
		if err != nil {
			h.fail(r, w, err, "list "+role)
			return
		}
		writeJSON(w, http.StatusOK, persons)
	}
}

func (h *Handlers) updatePerson(role, label string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UID   string `json:"uid"`
			Name  string `json:"name"`
			Phone string `json:"phone"`
		}
		if err := decodeJSON(r, &req); err != nil {
			h.fail(r, w, err, "update "+label)
			return
		}
		if err := h.admin.UpdatePerson(r.Context(), role, req.UID, req.Name, req.Phone); err != nil {
			h.fail(r, w, err, "update "+label)
			return
		}
		writeMessage(w, http.StatusOK, label+" updated successfully")
	}
}

func (h *Handlers) deletePerson(role, label string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		if err := decodeJSON(r, &req); err != nil {
			h.fail(r, w, err, "delete "+label)
			return
		}
		if err := h.admin.DeletePerson(r.Context(), role, req.ID); err != nil {
			h.fail(r, w, err, "delete "+label)
			return
		}
		writeMessage(w, http.StatusOK, label+" deleted successfully")
	}
}

func (h *Handlers) togglePerson(role, label string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active, err := h.admin.TogglePersonActive(r.Context(), role, chi.URLParam(r, "id"))
		if err != nil {
			h.fail(r, w, err, "toggle "+label)
			return
		}
		state := "inactive"
		if active {
			state = "active"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": label + " status updated to " + state,
			"active":  active,
		})
	}
}

func (h *Handlers) ListZones(w http.ResponseWriter, r *http.Request) {
	names, err := h.admin.ListZoneNames(r.Context())
	if err != nil {
		h.fail(r, w, err, "list zones")
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *Handlers) AddZone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(r, w, err, "add zone")
		return
	}
	if err := h.admin.AddZone(r.Context(), req.Name); err != nil {
		h.fail(r, w, err, "add zone")
		return
	}
	writeMessage(w, http.StatusOK, "Zone added")
}

// role labels used in person handler responses.
const (
	labelDelivery = "Delivery partner"
	labelSales    = "Salesperson"
)
