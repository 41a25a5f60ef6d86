package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/eggbucket/admin-api/internal/health"
	"github.com/eggbucket/admin-api/internal/model"
)

// NewRouter wires the admin API under /api/admin plus the ops endpoints.
func NewRouter(h *Handlers, log zerolog.Logger, origins []string, readiness http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(Recover(log))
	r.Use(Logging(log))
	r.Use(CORS(origins))

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", readiness)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", h.Login)

		r.Get("/user-info", h.ListCustomers)
		r.Get("/customer-info/{id}", h.GetCustomer)
		r.Post("/add-customer", h.AddCustomer)
		r.Post("/customer/update", h.UpdateCustomer)
		r.Post("/customer/delete", h.DeleteCustomer)
		r.Post("/customer/status", h.UpdateCustomerMeta)
		r.Post("/customer/reset-all", h.ResetAll)

		r.Get("/customer/deliveries/{id}", h.CustomerDeliveries)
		r.Get("/all-deliveries", h.AllDeliveries)
		r.Get("/all-deliveries-range", h.AllDeliveriesRange)
		r.Get("/customer-map-status", h.CustomerMapStatus)
		r.Get("/analytics/last7", h.AnalyticsLast7)

		r.Post("/add-del-partner", h.addPerson(model.RoleDelivery, labelDelivery))
		r.Post("/add-sales-partner", h.addPerson(model.RoleSales, labelSales))
		r.Get("/get-del-partner", h.listPersons(model.RoleDelivery))
		r.Get("/get-sales-partner", h.listPersons(model.RoleSales))
		r.Post("/update-del-partner", h.updatePerson(model.RoleDelivery, labelDelivery))
		r.Post("/update-sales-partner", h.updatePerson(model.RoleSales, labelSales))
		r.Post("/delete-del-partner", h.deletePerson(model.RoleDelivery, labelDelivery))
		r.Post("/delete-sales-partner", h.deletePerson(model.RoleSales, labelSales))
		r.Patch("/toggle-delivery/{id}", h.togglePerson(model.RoleDelivery, labelDelivery))
		r.Patch("/toggle-sales/{id}", h.togglePerson(model.RoleSales, labelSales))

		r.Get("/zones", h.ListZones)
		r.Post("/zones/add", h.AddZone)
	})

	return r
}
