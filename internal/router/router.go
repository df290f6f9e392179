package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"repairshop/internal/handler"
	"repairshop/internal/metrics"
	"repairshop/internal/middleware"
	"repairshop/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Orders   *handler.OrderHandler
	Intents  *handler.IntentHandler
	Checkout *handler.CheckoutHandler
	Admin    *handler.AdminOrderHandler
	Webhooks *handler.WebhookHandler
}

// Options carries the credentials and observability hooks for the router.
type Options struct {
	APIKey      string
	StaffSecret string
	StaffIssuer string
	// ReadyChecks are run by /health/ready; any error reports unavailable.
	ReadyChecks map[string]func(ctx context.Context) error
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery -> RequestID -> Logging -> CORS
	r.Use(
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.Logging(logger, opts.HTTPMetrics),
		middleware.CORS,
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, model.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Health check endpoints (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Get("/health/ready", readiness(opts.ReadyChecks, logger))

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	// Gateway callbacks authenticate with their own signature.
	r.Post("/api/webhooks/stripe", h.Webhooks.Stripe)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(opts.APIKey, logger))

		r.Get("/api/orders/{id}", h.Orders.GetByID)

		r.Route("/api/checkout", func(r chi.Router) {
			r.Post("/intents", h.Intents.Create)
			r.Post("/orders/{id}/confirm", h.Intents.Confirm)
			r.Post("/orders/{id}/confirmation", h.Intents.Confirmation)

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", h.Checkout.Start)
				r.Get("/{id}", h.Checkout.Get)
				r.Put("/{id}/routing", h.Checkout.SetRouting)
				r.Put("/{id}/address", h.Checkout.SetAddress)
				r.Post("/{id}/submit", h.Checkout.Submit)
				r.Post("/{id}/confirm", h.Checkout.Confirm)
				r.Post("/{id}/back", h.Checkout.Back)
			})
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.StaffAuth(opts.StaffSecret, opts.StaffIssuer, logger))

		r.Get("/orders", h.Admin.List)
		r.Patch("/orders/{id}/status", h.Admin.UpdateStatus)
		r.Post("/orders/{id}/shipping-label", h.Admin.IssueShippingLabel)
	})

	return r
}

func readiness(checks map[string]func(ctx context.Context) error, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		results := make(map[string]string, len(checks))
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn().Err(err).Str("check", name).Msg("readiness check failed")
				results[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": results})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}
