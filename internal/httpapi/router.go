package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the service's HTTP surface. The backdirect routes sit
// outside /api/v1 because the payment gateway redirects buyers to them
// directly; the webhook route skips user auth, its authentication is the
// signature verification.
func NewRouter(
	payments *PaymentsHandler,
	subs *SubscriptionsHandler,
	hook *WebhookHandler,
	requestTimeout time.Duration,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(HeaderAuthMiddleware)

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/orders/{order_id}/payment", payments.StartPayment)
			r.Post("/subscriptions/{subscription_id}/suspend", subs.Suspend)
			r.Post("/subscriptions/{subscription_id}/reactivate", subs.Reactivate)
		})

		r.Route("/backdirect/order/paypal", func(r chi.Router) {
			r.Get("/return", payments.Return)
			r.Get("/cancel", payments.Cancel)
		})
	})

	r.Post("/api/v1/webhook/paypal", hook.Receive)

	return r
}
