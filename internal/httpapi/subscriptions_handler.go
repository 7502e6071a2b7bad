package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/dsirine/StretchShop/internal/subscriptions"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AgreementManager suspends and resumes recurring billing agreements.
type AgreementManager interface {
	SuspendAgreement(ctx context.Context, caller domain.Caller, subscriptionID uuid.UUID) *subscriptions.Ack
	ReactivateAgreement(ctx context.Context, caller domain.Caller, subscriptionID uuid.UUID) *subscriptions.Ack
}

type SubscriptionsHandler struct {
	manager AgreementManager
	timeout time.Duration
}

func NewSubscriptionsHandler(manager AgreementManager, timeout time.Duration) *SubscriptionsHandler {
	return &SubscriptionsHandler{manager: manager, timeout: timeout}
}

// POST /api/v1/subscriptions/{subscription_id}/suspend
func (h *SubscriptionsHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.manage(w, r, h.manager.SuspendAgreement)
}

// POST /api/v1/subscriptions/{subscription_id}/reactivate
func (h *SubscriptionsHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.manage(w, r, h.manager.ReactivateAgreement)
}

func (h *SubscriptionsHandler) manage(
	w http.ResponseWriter,
	r *http.Request,
	action func(context.Context, domain.Caller, uuid.UUID) *subscriptions.Ack,
) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller := callerFromContext(r.Context())
	if caller.UserID == "" && !caller.Admin {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	subscriptionID, err := uuid.Parse(chi.URLParam(r, "subscription_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_subscription_id", "subscription_id must be a UUID")
		return
	}

	ack := action(ctx, caller, subscriptionID)
	if ack == nil {
		respondError(w, http.StatusBadGateway, "gateway_refused", "billing gateway refused the request")
		return
	}
	respondJSON(w, http.StatusOK, ack)
}
