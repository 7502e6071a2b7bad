package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PaymentFlows is the part of the order payment orchestrator the HTTP layer
// drives.
type PaymentFlows interface {
	GetPaymentURL(ctx context.Context, caller domain.Caller, orderID uuid.UUID) domain.URLResult
	ConfirmPayment(ctx context.Context, paymentID, payerID string) domain.RedirectResult
	DeclinePayment(ctx context.Context) domain.RedirectResult
}

// AgreementFlows is the part of the subscription orchestrator the gateway
// backdirect drives.
type AgreementFlows interface {
	ConfirmAgreement(ctx context.Context, caller domain.Caller, token string) domain.RedirectResult
	DeclineAgreement(ctx context.Context) domain.RedirectResult
}

type PaymentsHandler struct {
	payments   PaymentFlows
	agreements AgreementFlows
	timeout    time.Duration
}

func NewPaymentsHandler(payments PaymentFlows, agreements AgreementFlows, timeout time.Duration) *PaymentsHandler {
	return &PaymentsHandler{
		payments:   payments,
		agreements: agreements,
		timeout:    timeout,
	}
}

// POST /api/v1/orders/{order_id}/payment
func (h *PaymentsHandler) StartPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller := callerFromContext(r.Context())
	if caller.UserID == "" && !caller.Admin {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	result := h.payments.GetPaymentURL(ctx, caller, orderID)
	if !result.Success {
		respondJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GET /backdirect/order/paypal/return
//
// The gateway sends the buyer back with either one-time payment parameters
// (paymentId, PayerID) or billing agreement parameters (token, ba_token); the
// parameter set decides which flow finishes.
func (h *PaymentsHandler) Return(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	var result domain.RedirectResult

	switch {
	case q.Get("paymentId") != "" && q.Get("PayerID") != "":
		result = h.payments.ConfirmPayment(ctx, q.Get("paymentId"), q.Get("PayerID"))
	case q.Get("ba_token") != "":
		result = h.agreements.ConfirmAgreement(ctx, callerFromContext(r.Context()), q.Get("token"))
	default:
		respondError(w, http.StatusBadRequest, "invalid_backdirect", "unrecognized return parameters")
		return
	}

	http.Redirect(w, r, result.Redirect, http.StatusFound)
}

// GET /backdirect/order/paypal/cancel
func (h *PaymentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var result domain.RedirectResult
	if r.URL.Query().Get("ba_token") != "" {
		result = h.agreements.DeclineAgreement(ctx)
	} else {
		result = h.payments.DeclinePayment(ctx)
	}

	http.Redirect(w, r, result.Redirect, http.StatusFound)
}
