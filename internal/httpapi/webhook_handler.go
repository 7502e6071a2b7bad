package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/dsirine/StretchShop/internal/gateway"
	"github.com/dsirine/StretchShop/internal/webhook"
)

const maxWebhookBody = 1 << 20 // 1MB

type WebhookDispatcher interface {
	Dispatch(ctx context.Context, sig gateway.WebhookSignature, body json.RawMessage) error
}

type WebhookHandler struct {
	dispatcher WebhookDispatcher
	timeout    time.Duration
}

func NewWebhookHandler(dispatcher WebhookDispatcher, timeout time.Duration) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, timeout: timeout}
}

// POST /api/v1/webhook/paypal
//
// Responds 200 for handled and for deliberately dropped events, 400 for
// deliveries that fail verification, and 500 when handling failed so the
// provider retries the delivery.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "failed to read webhook body")
		return
	}

	sig := gateway.WebhookSignature{
		AuthAlgo:         r.Header.Get("Paypal-Auth-Algo"),
		CertURL:          r.Header.Get("Paypal-Cert-Url"),
		TransmissionID:   r.Header.Get("Paypal-Transmission-Id"),
		TransmissionSig:  r.Header.Get("Paypal-Transmission-Sig"),
		TransmissionTime: r.Header.Get("Paypal-Transmission-Time"),
	}

	if err := h.dispatcher.Dispatch(ctx, sig, body); err != nil {
		if errors.Is(err, webhook.ErrUnverified) {
			respondError(w, http.StatusBadRequest, "unverified_webhook", "signature verification failed")
			return
		}
		log.Printf("webhook handler - dispatch failed: %v", err)
		respondError(w, http.StatusInternalServerError, "webhook_failed", "event handling failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
