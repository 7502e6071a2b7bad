package gateway

import (
	"context"
	"encoding/json"
	"net/http"
)

type webhookVerifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

// VerifyWebhookSignature asks the provider whether an inbound notification is
// genuine. Callers must not trust a webhook body before this returns true.
func (c *Client) VerifyWebhookSignature(ctx context.Context, sig WebhookSignature, event json.RawMessage) (bool, error) {
	req := webhookVerifyRequest{
		AuthAlgo:         sig.AuthAlgo,
		CertURL:          sig.CertURL,
		TransmissionID:   sig.TransmissionID,
		TransmissionSig:  sig.TransmissionSig,
		TransmissionTime: sig.TransmissionTime,
		WebhookID:        c.cfg.WebhookID,
		WebhookEvent:     event,
	}

	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	err := c.doJSON(ctx, "verify webhook signature", http.MethodPost,
		"/v1/notifications/verify-webhook-signature", req, &out)
	if err != nil {
		return false, err
	}
	return out.VerificationStatus == "SUCCESS", nil
}
