package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/dsirine/StretchShop/internal/gateway"
	r "github.com/dsirine/StretchShop/internal/repository"
)

const (
	EventSubscriptionCancelled = "BILLING.SUBSCRIPTION.CANCELLED"
	EventPaymentSaleCompleted  = "PAYMENT.SALE.COMPLETED"
)

var ErrUnverified = errors.New("webhook signature verification failed")

type Verifier interface {
	VerifyWebhookSignature(ctx context.Context, sig gateway.WebhookSignature, event json.RawMessage) (bool, error)
}

// Subscriptions is the slice of the subscription orchestrator webhook
// deliveries drive.
type Subscriptions interface {
	PaymentReceived(ctx context.Context, sub *domain.Subscription, chargeID string, amount float64) error
	CancelFromWebhook(ctx context.Context, sub *domain.Subscription, reason string) error
}

type Dispatcher struct {
	verifier Verifier
	subs     r.SubscriptionRepository
	service  Subscriptions
}

func NewDispatcher(verifier Verifier, subs r.SubscriptionRepository, service Subscriptions) *Dispatcher {
	return &Dispatcher{verifier: verifier, subs: subs, service: service}
}

// event is the envelope every provider notification arrives in. Resource
// carries the event-specific payload.
type event struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID                 string `json:"id"`
		State              string `json:"state"`
		BillingAgreementID string `json:"billing_agreement_id"`
		Amount             struct {
			Total    string `json:"total"`
			Currency string `json:"currency"`
		} `json:"amount"`
	} `json:"resource"`
}

// Dispatch verifies and routes one inbound notification. Unverified
// deliveries are rejected; event types with no handler are acknowledged and
// dropped so the provider stops retrying them.
func (d *Dispatcher) Dispatch(ctx context.Context, sig gateway.WebhookSignature, body json.RawMessage) error {
	ok, err := d.verifier.VerifyWebhookSignature(ctx, sig, body)
	if err != nil {
		return fmt.Errorf("verify webhook: %w", err)
	}
	if !ok {
		log.Printf("webhook.Dispatch - rejected unverified delivery, transmission %s", sig.TransmissionID)
		return ErrUnverified
	}

	var ev event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("parse webhook event: %w", err)
	}

	switch ev.EventType {
	case EventSubscriptionCancelled:
		return d.handleCancelled(ctx, ev)
	case EventPaymentSaleCompleted:
		return d.handleSaleCompleted(ctx, ev)
	default:
		log.Printf("webhook.Dispatch - ignoring event %s of type %s", ev.ID, ev.EventType)
		return nil
	}
}

// handleCancelled cancels the one subscription the agreement belongs to. For
// cancellations the agreement id arrives as the resource id.
func (d *Dispatcher) handleCancelled(ctx context.Context, ev event) error {
	subs, err := d.subs.FindSubscriptionsByAgreementID(ctx, ev.Resource.ID)
	if err != nil {
		return fmt.Errorf("find subscriptions for agreement %s: %w", ev.Resource.ID, err)
	}
	if len(subs) != 1 {
		log.Printf("webhook.handleCancelled - agreement %s matches %d subscriptions, exactly one required, dropping event %s",
			ev.Resource.ID, len(subs), ev.ID)
		return nil
	}
	return d.service.CancelFromWebhook(ctx, subs[0], ev.EventType)
}

// handleSaleCompleted books one recurring charge against its subscription.
func (d *Dispatcher) handleSaleCompleted(ctx context.Context, ev event) error {
	agreementID := ev.Resource.BillingAgreementID
	if agreementID == "" {
		log.Printf("webhook.handleSaleCompleted - sale %s carries no billing agreement, dropping event %s",
			ev.Resource.ID, ev.ID)
		return nil
	}

	subs, err := d.subs.FindSubscriptionsByAgreementID(ctx, agreementID)
	if err != nil {
		return fmt.Errorf("find subscriptions for agreement %s: %w", agreementID, err)
	}
	if len(subs) != 1 {
		log.Printf("webhook.handleSaleCompleted - agreement %s matches %d subscriptions, exactly one required, dropping event %s",
			agreementID, len(subs), ev.ID)
		return nil
	}
	sub := subs[0]

	amount, err := strconv.ParseFloat(ev.Resource.Amount.Total, 64)
	if err != nil {
		return fmt.Errorf("parse sale amount %q: %w", ev.Resource.Amount.Total, err)
	}

	sub.AppendHistory(domain.HistoryActionPayment, domain.HistoryActorWebhook, map[string]any{
		"event_id":  ev.ID,
		"charge_id": ev.Resource.ID,
		"amount":    amount,
		"currency":  ev.Resource.Amount.Currency,
	})

	return d.service.PaymentReceived(ctx, sub, ev.Resource.ID, amount)
}
