package subscriptions

import (
	"context"
	"errors"
	"log"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/google/uuid"
)

const (
	suspendNote    = "User canceled from StretchShop"
	reactivateNote = "User reactivated from StretchShop"
)

// Ack reports a suspend or reactivate request the gateway accepted.
type Ack struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	AgreementID    string    `json:"agreement_id"`
	Note           string    `json:"note"`
}

// SuspendAgreement asks the gateway to stop charging the agreement. The
// subscription status is not touched here: the gateway confirms the
// cancellation through a webhook and that delivery cancels the record, for
// user requests and gateway-side cancellations alike. Returns nil when the
// gateway refused.
func (s *Service) SuspendAgreement(ctx context.Context, caller domain.Caller, subscriptionID uuid.UUID) *Ack {
	sub, err := s.loadForCaller(ctx, caller, subscriptionID)
	if err != nil {
		log.Printf("subscriptions.SuspendAgreement - subscription %s: %v", subscriptionID, err)
		return nil
	}

	if err := s.gw.SuspendAgreement(ctx, sub.AgreementID, suspendNote); err != nil {
		log.Printf("subscriptions.SuspendAgreement - agreement %s: %v", sub.AgreementID, err)
		return nil
	}

	return &Ack{SubscriptionID: sub.ID, AgreementID: sub.AgreementID, Note: suspendNote}
}

// ReactivateAgreement asks the gateway to resume charging a suspended
// agreement. Returns nil when the gateway refused.
func (s *Service) ReactivateAgreement(ctx context.Context, caller domain.Caller, subscriptionID uuid.UUID) *Ack {
	sub, err := s.loadForCaller(ctx, caller, subscriptionID)
	if err != nil {
		log.Printf("subscriptions.ReactivateAgreement - subscription %s: %v", subscriptionID, err)
		return nil
	}

	if err := s.gw.ReactivateAgreement(ctx, sub.AgreementID, reactivateNote); err != nil {
		log.Printf("subscriptions.ReactivateAgreement - agreement %s: %v", sub.AgreementID, err)
		return nil
	}

	return &Ack{SubscriptionID: sub.ID, AgreementID: sub.AgreementID, Note: reactivateNote}
}

var errOwnerMismatch = errors.New("subscription does not belong to caller")

func (s *Service) loadForCaller(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subs.GetSubscriptionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Admin && sub.UserID != caller.UserID {
		return nil, errOwnerMismatch
	}
	return sub, nil
}
