package subscriptions

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dsirine/StretchShop/internal/domain"
)

// CancelFromWebhook marks the subscription canceled after the gateway
// confirmed the agreement is gone. Safe to replay: a subscription that is
// already canceled is left untouched.
func (s *Service) CancelFromWebhook(ctx context.Context, sub *domain.Subscription, reason string) error {
	if sub.Status == domain.SubscriptionStatusCanceled {
		log.Printf("subscriptions.CancelFromWebhook - subscription %s already canceled", sub.ID)
		return nil
	}
	if !domain.CanSubscriptionTransitionTo(sub.Status, domain.SubscriptionStatusCanceled) {
		return fmt.Errorf("subscription %s in status %s: %w",
			sub.ID, sub.Status, domain.ErrIllegalSubscriptionTransition)
	}

	now := time.Now()
	sub.Status = domain.SubscriptionStatusCanceled
	sub.DateStopped = &now
	sub.AppendHistory(domain.HistoryActionCanceled, domain.HistoryActorWebhook, map[string]any{
		"reason": reason,
	})

	if err := s.subs.SaveSubscription(ctx, sub); err != nil {
		return fmt.Errorf("persist subscription %s: %w", sub.ID, err)
	}
	s.notifier.EntityChanged(ctx, "updated", "subscription", sub.ID.String(), sub)
	return nil
}
