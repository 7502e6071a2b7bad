package subscriptions

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dsirine/StretchShop/internal/domain"
)

// PaymentReceived books one recurring charge reported by the gateway. The
// first charge of a subscription settles the origin order; every later one is
// fulfilled as a fresh single-cycle order. History count, not dates, decides
// which case this is, so a replayed webhook delivery lands in the dedupe of
// the order's response history instead of creating another order.
func (s *Service) PaymentReceived(ctx context.Context, sub *domain.Subscription, chargeID string, amount float64) error {
	var (
		order *domain.Order
		err   error
	)

	if sub.PaidCount() == 0 {
		order, err = s.orders.GetOrderByID(ctx, sub.OrderOriginID, domain.Caller{Admin: true})
		if err != nil {
			return fmt.Errorf("load origin order %s: %w", sub.OrderOriginID, err)
		}
	} else {
		order, sub, err = s.subs.CreatePaidSubscriptionOrder(ctx, sub)
		if err != nil {
			return fmt.Errorf("create cycle order for subscription %s: %w", sub.ID, err)
		}
	}

	if err := domain.ApplySubscriptionPayment(order, chargeID, amount); err != nil {
		return fmt.Errorf("record charge %s on order %s: %w", chargeID, order.ID, err)
	}

	return s.afterPaidOrderActions(ctx, order, sub, chargeID, amount)
}

// afterPaidOrderActions finalizes the order the charge settled and advances
// the subscription one cycle.
func (s *Service) afterPaidOrderActions(ctx context.Context, order *domain.Order, sub *domain.Subscription, chargeID string, amount float64) error {
	now := time.Now()

	inv, err := s.invoices.Generate(ctx, order)
	if err != nil {
		log.Printf("subscriptions.afterPaidOrderActions - generate invoice for order %s: %v", order.ID, err)
	} else {
		order.Invoice = inv
	}

	order.MarkSubscriptionItemPaid(sub.ProductID, now)
	if ref := order.SubscriptionRefFor(sub.ID); ref != nil {
		ref.Paid = &now
	}
	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		return fmt.Errorf("persist order %s: %w", order.ID, err)
	}
	s.notifier.EntityChanged(ctx, "updated", "order", order.ID.String(), order)

	if order.Prices.PriceTotalToPay == 0 {
		s.postPaid.OrderPaid(ctx, order)
	}

	if !domain.CanSubscriptionTransitionTo(sub.Status, domain.SubscriptionStatusActive) {
		return fmt.Errorf("subscription %s in status %s: %w",
			sub.ID, sub.Status, domain.ErrIllegalSubscriptionTransition)
	}

	sub.AppendHistory(domain.HistoryActionPaid, domain.HistoryActorWebhook, map[string]any{
		"charge_id": chargeID,
		"amount":    amount,
		"order_id":  order.ID.String(),
	})

	next := s.nextChargeDate(sub, now)
	sub.AppendHistory(domain.HistoryActionNextOrderDate, domain.HistoryActorWebhook, map[string]any{
		"date_order_next": next.Format(time.RFC3339),
	})
	sub.DateOrderNext = next
	sub.Status = domain.SubscriptionStatusActive

	if err := s.subs.SaveSubscription(ctx, sub); err != nil {
		return fmt.Errorf("persist subscription %s: %w", sub.ID, err)
	}
	s.notifier.EntityChanged(ctx, "updated", "subscription", sub.ID.String(), sub)
	return nil
}

// nextChargeDate steps period by period from the subscription's start until
// the date is in the future. Stepping from the start keeps the cadence
// anchored there even when webhook deliveries arrive late.
func (s *Service) nextChargeDate(sub *domain.Subscription, now time.Time) time.Time {
	next := sub.DateStart
	if next.IsZero() {
		next = now
	}
	for !next.After(now) {
		next = domain.NextOrderDate(sub.Period, sub.Duration, next)
	}
	return next
}
