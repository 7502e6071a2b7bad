package subscriptions

import (
	"context"
	"log"
	"time"

	"github.com/dsirine/StretchShop/internal/domain"
)

// ConfirmAgreement finalizes a billing agreement after the buyer approved it
// at the gateway. The subscription is located by the approval token captured
// when the agreement was created; an empty token never reaches the lookup.
func (s *Service) ConfirmAgreement(ctx context.Context, caller domain.Caller, token string) domain.RedirectResult {
	failure := domain.RedirectResult{Redirect: s.cfg.URLPathPrefix}

	if token == "" {
		log.Printf("subscriptions.ConfirmAgreement - caller %s returned without a token", caller)
		failure.Response = "error - missing token in url"
		return failure
	}

	sub, err := s.subs.FindSubscriptionByToken(ctx, token, caller)
	if err != nil {
		log.Printf("subscriptions.ConfirmAgreement - subscription for token %s: %v", token, err)
		failure.Response = "error - billing agreement problem"
		return failure
	}

	if !domain.CanSubscriptionTransitionTo(sub.Status, domain.SubscriptionStatusAgreed) {
		log.Printf("subscriptions.ConfirmAgreement - subscription %s in status %s: %v",
			sub.ID, sub.Status, domain.ErrIllegalSubscriptionTransition)
		failure.Response = "error - billing agreement problem"
		return failure
	}

	agreement, err := s.gw.ExecuteBillingAgreement(ctx, token)
	if err != nil {
		log.Printf("subscriptions.ConfirmAgreement - execute agreement for token %s: %v", token, err)
		failure.Response = "error - billing agreement problem"
		return failure
	}

	now := time.Now()
	sub.Status = domain.SubscriptionStatusAgreed
	sub.AgreementID = agreement.ID
	sub.Agreement = agreement.Raw
	sub.AppendHistory(domain.HistoryActionAgreed, domain.HistoryActorUser, map[string]any{
		"agreement_id": agreement.ID,
		"state":        agreement.State,
	})
	if err := s.subs.SaveSubscription(ctx, sub); err != nil {
		log.Printf("subscriptions.ConfirmAgreement - persist subscription %s: %v", sub.ID, err)
		failure.Response = err.Error()
		return failure
	}
	s.notifier.EntityChanged(ctx, "updated", "subscription", sub.ID.String(), sub)

	order, err := s.orders.GetOrderByID(ctx, sub.OrderOriginID, caller)
	if err != nil {
		log.Printf("subscriptions.ConfirmAgreement - origin order %s for subscription %s: %v",
			sub.OrderOriginID, sub.ID, err)
		failure.Response = "error - billing agreement problem"
		return failure
	}

	if ref := order.SubscriptionRefFor(sub.ID); ref != nil {
		ref.Agreed = &now
	}
	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		log.Printf("subscriptions.ConfirmAgreement - persist order %s: %v", order.ID, err)
		failure.Response = err.Error()
		return failure
	}
	s.notifier.EntityChanged(ctx, "updated", "order", order.ID.String(), order)

	return domain.RedirectResult{
		Success:  true,
		Response: agreement,
		Redirect: s.cfg.URLPathPrefix + order.Lang + "/user/orders/" + order.ID.String(),
	}
}

// DeclineAgreement handles the buyer backing out at the gateway. Nothing is
// executed, the subscription stays pending.
func (s *Service) DeclineAgreement(_ context.Context) domain.RedirectResult {
	log.Printf("subscriptions.DeclineAgreement - agreement canceled by buyer")
	return domain.RedirectResult{Redirect: s.cfg.URLPathPrefix + "en/user/orders/"}
}
