package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/dsirine/StretchShop/internal/gateway"
	"github.com/dsirine/StretchShop/internal/plancache"
)

// ensureBillingPlan returns an active billing plan id for the subscription's
// product, creating one only as a last resort. Lookup order: redis cache,
// then other subscriptions of the same product that already carry a plan,
// then a create+activate round trip against the gateway. A concurrent miss
// can create a duplicate plan; both stay usable and the cache converges on
// the last writer.
func (s *Service) ensureBillingPlan(ctx context.Context, sub *domain.Subscription, order *domain.Order) (string, error) {
	if planID, err := s.plans.Get(ctx, sub.ProductID); err == nil {
		return planID, nil
	} else if !errors.Is(err, plancache.ErrCacheMiss) {
		log.Printf("subscriptions.ensureBillingPlan - cache lookup for product %s: %v", sub.ProductID, err)
	}

	if planID, err := s.subs.FindPlanIDForProduct(ctx, sub.ProductID); err == nil && planID != "" {
		s.cachePlan(ctx, sub.ProductID, planID)
		return planID, nil
	}

	plan, err := s.gw.CreateBillingPlan(ctx, s.planSpecFor(sub, order))
	if err != nil {
		return "", err
	}

	s.cachePlan(ctx, sub.ProductID, plan.ID)
	return plan.ID, nil
}

func (s *Service) cachePlan(ctx context.Context, productID, planID string) {
	if err := s.plans.Set(ctx, productID, planID); err != nil {
		log.Printf("subscriptions.cachePlan - cache plan %s for product %s: %v", planID, productID, err)
	}
}

// planSpecFor maps a subscription to the gateway's billing plan shape. Zero
// cycles means the plan charges forever; any positive count makes it fixed.
func (s *Service) planSpecFor(sub *domain.Subscription, order *domain.Order) gateway.BillingPlanSpec {
	planType := gateway.PlanTypeInfinite
	cycles := "0"
	if sub.Cycles > 0 {
		planType = gateway.PlanTypeFixed
		cycles = strconv.Itoa(sub.Cycles)
	}

	currency := order.Prices.Currency.Code
	name := planName(sub)

	definition := gateway.PaymentDefinition{
		Name:              "Regular",
		Type:              "REGULAR",
		Frequency:         strings.ToUpper(string(sub.Period)),
		FrequencyInterval: strconv.Itoa(sub.Duration),
		Cycles:            cycles,
		Amount: gateway.Amount{
			Currency: currency,
			Total:    domain.FormatPrice(sub.Price),
		},
		ChargeModels: []gateway.ChargeModel{
			{
				Type: "TAX",
				Amount: gateway.Amount{
					Currency: currency,
					Total:    domain.FormatPrice(sub.Tax),
				},
			},
		},
	}

	return gateway.BillingPlanSpec{
		Name:        name,
		Description: name + " by " + s.cfg.SiteURL,
		Type:        planType,
		MerchantPreferences: gateway.MerchantPreferences{
			AutoBillAmount:          "yes",
			CancelURL:               s.cfg.SiteURL + "/backdirect/order/paypal/cancel",
			ReturnURL:               s.cfg.SiteURL + "/backdirect/order/paypal/return",
			InitialFailAmountAction: "CONTINUE",
			MaxFailAttempts:         "0",
			SetupFee: gateway.Amount{
				Currency: currency,
				Total:    domain.FormatPrice(0),
			},
		},
		PaymentDefinitions: []gateway.PaymentDefinition{definition},
	}
}

// agreementSpec maps a subscription to the gateway's billing agreement shape.
// The start date is the next charge date, never the past; the first cycle is
// already covered by the agreement itself.
func (s *Service) agreementSpec(sub *domain.Subscription, order *domain.Order, planID string) gateway.AgreementSpec {
	start := sub.DateOrderNext
	if start.Before(time.Now()) {
		start = domain.NextOrderDate(sub.Period, sub.Duration, time.Now())
	}

	name := planName(sub)

	return gateway.AgreementSpec{
		Name:        name,
		Description: name + " by " + s.cfg.SiteURL,
		StartDate:   start.UTC().Format(time.RFC3339),
		Plan:        gateway.PlanRef{ID: planID},
		Payer:       gateway.Payer{PaymentMethod: "paypal"},
		ShippingAddress: gateway.ShippingAddress{
			Line1:       stripDiacritics(order.InvoiceAddress.Street),
			City:        stripDiacritics(order.InvoiceAddress.City),
			PostalCode:  order.InvoiceAddress.Zip,
			CountryCode: strings.ToUpper(order.InvoiceAddress.Country),
		},
	}
}

// planName builds the human-readable plan and agreement title. The gateway
// rejects names with non-ASCII letters, so accents are stripped first.
func planName(sub *domain.Subscription) string {
	return fmt.Sprintf("%s - %s (every %d %s)",
		stripDiacritics(sub.OrderItemName),
		domain.FormatPrice(sub.Price),
		sub.Duration,
		sub.Period,
	)
}
