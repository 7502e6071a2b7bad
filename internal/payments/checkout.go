package payments

import (
	"context"
	"log"
	"strings"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/dsirine/StretchShop/internal/gateway"
)

// Checkout submits a one-time payment for the order's non-subscription items
// and returns the buyer approval URL. Subscription items are left out; they
// are billed separately once the buyer confirms their agreements. On gateway
// failure the order stays untouched so the caller can simply retry.
func (s *Service) Checkout(ctx context.Context, order *domain.Order) domain.URLResult {
	amount := order.Prices.PriceTotal - order.SubscriptionsTotal()

	req := gateway.PaymentRequest{
		Intent: "sale",
		Payer: gateway.Payer{
			PaymentMethod: strings.TrimPrefix(order.PaymentData.Codename, "online_paypal_"),
		},
		RedirectURLs: gateway.RedirectURLs{
			ReturnURL: s.cfg.SiteURL + "/backdirect/order/paypal/return",
			CancelURL: s.cfg.SiteURL + "/backdirect/order/paypal/cancel",
		},
		Transactions: []gateway.Transaction{{
			ItemList: &gateway.ItemList{Items: s.buildLineItems(order)},
			Amount: gateway.Amount{
				Currency: order.Prices.Currency.Code,
				Total:    domain.FormatPrice(amount),
			},
			SoftDescriptor: softDescriptor(s.cfg.SiteName),
		}},
	}

	payment, err := s.gw.CreatePayment(ctx, req)
	if err != nil {
		log.Printf("payments.Checkout - create payment for order %s: %v", order.ID, err)
		return domain.URLResult{Message: err.Error()}
	}

	if !domain.CanOrderTransitionTo(order.Status, domain.OrderStatusPending) {
		log.Printf("payments.Checkout - order %s in status %s cannot request payment", order.ID, order.Status)
		return domain.URLResult{Message: "error - order cannot be paid"}
	}
	order.Status = domain.OrderStatusPending
	order.PaymentData.PaymentRequestID = payment.ID

	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		log.Printf("payments.Checkout - persist order %s: %v", order.ID, err)
		return domain.URLResult{Message: err.Error()}
	}
	s.notifier.EntityChanged(ctx, "updated", "order", order.ID.String(), order)

	url, ok := payment.ApprovalURL()
	if !ok {
		log.Printf("payments.Checkout - payment %s carries no approval url", payment.ID)
		return domain.URLResult{Message: "error - missing approval url"}
	}
	return domain.URLResult{Success: true, URL: url, Message: "redirect to payment"}
}

// buildLineItems lists everything charged now: non-subscription items, the
// payment surcharge and the delivery fee.
func (s *Service) buildLineItems(order *domain.Order) []gateway.Item {
	currency := order.Prices.Currency.Code
	items := make([]gateway.Item, 0, len(order.Items)+2)

	for _, item := range order.Items {
		switch item.Type {
		case domain.ItemTypeSubscription:
			continue
		case domain.ItemTypeProduct, domain.ItemTypeDigital:
		}
		items = append(items, gateway.Item{
			Name:     item.Name.In(order.Lang),
			SKU:      item.OrderCode,
			Price:    domain.FormatPrice(item.Price),
			Currency: currency,
			Quantity: item.Amount,
		})
	}

	paymentName := order.PaymentData.Name.In(order.Lang)
	items = append(items, gateway.Item{
		Name:     paymentName,
		SKU:      paymentName,
		Price:    domain.FormatPrice(order.Prices.PricePayment),
		Currency: currency,
		Quantity: 1,
	})

	deliveryName := "Delivery - " + order.DeliveryData.CodenamePhysical + order.DeliveryData.CodenameDigital
	items = append(items, gateway.Item{
		Name:     deliveryName,
		SKU:      deliveryName,
		Price:    domain.FormatPrice(order.Prices.PriceDelivery),
		Currency: currency,
		Quantity: 1,
	})

	return items
}

// softDescriptor truncates to the gateway's 22 character statement limit.
func softDescriptor(name string) string {
	if len(name) > 22 {
		return name[:22]
	}
	return name
}
