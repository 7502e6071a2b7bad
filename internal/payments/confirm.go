package payments

import (
	"context"
	"log"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/dsirine/StretchShop/internal/gateway"
)

// ConfirmPayment finalizes a pending payment after the buyer returned from
// the gateway. The order is located by the payment request id stored at
// checkout; zero or multiple matches are a hard failure. The charged amount
// is recomputed from current item prices, still excluding subscriptions.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID, payerID string) domain.RedirectResult {
	failure := domain.RedirectResult{Redirect: s.cfg.URLPathPrefix}

	orders, err := s.orders.FindOrdersByPaymentRequestID(ctx, paymentID)
	if err != nil {
		log.Printf("payments.ConfirmPayment - find order for payment %s: %v", paymentID, err)
		failure.Response = "find order error"
		return failure
	}
	if len(orders) != 1 {
		log.Printf("payments.ConfirmPayment - payment %s matches %d orders, exactly one required: %v",
			paymentID, len(orders), ErrAmbiguousOrder)
		failure.Response = "find order error"
		return failure
	}
	order := orders[0]

	amount := order.Prices.PriceTotal - s.subscriptionsTotalByCurrentPrice(order)
	resp, err := s.gw.ExecutePayment(ctx, paymentID, payerID, gateway.Amount{
		Currency: order.Prices.Currency.Code,
		Total:    domain.FormatPrice(amount),
	})
	if err != nil {
		// The order is deliberately left unmodified. If the gateway charged
		// before erroring, operators must reconcile via the gateway dashboard.
		log.Printf("payments.ConfirmPayment - execute payment %s: %v", paymentID, err)
		failure.Response = "payment execute error"
		return failure
	}

	if err := domain.ApplyPaymentResponse(order, toDomainResponse(resp)); err != nil {
		log.Printf("payments.ConfirmPayment - order %s in status %s: %v", order.ID, order.Status, err)
		failure.Response = "payment execute error"
		return failure
	}

	inv, err := s.invoices.Generate(ctx, order)
	if err != nil {
		log.Printf("payments.ConfirmPayment - generate invoice for order %s: %v", order.ID, err)
		failure.Response = "payment execute error"
		return failure
	}
	order.Invoice = inv

	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		log.Printf("payments.ConfirmPayment - persist order %s: %v", order.ID, err)
		failure.Response = "payment execute error"
		return failure
	}
	s.notifier.EntityChanged(ctx, "updated", "order", order.ID.String(), order)

	if order.Prices.PriceTotalToPay == 0 {
		s.postPaid.OrderPaid(ctx, order)
	}

	return domain.RedirectResult{
		Success:  true,
		Response: resp,
		Redirect: s.cfg.URLPathPrefix + order.Lang + "/user/orders/" + order.ID.String(),
	}
}

// DeclinePayment handles the buyer backing out at the gateway: no gateway
// call is made, the order stays as it was.
func (s *Service) DeclinePayment(_ context.Context) domain.RedirectResult {
	log.Printf("payments.DeclinePayment - payment canceled by buyer")
	return domain.RedirectResult{Redirect: s.cfg.URLPathPrefix + "en/user/orders/"}
}

// subscriptionsTotalByCurrentPrice sums subscription item prices as they are
// now; prices may have changed between checkout and confirmation.
func (s *Service) subscriptionsTotalByCurrentPrice(order *domain.Order) float64 {
	return order.SubscriptionsTotal()
}

func toDomainResponse(p *gateway.Payment) domain.GatewayResponse {
	resp := domain.GatewayResponse{ID: p.ID, State: p.State}
	for _, tx := range p.Transactions {
		resp.Transactions = append(resp.Transactions, domain.GatewayTransaction{
			Amount: domain.GatewayAmount{
				Currency: tx.Amount.Currency,
				Total:    tx.Amount.Total,
			},
		})
	}
	return resp
}
