package domain

import (
	"strconv"
	"time"
)

// ApplyPaymentResponse records a gateway payment response on the order and
// recomputes the paid totals. The paid amount is derived from the whole
// response history, counting only approved responses, so replaying an already
// recorded response never inflates it.
func ApplyPaymentResponse(o *Order, resp GatewayResponse) error {
	if !CanOrderTransitionTo(o.Status, OrderStatusPaid) {
		return ErrIllegalOrderTransition
	}

	now := time.Now()
	o.Status = OrderStatusPaid
	o.DatePaid = &now
	o.PaymentData.LastStatus = resp.State
	o.PaymentData.LastDate = &now

	if !hasResponse(o.PaymentData.LastResponses, resp.ID) {
		o.PaymentData.LastResponses = append(o.PaymentData.LastResponses, resp)
	}

	RecalculatePaidAmounts(o)
	return nil
}

// ApplySubscriptionPayment records a recurring charge against the order.
// Subscription charges arrive via webhook without a one-time payment response,
// so a minimal approved record carrying the charged amount is stored instead.
func ApplySubscriptionPayment(o *Order, chargeID string, amount float64) error {
	resp := GatewayResponse{
		ID:    chargeID,
		State: "approved",
		Transactions: []GatewayTransaction{
			{Amount: GatewayAmount{Currency: o.Prices.Currency.Code, Total: FormatPrice(amount)}},
		},
	}
	return ApplyPaymentResponse(o, resp)
}

// RecalculatePaidAmounts recomputes paidAmountTotal from the stored response
// history and derives the remaining amount to pay.
func RecalculatePaidAmounts(o *Order) {
	var paid float64
	for _, r := range o.PaymentData.LastResponses {
		if r.State != "approved" {
			continue
		}
		for _, tx := range r.Transactions {
			if tx.Amount.Total == "" {
				continue
			}
			v, err := strconv.ParseFloat(tx.Amount.Total, 64)
			if err != nil {
				continue
			}
			paid += v
		}
	}
	o.PaymentData.PaidAmountTotal = paid
	o.Prices.PriceTotalToPay = o.Prices.PriceTotal - paid
}

func hasResponse(responses []GatewayResponse, id string) bool {
	if id == "" {
		return false
	}
	for _, r := range responses {
		if r.ID == id {
			return true
		}
	}
	return false
}
