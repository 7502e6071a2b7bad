package gateway

import (
	"context"
	"fmt"
	"net/http"
)

// CreatePayment submits a one-time payment and returns the pending payment
// with its approval redirect link.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	var payment Payment
	err := c.doJSON(ctx, "create payment", http.MethodPost, "/v1/payments/payment", req, &payment)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ExecutePayment finalizes a pending payment after the buyer approved it.
// The amount is sent along so the provider charges current prices, not the
// ones captured at creation time.
func (c *Client) ExecutePayment(ctx context.Context, paymentID, payerID string, amount Amount) (*Payment, error) {
	exec := PaymentExecution{
		PayerID:      payerID,
		Transactions: []Transaction{{Amount: amount}},
	}
	var payment Payment
	path := fmt.Sprintf("/v1/payments/payment/%s/execute", paymentID)
	if err := c.doJSON(ctx, "execute payment", http.MethodPost, path, exec, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}
