package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/google/uuid"
)

const subscriptionColumns = `id, user_id, order_origin_id, product_id, order_item_name,
	period, duration, cycles, price, tax, status, token, agreement_id, agreement,
	billing_plan_id, history, date_start, date_order_next, date_stopped, created_at, updated_at`

func (r *Repository) GetSubscriptionByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE id = $1`, subscriptionColumns)
	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query subscription by id: %w", err)
	}
	return sub, nil
}

// FindFirstPendingByOrder returns the oldest not-yet-agreed subscription of an
// order. Subscriptions of one order are processed one at a time, in creation
// order.
func (r *Repository) FindFirstPendingByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Subscription, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM subscriptions WHERE order_origin_id = $1 AND status = $2
		 ORDER BY created_at ASC LIMIT 1`, subscriptionColumns)

	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, orderID, domain.SubscriptionStatusPending))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query pending subscription by order: %w", err)
	}
	return sub, nil
}

func (r *Repository) FindSubscriptionByToken(ctx context.Context, token string, caller domain.Caller) (*domain.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE token = $1`, subscriptionColumns)
	args := []any{token}
	query, args = scopeByCaller(query, args, caller, "user_id")

	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query subscription by token: %w", err)
	}
	return sub, nil
}

func (r *Repository) FindSubscriptionsByAgreementID(ctx context.Context, agreementID string) ([]*domain.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE agreement_id = $1`, subscriptionColumns)

	rows, err := r.db.QueryContext(ctx, query, agreementID)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions by agreement id: %w", err)
	}
	defer rows.Close()

	var subs []*domain.Subscription
	for rows.Next() {
		sub, scanErr := scanSubscription(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan subscription: %w", scanErr)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// FindPlanIDForProduct looks for any subscription of the same product that
// already recorded a gateway billing plan. Reusing it keeps the provider at
// one active plan per product.
func (r *Repository) FindPlanIDForProduct(ctx context.Context, productID string) (string, error) {
	query := `SELECT billing_plan_id FROM subscriptions
	          WHERE product_id = $1 AND billing_plan_id <> '' LIMIT 1`

	var planID string
	err := r.db.QueryRowContext(ctx, query, productID).Scan(&planID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSubscriptionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query billing plan for product: %w", err)
	}
	return planID, nil
}

func (r *Repository) SaveSubscription(ctx context.Context, sub *domain.Subscription) error {
	history, err := json.Marshal(sub.History)
	if err != nil {
		return fmt.Errorf("marshal subscription history: %w", err)
	}
	agreement := []byte(sub.Agreement)
	if agreement == nil {
		agreement = []byte("null")
	}

	query := `INSERT INTO subscriptions (id, user_id, order_origin_id, product_id, order_item_name,
	            period, duration, cycles, price, tax, status, token, agreement_id, agreement,
	            billing_plan_id, history, date_start, date_order_next, date_stopped, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW())
	          ON CONFLICT (id) DO UPDATE SET
	            status = EXCLUDED.status,
	            token = EXCLUDED.token,
	            agreement_id = EXCLUDED.agreement_id,
	            agreement = EXCLUDED.agreement,
	            billing_plan_id = EXCLUDED.billing_plan_id,
	            history = EXCLUDED.history,
	            date_order_next = EXCLUDED.date_order_next,
	            date_stopped = EXCLUDED.date_stopped,
	            updated_at = NOW()`

	_, execErr := r.db.ExecContext(ctx, query,
		sub.ID,
		sub.UserID,
		sub.OrderOriginID,
		sub.ProductID,
		sub.OrderItemName,
		sub.Period,
		sub.Duration,
		sub.Cycles,
		sub.Price,
		sub.Tax,
		sub.Status,
		sub.Token,
		sub.AgreementID,
		agreement,
		sub.BillingPlanID,
		history,
		sub.DateStart,
		sub.DateOrderNext,
		sub.DateStopped)
	if execErr != nil {
		return fmt.Errorf("save subscription: %w", execErr)
	}
	return nil
}

// CreatePaidSubscriptionOrder creates a fresh order covering one billing cycle
// of the subscription. Every recurring charge after the first is fulfilled as
// its own order while the subscription record persists across cycles.
func (r *Repository) CreatePaidSubscriptionOrder(ctx context.Context, sub *domain.Subscription) (*domain.Order, *domain.Subscription, error) {
	origin, err := r.GetOrderByID(ctx, sub.OrderOriginID, domain.Caller{Admin: true})
	if err != nil {
		return nil, nil, fmt.Errorf("load origin order: %w", err)
	}

	now := time.Now()
	order := &domain.Order{
		ID:     uuid.New(),
		UserID: sub.UserID,
		Lang:   origin.Lang,
		Status: domain.OrderStatusPending,
		Items: []domain.OrderItem{{
			ProductID: sub.ProductID,
			Type:      domain.ItemTypeSubscription,
			Name:      domain.LocalizedName{origin.Lang: sub.OrderItemName},
			Price:     sub.Price,
			Amount:    1,
		}},
		Prices: domain.Prices{
			Currency:        origin.Prices.Currency,
			PriceTotal:      sub.Price,
			PriceTotalToPay: sub.Price,
		},
		PaymentData: domain.PaymentData{
			Codename: origin.PaymentData.Codename,
			Name:     origin.PaymentData.Name,
		},
		InvoiceAddress: origin.InvoiceAddress,
		Subscriptions: []domain.SubscriptionRef{
			{SubscriptionID: sub.ID, Agreed: &now},
		},
		CreatedAt: now,
	}

	if err := r.CreateOrder(ctx, order); err != nil {
		return nil, nil, err
	}
	return order, sub, nil
}

func scanSubscription(row rowScanner) (*domain.Subscription, error) {
	var sub domain.Subscription
	var history, agreement []byte

	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.OrderOriginID,
		&sub.ProductID,
		&sub.OrderItemName,
		&sub.Period,
		&sub.Duration,
		&sub.Cycles,
		&sub.Price,
		&sub.Tax,
		&sub.Status,
		&sub.Token,
		&sub.AgreementID,
		&agreement,
		&sub.BillingPlanID,
		&history,
		&sub.DateStart,
		&sub.DateOrderNext,
		&sub.DateStopped,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(history) > 0 {
		if err := json.Unmarshal(history, &sub.History); err != nil {
			return nil, fmt.Errorf("unmarshal subscription history: %w", err)
		}
	}
	if len(agreement) > 0 && string(agreement) != "null" {
		sub.Agreement = json.RawMessage(agreement)
	}

	return &sub, nil
}
