package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/google/uuid"
)

const orderColumns = `id, user_id, lang, status, items, prices, payment_data,
	delivery_data, invoice_address, subscriptions, invoice, date_paid, created_at, updated_at`

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID, caller domain.Caller) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
	args := []any{id}
	query, args = scopeByCaller(query, args, caller, "user_id")

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return order, nil
}

func (r *Repository) FindOrdersByPaymentRequestID(ctx context.Context, requestID string) ([]*domain.Order, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM orders WHERE payment_data->>'payment_request_id' = $1`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("query orders by payment request id: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan order: %w", scanErr)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	cols, err := marshalOrder(order)
	if err != nil {
		return err
	}

	query := `INSERT INTO orders (id, user_id, lang, status, items, prices, payment_data,
	            delivery_data, invoice_address, subscriptions, invoice, date_paid, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())`

	_, insertErr := r.db.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.Lang,
		order.Status,
		cols.items,
		cols.prices,
		cols.paymentData,
		cols.deliveryData,
		cols.invoiceAddress,
		cols.subscriptions,
		cols.invoice,
		order.DatePaid)
	if insertErr != nil {
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

func (r *Repository) UpdateOrder(ctx context.Context, order *domain.Order) error {
	cols, err := marshalOrder(order)
	if err != nil {
		return err
	}

	query := `UPDATE orders SET status = $2, items = $3, prices = $4, payment_data = $5,
	            delivery_data = $6, invoice_address = $7, subscriptions = $8, invoice = $9,
	            date_paid = $10, updated_at = NOW()
	          WHERE id = $1`

	res, updErr := r.db.ExecContext(ctx, query,
		order.ID,
		order.Status,
		cols.items,
		cols.prices,
		cols.paymentData,
		cols.deliveryData,
		cols.invoiceAddress,
		cols.subscriptions,
		cols.invoice,
		order.DatePaid)
	if updErr != nil {
		return fmt.Errorf("update order: %w", updErr)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

type orderColumnsJSON struct {
	items          []byte
	prices         []byte
	paymentData    []byte
	deliveryData   []byte
	invoiceAddress []byte
	subscriptions  []byte
	invoice        []byte
}

func marshalOrder(order *domain.Order) (*orderColumnsJSON, error) {
	var cols orderColumnsJSON
	var err error
	if cols.items, err = json.Marshal(order.Items); err != nil {
		return nil, fmt.Errorf("marshal order items: %w", err)
	}
	if cols.prices, err = json.Marshal(order.Prices); err != nil {
		return nil, fmt.Errorf("marshal order prices: %w", err)
	}
	if cols.paymentData, err = json.Marshal(order.PaymentData); err != nil {
		return nil, fmt.Errorf("marshal payment data: %w", err)
	}
	if cols.deliveryData, err = json.Marshal(order.DeliveryData); err != nil {
		return nil, fmt.Errorf("marshal delivery data: %w", err)
	}
	if cols.invoiceAddress, err = json.Marshal(order.InvoiceAddress); err != nil {
		return nil, fmt.Errorf("marshal invoice address: %w", err)
	}
	if cols.subscriptions, err = json.Marshal(order.Subscriptions); err != nil {
		return nil, fmt.Errorf("marshal order subscriptions: %w", err)
	}
	if cols.invoice, err = json.Marshal(order.Invoice); err != nil {
		return nil, fmt.Errorf("marshal order invoice: %w", err)
	}
	return &cols, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var items, prices, paymentData, deliveryData, invoiceAddress, subscriptions, invoice []byte

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Lang,
		&order.Status,
		&items,
		&prices,
		&paymentData,
		&deliveryData,
		&invoiceAddress,
		&subscriptions,
		&invoice,
		&order.DatePaid,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, col := range []struct {
		data []byte
		dst  any
	}{
		{items, &order.Items},
		{prices, &order.Prices},
		{paymentData, &order.PaymentData},
		{deliveryData, &order.DeliveryData},
		{invoiceAddress, &order.InvoiceAddress},
		{subscriptions, &order.Subscriptions},
		{invoice, &order.Invoice},
	} {
		if len(col.data) == 0 {
			continue
		}
		if err := json.Unmarshal(col.data, col.dst); err != nil {
			return nil, fmt.Errorf("unmarshal order column: %w", err)
		}
	}

	return &order, nil
}
