package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/dsirine/StretchShop/internal/gateway"
	"github.com/dsirine/StretchShop/internal/plancache"
	r "github.com/dsirine/StretchShop/internal/repository"
	"github.com/dsirine/StretchShop/internal/subscriptions"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderStoreStub struct {
	orders map[uuid.UUID]*domain.Order
}

func (m *orderStoreStub) GetOrderByID(_ context.Context, id uuid.UUID, _ domain.Caller) (*domain.Order, error) {
	if o, ok := m.orders[id]; ok {
		return o, nil
	}
	return nil, r.ErrOrderNotFound
}

func (m *orderStoreStub) FindOrdersByPaymentRequestID(_ context.Context, _ string) ([]*domain.Order, error) {
	return nil, nil
}

func (m *orderStoreStub) CreateOrder(_ context.Context, order *domain.Order) error {
	m.orders[order.ID] = order
	return nil
}

func (m *orderStoreStub) UpdateOrder(_ context.Context, _ *domain.Order) error {
	return nil
}

type planCacheStub struct{}

func (planCacheStub) Get(_ context.Context, _ string) (string, error) {
	return "", plancache.ErrCacheMiss
}

func (planCacheStub) Set(_ context.Context, _, _ string) error { return nil }

type invoiceStub struct{ generated int }

func (m *invoiceStub) Generate(_ context.Context, _ *domain.Order) (domain.Invoice, error) {
	m.generated++
	return domain.Invoice{Path: "invoice.html"}, nil
}

type notifierStub struct{}

func (notifierStub) EntityChanged(_ context.Context, _, _, _ string, _ any) {}

type postPaidStub struct{ paid int }

func (m *postPaidStub) OrderPaid(_ context.Context, _ *domain.Order) { m.paid++ }

// The provider may deliver the same sale notification more than once. Run the
// real subscription orchestrator behind the dispatcher and verify a replayed
// delivery reconciles the origin order exactly once and creates at most one
// follow-on order.
func TestDispatch_SaleCompletedRedelivery(t *testing.T) {
	origin := &domain.Order{
		ID:     uuid.New(),
		UserID: "user-1",
		Lang:   "en",
		Status: domain.OrderStatusDraft,
		Prices: domain.Prices{
			Currency:        domain.Currency{Code: "EUR"},
			PriceTotal:      9.99,
			PriceTotalToPay: 9.99,
		},
	}
	sub := &domain.Subscription{
		ID:            uuid.New(),
		UserID:        origin.UserID,
		OrderOriginID: origin.ID,
		ProductID:     "coffee-monthly",
		Period:        domain.PeriodMonth,
		Duration:      1,
		Price:         9.99,
		Status:        domain.SubscriptionStatusAgreed,
		AgreementID:   "I-1",
		DateStart:     time.Now(),
	}
	origin.Items = []domain.OrderItem{{
		ProductID: sub.ProductID,
		Type:      domain.ItemTypeSubscription,
		Price:     sub.Price,
		Amount:    1,
	}}
	origin.Subscriptions = []domain.SubscriptionRef{{SubscriptionID: sub.ID}}

	orders := &orderStoreStub{orders: map[uuid.UUID]*domain.Order{origin.ID: origin}}
	repo := &subsRepoMock{
		byAgreement: map[string][]*domain.Subscription{"I-1": {sub}},
		orders:      orders,
	}
	svc := subscriptions.NewService(
		subscriptions.Config{SiteURL: "https://shop.test", URLPathPrefix: "/"},
		repo, orders, nil, planCacheStub{}, &invoiceStub{}, notifierStub{}, &postPaidStub{},
	)
	d := NewDispatcher(&verifierMock{ok: true}, repo, svc)

	body := saleCompletedEvent("SALE-1", "I-1", "9.99")
	require.NoError(t, d.Dispatch(context.Background(), gateway.WebhookSignature{}, body))

	assert.Equal(t, domain.OrderStatusPaid, origin.Status)
	assert.Equal(t, 0.0, origin.Prices.PriceTotalToPay)
	assert.Equal(t, 1, sub.PaidCount())
	assert.Len(t, orders.orders, 1)

	// same notification again
	require.NoError(t, d.Dispatch(context.Background(), gateway.WebhookSignature{}, body))

	assert.Equal(t, 9.99, origin.PaymentData.PaidAmountTotal, "origin order reconciled exactly once")
	assert.Equal(t, 0.0, origin.Prices.PriceTotalToPay)
	assert.Len(t, orders.orders, 2, "at most one follow-on order for the replayed delivery")
}
