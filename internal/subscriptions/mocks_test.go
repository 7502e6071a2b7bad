package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/dsirine/StretchShop/internal/gateway"
	"github.com/dsirine/StretchShop/internal/plancache"
	r "github.com/dsirine/StretchShop/internal/repository"
	"github.com/google/uuid"
)

type subsRepoMock struct {
	subs    map[uuid.UUID]*domain.Subscription
	orders  *orderRepoMock
	planIDs map[string]string
	saved   []*domain.Subscription
	saveErr error
}

func newSubsRepoMock(orders *orderRepoMock, subs ...*domain.Subscription) *subsRepoMock {
	m := &subsRepoMock{
		subs:    make(map[uuid.UUID]*domain.Subscription),
		orders:  orders,
		planIDs: make(map[string]string),
	}
	for _, s := range subs {
		m.subs[s.ID] = s
	}
	return m
}

func (m *subsRepoMock) GetSubscriptionByID(_ context.Context, id uuid.UUID) (*domain.Subscription, error) {
	if s, ok := m.subs[id]; ok {
		return s, nil
	}
	return nil, r.ErrSubscriptionNotFound
}

func (m *subsRepoMock) FindFirstPendingByOrder(_ context.Context, orderID uuid.UUID) (*domain.Subscription, error) {
	for _, s := range m.subs {
		if s.OrderOriginID == orderID && s.Status == domain.SubscriptionStatusPending {
			return s, nil
		}
	}
	return nil, r.ErrSubscriptionNotFound
}

func (m *subsRepoMock) FindSubscriptionByToken(_ context.Context, token string, caller domain.Caller) (*domain.Subscription, error) {
	for _, s := range m.subs {
		if s.Token != token {
			continue
		}
		if !caller.Admin && s.UserID != caller.UserID {
			continue
		}
		return s, nil
	}
	return nil, r.ErrSubscriptionNotFound
}

func (m *subsRepoMock) FindSubscriptionsByAgreementID(_ context.Context, agreementID string) ([]*domain.Subscription, error) {
	var out []*domain.Subscription
	for _, s := range m.subs {
		if s.AgreementID == agreementID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *subsRepoMock) FindPlanIDForProduct(_ context.Context, productID string) (string, error) {
	if id, ok := m.planIDs[productID]; ok {
		return id, nil
	}
	return "", r.ErrSubscriptionNotFound
}

func (m *subsRepoMock) SaveSubscription(_ context.Context, sub *domain.Subscription) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.subs[sub.ID] = sub
	m.saved = append(m.saved, sub)
	return nil
}

func (m *subsRepoMock) CreatePaidSubscriptionOrder(_ context.Context, sub *domain.Subscription) (*domain.Order, *domain.Subscription, error) {
	origin, ok := m.orders.orders[sub.OrderOriginID]
	if !ok {
		return nil, nil, r.ErrOrderNotFound
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
			Price:     sub.Price,
			Amount:    1,
		}},
		Prices: domain.Prices{
			Currency:        origin.Prices.Currency,
			PriceTotal:      sub.Price,
			PriceTotalToPay: sub.Price,
		},
		Subscriptions: []domain.SubscriptionRef{{SubscriptionID: sub.ID, Agreed: &now}},
	}
	m.orders.orders[order.ID] = order
	return order, sub, nil
}

type orderRepoMock struct {
	orders  map[uuid.UUID]*domain.Order
	updated []*domain.Order
}

func newOrderRepoMock(orders ...*domain.Order) *orderRepoMock {
	m := &orderRepoMock{orders: make(map[uuid.UUID]*domain.Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *orderRepoMock) GetOrderByID(_ context.Context, id uuid.UUID, _ domain.Caller) (*domain.Order, error) {
	if o, ok := m.orders[id]; ok {
		return o, nil
	}
	return nil, r.ErrOrderNotFound
}

func (m *orderRepoMock) FindOrdersByPaymentRequestID(_ context.Context, _ string) ([]*domain.Order, error) {
	return nil, nil
}

func (m *orderRepoMock) CreateOrder(_ context.Context, order *domain.Order) error {
	m.orders[order.ID] = order
	return nil
}

func (m *orderRepoMock) UpdateOrder(_ context.Context, order *domain.Order) error {
	m.updated = append(m.updated, order)
	return nil
}

type gatewayMock struct {
	plans       []gateway.BillingPlanSpec
	agreements  []gateway.AgreementSpec
	executed    []string
	suspended   []string
	reactivated []string

	planResult      *gateway.BillingPlan
	agreementResult *gateway.Agreement
	err             error
}

func (m *gatewayMock) CreateBillingPlan(_ context.Context, spec gateway.BillingPlanSpec) (*gateway.BillingPlan, error) {
	m.plans = append(m.plans, spec)
	if m.err != nil {
		return nil, m.err
	}
	return m.planResult, nil
}

func (m *gatewayMock) CreateBillingAgreement(_ context.Context, spec gateway.AgreementSpec) (*gateway.Agreement, error) {
	m.agreements = append(m.agreements, spec)
	if m.err != nil {
		return nil, m.err
	}
	return m.agreementResult, nil
}

func (m *gatewayMock) ExecuteBillingAgreement(_ context.Context, token string) (*gateway.Agreement, error) {
	m.executed = append(m.executed, token)
	if m.err != nil {
		return nil, m.err
	}
	return m.agreementResult, nil
}

func (m *gatewayMock) SuspendAgreement(_ context.Context, agreementID, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.suspended = append(m.suspended, agreementID)
	return nil
}

func (m *gatewayMock) ReactivateAgreement(_ context.Context, agreementID, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.reactivated = append(m.reactivated, agreementID)
	return nil
}

type planCacheMock struct {
	entries map[string]string
}

func newPlanCacheMock() *planCacheMock {
	return &planCacheMock{entries: make(map[string]string)}
}

func (m *planCacheMock) Get(_ context.Context, productID string) (string, error) {
	if id, ok := m.entries[productID]; ok {
		return id, nil
	}
	return "", plancache.ErrCacheMiss
}

func (m *planCacheMock) Set(_ context.Context, productID, planID string) error {
	m.entries[productID] = planID
	return nil
}

type notifierMock struct {
	events []string
}

func (m *notifierMock) EntityChanged(_ context.Context, action, entityType, entityID string, _ any) {
	m.events = append(m.events, action+":"+entityType+":"+entityID)
}

type invoiceMock struct {
	generated int
}

func (m *invoiceMock) Generate(_ context.Context, order *domain.Order) (domain.Invoice, error) {
	m.generated++
	return domain.Invoice{Path: "invoice-" + order.ID.String() + ".html"}, nil
}

type postPaidMock struct {
	paid []*domain.Order
}

func (m *postPaidMock) OrderPaid(_ context.Context, order *domain.Order) {
	m.paid = append(m.paid, order)
}

var errGatewayDown = errors.New("gateway unavailable")
