package payments

import (
	"context"
	"errors"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/dsirine/StretchShop/internal/gateway"
	r "github.com/dsirine/StretchShop/internal/repository"
	"github.com/google/uuid"
)

type orderRepoMock struct {
	orders  map[uuid.UUID]*domain.Order
	byReqID map[string][]*domain.Order
	updated []*domain.Order
	updErr  error
}

func newOrderRepoMock(orders ...*domain.Order) *orderRepoMock {
	m := &orderRepoMock{
		orders:  make(map[uuid.UUID]*domain.Order),
		byReqID: make(map[string][]*domain.Order),
	}
	for _, o := range orders {
		m.orders[o.ID] = o
		if o.PaymentData.PaymentRequestID != "" {
			m.byReqID[o.PaymentData.PaymentRequestID] = append(m.byReqID[o.PaymentData.PaymentRequestID], o)
		}
	}
	return m
}

func (m *orderRepoMock) GetOrderByID(_ context.Context, id uuid.UUID, _ domain.Caller) (*domain.Order, error) {
	if o, ok := m.orders[id]; ok {
		return o, nil
	}
	return nil, r.ErrOrderNotFound
}

func (m *orderRepoMock) FindOrdersByPaymentRequestID(_ context.Context, requestID string) ([]*domain.Order, error) {
	return m.byReqID[requestID], nil
}

func (m *orderRepoMock) CreateOrder(_ context.Context, order *domain.Order) error {
	m.orders[order.ID] = order
	return nil
}

func (m *orderRepoMock) UpdateOrder(_ context.Context, order *domain.Order) error {
	if m.updErr != nil {
		return m.updErr
	}
	m.updated = append(m.updated, order)
	return nil
}

type gatewayMock struct {
	created  []gateway.PaymentRequest
	executed []gateway.PaymentExecution
	payment  *gateway.Payment
	err      error
}

func (m *gatewayMock) CreatePayment(_ context.Context, req gateway.PaymentRequest) (*gateway.Payment, error) {
	m.created = append(m.created, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.payment, nil
}

func (m *gatewayMock) ExecutePayment(_ context.Context, paymentID, payerID string, amount gateway.Amount) (*gateway.Payment, error) {
	m.executed = append(m.executed, gateway.PaymentExecution{
		PayerID:      payerID,
		Transactions: []gateway.Transaction{{Amount: amount}},
	})
	if m.err != nil {
		return nil, m.err
	}
	return m.payment, nil
}

type notifierMock struct {
	events []string
}

func (m *notifierMock) EntityChanged(_ context.Context, action, entityType, entityID string, _ any) {
	m.events = append(m.events, action+":"+entityType+":"+entityID)
}

type invoiceMock struct {
	generated int
	err       error
}

func (m *invoiceMock) Generate(_ context.Context, order *domain.Order) (domain.Invoice, error) {
	if m.err != nil {
		return domain.Invoice{}, m.err
	}
	m.generated++
	return domain.Invoice{Path: "invoice-" + order.ID.String() + ".html"}, nil
}

type postPaidMock struct {
	paid []*domain.Order
}

func (m *postPaidMock) OrderPaid(_ context.Context, order *domain.Order) {
	m.paid = append(m.paid, order)
}

type starterMock struct {
	called int
	result domain.URLResult
}

func (m *starterMock) StartAgreement(_ context.Context, _ domain.Caller, _ *domain.Order) domain.URLResult {
	m.called++
	return m.result
}

var errGatewayDown = errors.New("gateway unavailable")
