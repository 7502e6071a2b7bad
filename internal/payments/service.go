package payments

import (
	"context"
	"errors"
	"log"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/dsirine/StretchShop/internal/gateway"
	"github.com/dsirine/StretchShop/internal/invoice"
	r "github.com/dsirine/StretchShop/internal/repository"
	"github.com/google/uuid"
)

var ErrAmbiguousOrder = errors.New("payment request id matches no single order")

// Gateway is the slice of the gateway client one-time payments need.
type Gateway interface {
	CreatePayment(ctx context.Context, req gateway.PaymentRequest) (*gateway.Payment, error)
	ExecutePayment(ctx context.Context, paymentID, payerID string, amount gateway.Amount) (*gateway.Payment, error)
}

// Notifier fans out entity-change notifications to caches and listeners.
type Notifier interface {
	EntityChanged(ctx context.Context, action, entityType, entityID string, payload any)
}

// PostPaidActions run once an order is fully paid (fulfillment, mail, stock).
type PostPaidActions interface {
	OrderPaid(ctx context.Context, order *domain.Order)
}

// AgreementStarter hands subscription-only orders over to the recurring
// billing flow.
type AgreementStarter interface {
	StartAgreement(ctx context.Context, caller domain.Caller, order *domain.Order) domain.URLResult
}

type Config struct {
	SiteURL       string
	SiteName      string
	URLPathPrefix string
}

type Service struct {
	cfg           Config
	orders        r.OrderRepository
	gw            Gateway
	invoices      invoice.Generator
	notifier      Notifier
	postPaid      PostPaidActions
	subscriptions AgreementStarter
}

func NewService(
	cfg Config,
	orders r.OrderRepository,
	gw Gateway,
	invoices invoice.Generator,
	notifier Notifier,
	postPaid PostPaidActions,
	subscriptions AgreementStarter,
) *Service {
	return &Service{
		cfg:           cfg,
		orders:        orders,
		gw:            gw,
		invoices:      invoices,
		notifier:      notifier,
		postPaid:      postPaid,
		subscriptions: subscriptions,
	}
}

// GetPaymentURL decides which flow an order enters by its item composition:
// orders with at least one product item go through the one-time payment flow,
// subscription-only orders through the agreement flow.
func (s *Service) GetPaymentURL(ctx context.Context, caller domain.Caller, orderID uuid.UUID) domain.URLResult {
	order, err := s.orders.GetOrderByID(ctx, orderID, caller)
	if err != nil {
		log.Printf("payments.GetPaymentURL - order %s: %v", orderID, err)
		return domain.URLResult{Message: "error - no valid items"}
	}

	counts := order.CountItemTypes()
	if counts[domain.ItemTypeProduct]+counts[domain.ItemTypeDigital] > 0 {
		return s.Checkout(ctx, order)
	}
	if counts[domain.ItemTypeSubscription] > 0 {
		return s.subscriptions.StartAgreement(ctx, caller, order)
	}
	return domain.URLResult{Message: "error - no valid items"}
}

// LogPostPaid is the default post-paid hook: it only records that the order
// became fully paid.
type LogPostPaid struct{}

func (LogPostPaid) OrderPaid(_ context.Context, order *domain.Order) {
	log.Printf("order %s fully paid", order.ID)
}
