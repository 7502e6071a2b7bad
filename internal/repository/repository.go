package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrAmbiguousMatch       = errors.New("lookup matched more than one record")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type OrderRepository interface {
	GetOrderByID(ctx context.Context, id uuid.UUID, caller domain.Caller) (*domain.Order, error)
	FindOrdersByPaymentRequestID(ctx context.Context, requestID string) ([]*domain.Order, error)
	CreateOrder(ctx context.Context, order *domain.Order) error
	UpdateOrder(ctx context.Context, order *domain.Order) error
}

type SubscriptionRepository interface {
	GetSubscriptionByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	FindFirstPendingByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Subscription, error)
	FindSubscriptionByToken(ctx context.Context, token string, caller domain.Caller) (*domain.Subscription, error)
	FindSubscriptionsByAgreementID(ctx context.Context, agreementID string) ([]*domain.Subscription, error)
	FindPlanIDForProduct(ctx context.Context, productID string) (string, error)
	SaveSubscription(ctx context.Context, sub *domain.Subscription) error
	CreatePaidSubscriptionOrder(ctx context.Context, sub *domain.Subscription) (*domain.Order, *domain.Subscription, error)
}

// OutboxEvent is one pending change notification waiting to be published.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

type OutboxRepository interface {
	InsertEvent(ctx context.Context, event *OutboxEvent) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type RepoInterface interface {
	OrderRepository
	SubscriptionRepository
	OutboxRepository
	RunMigrations(*Credentials) error
	Close() error
}
