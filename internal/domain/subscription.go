package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending  SubscriptionStatus = "PENDING"
	SubscriptionStatusAgreed   SubscriptionStatus = "AGREED"
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

// CanSubscriptionTransitionTo rejects illegal subscription status changes.
// ACTIVE is reachable from ACTIVE because every recurring charge re-activates
// the subscription; CANCELED is terminal.
func CanSubscriptionTransitionTo(from, to SubscriptionStatus) bool {
	switch from {
	case SubscriptionStatusPending:
		return to == SubscriptionStatusAgreed || to == SubscriptionStatusCanceled
	case SubscriptionStatusAgreed:
		return to == SubscriptionStatusActive || to == SubscriptionStatusCanceled
	case SubscriptionStatusActive:
		return to == SubscriptionStatusActive || to == SubscriptionStatusCanceled
	default:
		return false
	}
}

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

const (
	HistoryActionAgreed        = "agreed"
	HistoryActionPaid          = "paid"
	HistoryActionPayment       = "payment"
	HistoryActionCanceled      = "canceled"
	HistoryActionNextOrderDate = "calculateDateOrderNext"
)

const (
	HistoryActorUser    = "user"
	HistoryActorWebhook = "webhook"
)

// HistoryRecord is one entry of a subscription's append-only audit log.
type HistoryRecord struct {
	Action string         `json:"action"`
	Type   string         `json:"type"`
	Date   time.Time      `json:"date"`
	Data   map[string]any `json:"data,omitempty"`
}

type Subscription struct {
	ID            uuid.UUID
	UserID        string
	OrderOriginID uuid.UUID
	ProductID     string
	OrderItemName string
	Period        Period
	Duration      int
	Cycles        int // 0 means infinite
	Price         float64
	Tax           float64
	Status        SubscriptionStatus
	Token         string
	AgreementID   string
	Agreement     json.RawMessage
	BillingPlanID string
	History       []HistoryRecord
	DateStart     time.Time
	DateOrderNext time.Time
	DateStopped   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AppendHistory adds a record; history is append-only, nothing ever removes entries.
func (s *Subscription) AppendHistory(action, actor string, data map[string]any) {
	s.History = append(s.History, HistoryRecord{
		Action: action,
		Type:   actor,
		Date:   time.Now(),
		Data:   data,
	})
}

// PaidCount reports how many charges were recorded so far. The count, not
// wall-clock time, decides whether an incoming payment is the first one.
func (s *Subscription) PaidCount() int {
	count := 0
	for _, h := range s.History {
		if h.Action == HistoryActionPaid {
			count++
		}
	}
	return count
}

// NextOrderDate advances from the given date by duration periods.
func NextOrderDate(period Period, duration int, from time.Time) time.Time {
	if duration <= 0 {
		duration = 1
	}
	switch period {
	case PeriodDay:
		return from.AddDate(0, 0, duration)
	case PeriodWeek:
		return from.AddDate(0, 0, 7*duration)
	case PeriodMonth:
		return from.AddDate(0, duration, 0)
	case PeriodYear:
		return from.AddDate(duration, 0, 0)
	default:
		return from.AddDate(0, duration, 0)
	}
}
