package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusDraft   OrderStatus = "DRAFT"
	OrderStatusPending OrderStatus = "PAYMENT_PENDING"
	OrderStatusPaid    OrderStatus = "PAID"
	OrderStatusFailed  OrderStatus = "FAILED"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusFailed
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// CanOrderTransitionTo rejects illegal order status changes.
// PAID is reachable again from PAID so that split payments
// (subscription cycles billed after the one-time part) can
// re-apply paid amounts to an already paid order.
func CanOrderTransitionTo(from, to OrderStatus) bool {
	switch from {
	case OrderStatusDraft:
		// DRAFT straight to PAID covers subscription-only orders whose first
		// charge arrives by webhook without a one-time payment request.
		return to == OrderStatusPending || to == OrderStatusPaid || to == OrderStatusFailed
	case OrderStatusPending:
		return to == OrderStatusPaid || to == OrderStatusFailed || to == OrderStatusPending
	case OrderStatusPaid:
		return to == OrderStatusPaid
	default:
		return false
	}
}

type ItemType string

const (
	ItemTypeProduct      ItemType = "product"
	ItemTypeDigital      ItemType = "digital"
	ItemTypeSubscription ItemType = "subscription"
)

// LocalizedName maps a language code to a display name.
type LocalizedName map[string]string

func (n LocalizedName) In(lang string) string {
	if v, ok := n[lang]; ok && v != "" {
		return v
	}
	return n["en"]
}

type OrderItem struct {
	ProductID string        `json:"product_id"`
	Type      ItemType      `json:"type"`
	OrderCode string        `json:"order_code"`
	Name      LocalizedName `json:"name"`
	Price     float64       `json:"price"`
	Amount    int           `json:"amount"`
	Paid      *time.Time    `json:"paid,omitempty"`
}

type Currency struct {
	Code string `json:"code"`
}

type Prices struct {
	Currency        Currency `json:"currency"`
	PriceTotal      float64  `json:"price_total"`
	PriceDelivery   float64  `json:"price_delivery"`
	PricePayment    float64  `json:"price_payment"`
	PriceTotalToPay float64  `json:"price_total_to_pay"`
}

// GatewayAmount and GatewayTransaction mirror the slice of a gateway
// payment response that price reconciliation depends on. The full raw
// response is kept alongside in PaymentData for operators.
type GatewayAmount struct {
	Currency string `json:"currency"`
	Total    string `json:"total"`
}

type GatewayTransaction struct {
	Amount GatewayAmount `json:"amount"`
}

type GatewayResponse struct {
	ID           string               `json:"id"`
	State        string               `json:"state"`
	Transactions []GatewayTransaction `json:"transactions"`
}

type PaymentData struct {
	Codename         string            `json:"codename"`
	Name             LocalizedName     `json:"name"`
	PaymentRequestID string            `json:"payment_request_id,omitempty"`
	LastStatus       string            `json:"last_status,omitempty"`
	LastDate         *time.Time        `json:"last_date,omitempty"`
	PaidAmountTotal  float64           `json:"paid_amount_total"`
	LastResponses    []GatewayResponse `json:"last_responses,omitempty"`
}

type DeliveryData struct {
	CodenamePhysical string `json:"codename_physical,omitempty"`
	CodenameDigital  string `json:"codename_digital,omitempty"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// SubscriptionRef links an order to one of its subscription entities and
// records when the buyer agreed to it and when it was last paid.
type SubscriptionRef struct {
	SubscriptionID uuid.UUID  `json:"subscription_id"`
	Agreed         *time.Time `json:"agreed,omitempty"`
	Paid           *time.Time `json:"paid,omitempty"`
}

type Invoice struct {
	HTML string `json:"html,omitempty"`
	Path string `json:"path,omitempty"`
}

type Order struct {
	ID             uuid.UUID
	UserID         string
	Lang           string
	Status         OrderStatus
	Items          []OrderItem
	Prices         Prices
	PaymentData    PaymentData
	DeliveryData   DeliveryData
	InvoiceAddress Address
	Subscriptions  []SubscriptionRef
	Invoice        Invoice
	DatePaid       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CountItemTypes tallies order items per type tag.
func (o *Order) CountItemTypes() map[ItemType]int {
	counts := make(map[ItemType]int)
	for _, item := range o.Items {
		counts[item.Type]++
	}
	return counts
}

// SubscriptionsTotal sums the prices of all subscription items. These are
// billed through agreements, separately from the one-time payment.
func (o *Order) SubscriptionsTotal() float64 {
	var total float64
	for _, item := range o.Items {
		if item.Type == ItemTypeSubscription && item.Price > 0 {
			total += item.Price
		}
	}
	return total
}

// MarkSubscriptionItemPaid stamps the subscription item a recurring charge
// settled with the time it was paid.
func (o *Order) MarkSubscriptionItemPaid(productID string, at time.Time) {
	for i := range o.Items {
		if o.Items[i].Type == ItemTypeSubscription && o.Items[i].ProductID == productID {
			o.Items[i].Paid = &at
		}
	}
}

// SubscriptionRefFor returns a pointer into Subscriptions for the given id, or nil.
func (o *Order) SubscriptionRefFor(subscriptionID uuid.UUID) *SubscriptionRef {
	for i := range o.Subscriptions {
		if o.Subscriptions[i].SubscriptionID == subscriptionID {
			return &o.Subscriptions[i]
		}
	}
	return nil
}
