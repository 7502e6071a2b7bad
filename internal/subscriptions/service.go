package subscriptions

import (
	"context"
	"errors"
	"log"
	"net/url"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/dsirine/StretchShop/internal/gateway"
	"github.com/dsirine/StretchShop/internal/invoice"
	"github.com/dsirine/StretchShop/internal/plancache"
	r "github.com/dsirine/StretchShop/internal/repository"
)

// Gateway is the slice of the gateway client recurring billing needs.
type Gateway interface {
	CreateBillingPlan(ctx context.Context, spec gateway.BillingPlanSpec) (*gateway.BillingPlan, error)
	CreateBillingAgreement(ctx context.Context, spec gateway.AgreementSpec) (*gateway.Agreement, error)
	ExecuteBillingAgreement(ctx context.Context, token string) (*gateway.Agreement, error)
	SuspendAgreement(ctx context.Context, agreementID, note string) error
	ReactivateAgreement(ctx context.Context, agreementID, note string) error
}

type Notifier interface {
	EntityChanged(ctx context.Context, action, entityType, entityID string, payload any)
}

type PostPaidActions interface {
	OrderPaid(ctx context.Context, order *domain.Order)
}

type Config struct {
	SiteURL       string
	URLPathPrefix string
}

type Service struct {
	cfg      Config
	subs     r.SubscriptionRepository
	orders   r.OrderRepository
	gw       Gateway
	plans    plancache.PlanCache
	invoices invoice.Generator
	notifier Notifier
	postPaid PostPaidActions
}

func NewService(
	cfg Config,
	subs r.SubscriptionRepository,
	orders r.OrderRepository,
	gw Gateway,
	plans plancache.PlanCache,
	invoices invoice.Generator,
	notifier Notifier,
	postPaid PostPaidActions,
) *Service {
	return &Service{
		cfg:      cfg,
		subs:     subs,
		orders:   orders,
		gw:       gw,
		plans:    plans,
		invoices: invoices,
		notifier: notifier,
		postPaid: postPaid,
	}
}

// StartAgreement picks the order's first not-yet-agreed subscription, makes
// sure a billing plan exists for its product, creates a billing agreement and
// returns the buyer approval URL. The approval token is captured from that
// URL and persisted before the buyer is redirected. Subscriptions of one
// order are processed strictly one at a time.
func (s *Service) StartAgreement(ctx context.Context, caller domain.Caller, order *domain.Order) domain.URLResult {
	sub, err := s.subs.FindFirstPendingByOrder(ctx, order.ID)
	if err != nil {
		log.Printf("subscriptions.StartAgreement - order %s: %v", order.ID, err)
		return domain.URLResult{Message: "error - no valid subscription"}
	}

	planID, err := s.ensureBillingPlan(ctx, sub, order)
	if err != nil {
		log.Printf("subscriptions.StartAgreement - billing plan for product %s: %v", sub.ProductID, err)
		return domain.URLResult{Message: "error - billing plan problem"}
	}

	agreement, err := s.gw.CreateBillingAgreement(ctx, s.agreementSpec(sub, order, planID))
	if err != nil {
		log.Printf("subscriptions.StartAgreement - create agreement for subscription %s: %v", sub.ID, err)
		return domain.URLResult{Message: "error - billing agreement problem"}
	}

	href, ok := agreement.ApprovalURL()
	if !ok {
		log.Printf("subscriptions.StartAgreement - agreement %s carries no approval link", agreement.ID)
		return domain.URLResult{Message: "error - billing agreement problem"}
	}

	token, err := tokenFromApprovalURL(href)
	if err != nil {
		log.Printf("subscriptions.StartAgreement - approval link for subscription %s: %v", sub.ID, err)
		return domain.URLResult{Message: "error - missing token in url"}
	}

	sub.Token = token
	sub.AgreementID = ""
	sub.BillingPlanID = planID
	if err := s.subs.SaveSubscription(ctx, sub); err != nil {
		log.Printf("subscriptions.StartAgreement - persist subscription %s: %v", sub.ID, err)
		return domain.URLResult{Message: err.Error()}
	}

	return domain.URLResult{
		Success: true,
		URL:     href,
		Message: "redirect to billing agreement confirmation",
	}
}

var errNoToken = errors.New("approval link carries no token parameter")

func tokenFromApprovalURL(href string) (string, error) {
	parsed, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	token := parsed.Query().Get("token")
	if token == "" {
		return "", errNoToken
	}
	return token, nil
}
