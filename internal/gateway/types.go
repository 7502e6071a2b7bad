package gateway

import "encoding/json"

type Amount struct {
	Currency string `json:"currency"`
	Total    string `json:"total"`
}

type Item struct {
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

type ItemList struct {
	Items []Item `json:"items"`
}

type Transaction struct {
	ItemList       *ItemList `json:"item_list,omitempty"`
	Amount         Amount    `json:"amount"`
	SoftDescriptor string    `json:"soft_descriptor,omitempty"`
}

type Payer struct {
	PaymentMethod string `json:"payment_method"`
}

type RedirectURLs struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type PaymentRequest struct {
	Intent       string        `json:"intent"`
	Payer        Payer         `json:"payer"`
	RedirectURLs RedirectURLs  `json:"redirect_urls"`
	Transactions []Transaction `json:"transactions"`
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

// Payment is the provider's payment resource, returned by both create and
// execute calls.
type Payment struct {
	ID           string        `json:"id"`
	State        string        `json:"state"`
	Transactions []Transaction `json:"transactions"`
	Links        []Link        `json:"links"`
}

// ApprovalURL picks the buyer approval redirect out of the HATEOAS links.
func (p *Payment) ApprovalURL() (string, bool) {
	return approvalURL(p.Links)
}

type PaymentExecution struct {
	PayerID      string        `json:"payer_id"`
	Transactions []Transaction `json:"transactions"`
}

type ChargeModel struct {
	Type   string `json:"type"`
	Amount Amount `json:"amount"`
}

type PaymentDefinition struct {
	Name              string        `json:"name"`
	Type              string        `json:"type"`
	Frequency         string        `json:"frequency"`
	FrequencyInterval string        `json:"frequency_interval"`
	Cycles            string        `json:"cycles"`
	Amount            Amount        `json:"amount"`
	ChargeModels      []ChargeModel `json:"charge_models,omitempty"`
}

type MerchantPreferences struct {
	AutoBillAmount          string `json:"auto_bill_amount"`
	CancelURL               string `json:"cancel_url"`
	ReturnURL               string `json:"return_url"`
	InitialFailAmountAction string `json:"initial_fail_amount_action"`
	MaxFailAttempts         string `json:"max_fail_attempts"`
	SetupFee                Amount `json:"setup_fee"`
}

const (
	PlanTypeFixed    = "FIXED"
	PlanTypeInfinite = "INFINITE"
)

type BillingPlanSpec struct {
	Name                string              `json:"name"`
	Description         string              `json:"description"`
	Type                string              `json:"type"`
	MerchantPreferences MerchantPreferences `json:"merchant_preferences"`
	PaymentDefinitions  []PaymentDefinition `json:"payment_definitions"`
}

type BillingPlan struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
	Type  string `json:"type"`
}

type ShippingAddress struct {
	Line1       string `json:"line1"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
}

type PlanRef struct {
	ID string `json:"id"`
}

type AgreementSpec struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	StartDate       string          `json:"start_date"`
	Plan            PlanRef         `json:"plan"`
	Payer           Payer           `json:"payer"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
}

// Agreement is the provider's billing agreement resource. Raw keeps the
// unparsed response body so the orchestrator can persist it verbatim.
type Agreement struct {
	ID    string          `json:"id"`
	State string          `json:"state"`
	Links []Link          `json:"links"`
	Raw   json.RawMessage `json:"-"`
}

func (a *Agreement) ApprovalURL() (string, bool) {
	return approvalURL(a.Links)
}

func approvalURL(links []Link) (string, bool) {
	for _, l := range links {
		if l.Rel == "approval_url" {
			return l.Href, true
		}
	}
	return "", false
}

// WebhookSignature carries the transmission headers the provider sends with
// every webhook delivery.
type WebhookSignature struct {
	AuthAlgo         string `json:"auth_algo"`
	CertURL          string `json:"cert_url"`
	TransmissionID   string `json:"transmission_id"`
	TransmissionSig  string `json:"transmission_sig"`
	TransmissionTime string `json:"transmission_time"`
}
