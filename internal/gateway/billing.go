package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type patchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// CreateBillingPlan creates a plan and activates it. Plans are born inactive;
// if activation fails the plan stays inactive on the provider side and the
// error must stop the caller from creating agreements against it.
func (c *Client) CreateBillingPlan(ctx context.Context, spec BillingPlanSpec) (*BillingPlan, error) {
	var plan BillingPlan
	if err := c.doJSON(ctx, "create billing plan", http.MethodPost, "/v1/payments/billing-plans", spec, &plan); err != nil {
		return nil, err
	}
	if plan.ID == "" {
		return nil, &GatewayError{Op: "create billing plan", Reason: "response carries no plan id"}
	}

	activate := []patchOperation{{
		Op:    "replace",
		Path:  "/",
		Value: map[string]string{"state": "ACTIVE"},
	}}
	path := fmt.Sprintf("/v1/payments/billing-plans/%s", plan.ID)
	if err := c.doJSON(ctx, "activate billing plan", http.MethodPatch, path, activate, nil); err != nil {
		return nil, err
	}

	plan.State = "ACTIVE"
	return &plan, nil
}

// CreateBillingAgreement creates an agreement from an active plan. The buyer
// still has to approve it via the returned approval link.
func (c *Client) CreateBillingAgreement(ctx context.Context, spec AgreementSpec) (*Agreement, error) {
	var agreement Agreement
	if err := c.doJSON(ctx, "create billing agreement", http.MethodPost, "/v1/payments/billing-agreements", spec, &agreement); err != nil {
		return nil, err
	}
	return &agreement, nil
}

// ExecuteBillingAgreement turns a buyer-approved token into an active
// agreement. The raw response body is kept on the result for persistence.
func (c *Client) ExecuteBillingAgreement(ctx context.Context, token string) (*Agreement, error) {
	path := fmt.Sprintf("/v1/payments/billing-agreements/%s/agreement-execute", token)
	body, err := c.do(ctx, "execute billing agreement", http.MethodPost, path, struct{}{})
	if err != nil {
		return nil, err
	}

	var agreement Agreement
	if err := unmarshalAgreement(body, &agreement); err != nil {
		return nil, err
	}
	return &agreement, nil
}

func unmarshalAgreement(body []byte, agreement *Agreement) error {
	if err := json.Unmarshal(body, agreement); err != nil {
		return fmt.Errorf("parse agreement response: %w", err)
	}
	agreement.Raw = append(json.RawMessage(nil), body...)
	return nil
}

// SuspendAgreement pauses recurring charges on an agreement.
func (c *Client) SuspendAgreement(ctx context.Context, agreementID, note string) error {
	path := fmt.Sprintf("/v1/payments/billing-agreements/%s/suspend", agreementID)
	return c.doJSON(ctx, "suspend agreement", http.MethodPost, path, map[string]string{"note": note}, nil)
}

// ReactivateAgreement resumes recurring charges on a suspended agreement.
func (c *Client) ReactivateAgreement(ctx context.Context, agreementID, note string) error {
	path := fmt.Sprintf("/v1/payments/billing-agreements/%s/re-activate", agreementID)
	return c.doJSON(ctx, "reactivate agreement", http.MethodPost, path, map[string]string{"note": note}, nil)
}
