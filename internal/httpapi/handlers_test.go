package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dsirine/StretchShop/internal/domain"
	"github.com/dsirine/StretchShop/internal/gateway"
	"github.com/dsirine/StretchShop/internal/subscriptions"
	"github.com/dsirine/StretchShop/internal/webhook"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type paymentFlowsMock struct {
	urlResult     domain.URLResult
	confirmResult domain.RedirectResult
	confirmed     []string
	declined      int
}

func (m *paymentFlowsMock) GetPaymentURL(_ context.Context, _ domain.Caller, _ uuid.UUID) domain.URLResult {
	return m.urlResult
}

func (m *paymentFlowsMock) ConfirmPayment(_ context.Context, paymentID, payerID string) domain.RedirectResult {
	m.confirmed = append(m.confirmed, paymentID+"/"+payerID)
	return m.confirmResult
}

func (m *paymentFlowsMock) DeclinePayment(_ context.Context) domain.RedirectResult {
	m.declined++
	return domain.RedirectResult{Redirect: "/en/user/orders/"}
}

type agreementFlowsMock struct {
	confirmResult domain.RedirectResult
	confirmed     []string
	declined      int
}

func (m *agreementFlowsMock) ConfirmAgreement(_ context.Context, _ domain.Caller, token string) domain.RedirectResult {
	m.confirmed = append(m.confirmed, token)
	return m.confirmResult
}

func (m *agreementFlowsMock) DeclineAgreement(_ context.Context) domain.RedirectResult {
	m.declined++
	return domain.RedirectResult{Redirect: "/en/user/orders/"}
}

type managerMock struct {
	ack *subscriptions.Ack
}

func (m *managerMock) SuspendAgreement(_ context.Context, _ domain.Caller, id uuid.UUID) *subscriptions.Ack {
	return m.ack
}

func (m *managerMock) ReactivateAgreement(_ context.Context, _ domain.Caller, id uuid.UUID) *subscriptions.Ack {
	return m.ack
}

type dispatcherMock struct {
	sigs   []gateway.WebhookSignature
	bodies []json.RawMessage
	err    error
}

func (m *dispatcherMock) Dispatch(_ context.Context, sig gateway.WebhookSignature, body json.RawMessage) error {
	m.sigs = append(m.sigs, sig)
	m.bodies = append(m.bodies, body)
	return m.err
}

// --- helpers ---

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func asUser(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), callerKey, domain.Caller{UserID: "user-1"})
	return r.WithContext(ctx)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHeaderAuthMiddleware(t *testing.T) {
	var got domain.Caller
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = callerFromContext(r.Context())
	})

	request := httptest.NewRequest("GET", "/", nil)
	request.Header.Set("X-User-ID", "user-7")
	request.Header.Set("X-User-Admin", "true")
	HeaderAuthMiddleware(next).ServeHTTP(httptest.NewRecorder(), request)

	assert.Equal(t, domain.Caller{UserID: "user-7", Admin: true}, got)
}

// --- StartPayment ---

func TestStartPayment_Success(t *testing.T) {
	payments := &paymentFlowsMock{urlResult: domain.URLResult{
		Success: true,
		URL:     "https://gateway.test/approve",
		Message: "redirect to payment",
	}}
	h := NewPaymentsHandler(payments, &agreementFlowsMock{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/v1/orders/x/payment", nil)
	request = asUser(withURLParam(request, "order_id", uuid.NewString()))

	h.StartPayment(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	var result domain.URLResult
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&result))
	assert.Equal(t, "https://gateway.test/approve", result.URL)
}

func TestStartPayment_FailureIsUnprocessable(t *testing.T) {
	payments := &paymentFlowsMock{urlResult: domain.URLResult{Message: "error - no valid items"}}
	h := NewPaymentsHandler(payments, &agreementFlowsMock{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/v1/orders/x/payment", nil)
	request = asUser(withURLParam(request, "order_id", uuid.NewString()))

	h.StartPayment(recorder, request)

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "error - no valid items")
}

func TestStartPayment_RequiresAuth(t *testing.T) {
	h := NewPaymentsHandler(&paymentFlowsMock{}, &agreementFlowsMock{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := withURLParam(httptest.NewRequest("POST", "/api/v1/orders/x/payment", nil), "order_id", uuid.NewString())

	h.StartPayment(recorder, request)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestStartPayment_InvalidOrderID(t *testing.T) {
	h := NewPaymentsHandler(&paymentFlowsMock{}, &agreementFlowsMock{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := asUser(withURLParam(httptest.NewRequest("POST", "/api/v1/orders/x/payment", nil), "order_id", "not-a-uuid"))

	h.StartPayment(recorder, request)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

// --- backdirect return/cancel routing ---

func TestReturn_PaymentParameters(t *testing.T) {
	payments := &paymentFlowsMock{confirmResult: domain.RedirectResult{Success: true, Redirect: "/en/user/orders/o-1"}}
	agreements := &agreementFlowsMock{}
	h := NewPaymentsHandler(payments, agreements, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/backdirect/order/paypal/return?paymentId=PAY-1&PayerID=PAYER-1&token=EC-1", nil)

	h.Return(recorder, request)

	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "/en/user/orders/o-1", recorder.Header().Get("Location"))
	assert.Equal(t, []string{"PAY-1/PAYER-1"}, payments.confirmed)
	assert.Empty(t, agreements.confirmed)
}

func TestReturn_AgreementParameters(t *testing.T) {
	payments := &paymentFlowsMock{}
	agreements := &agreementFlowsMock{confirmResult: domain.RedirectResult{Success: true, Redirect: "/en/user/orders/o-1"}}
	h := NewPaymentsHandler(payments, agreements, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := asUser(httptest.NewRequest("GET", "/backdirect/order/paypal/return?token=EC-1&ba_token=BA-1", nil))

	h.Return(recorder, request)

	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, []string{"EC-1"}, agreements.confirmed)
	assert.Empty(t, payments.confirmed)
}

func TestReturn_UnrecognizedParameters(t *testing.T) {
	h := NewPaymentsHandler(&paymentFlowsMock{}, &agreementFlowsMock{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/backdirect/order/paypal/return", nil)

	h.Return(recorder, request)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCancel_RoutesByParameters(t *testing.T) {
	payments := &paymentFlowsMock{}
	agreements := &agreementFlowsMock{}
	h := NewPaymentsHandler(payments, agreements, 5*time.Second)

	recorder := httptest.NewRecorder()
	h.Cancel(recorder, httptest.NewRequest("GET", "/backdirect/order/paypal/cancel?ba_token=BA-1", nil))
	assert.Equal(t, 1, agreements.declined)
	assert.Equal(t, 0, payments.declined)

	recorder = httptest.NewRecorder()
	h.Cancel(recorder, httptest.NewRequest("GET", "/backdirect/order/paypal/cancel?token=EC-1", nil))
	assert.Equal(t, 1, payments.declined)
}

// --- subscriptions ---

func TestSuspend_Success(t *testing.T) {
	subID := uuid.New()
	m := &managerMock{ack: &subscriptions.Ack{SubscriptionID: subID, AgreementID: "I-1", Note: "User canceled from StretchShop"}}
	h := NewSubscriptionsHandler(m, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/v1/subscriptions/x/suspend", nil)
	request = asUser(withURLParam(request, "subscription_id", subID.String()))

	h.Suspend(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "I-1")
}

func TestSuspend_GatewayRefused(t *testing.T) {
	h := NewSubscriptionsHandler(&managerMock{ack: nil}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/v1/subscriptions/x/suspend", nil)
	request = asUser(withURLParam(request, "subscription_id", uuid.NewString()))

	h.Suspend(recorder, request)
	assert.Equal(t, http.StatusBadGateway, recorder.Code)
}

// --- webhook ---

func TestReceive_PassesSignatureHeaders(t *testing.T) {
	dispatcher := &dispatcherMock{}
	h := NewWebhookHandler(dispatcher, 5*time.Second)

	body := `{"id":"WH-1","event_type":"PAYMENT.SALE.COMPLETED"}`
	request := httptest.NewRequest("POST", "/api/v1/webhook/paypal", jsonBody(body))
	request.Header.Set("Paypal-Auth-Algo", "SHA256withRSA")
	request.Header.Set("Paypal-Cert-Url", "https://gateway.test/cert")
	request.Header.Set("Paypal-Transmission-Id", "T-1")
	request.Header.Set("Paypal-Transmission-Sig", "sig")
	request.Header.Set("Paypal-Transmission-Time", "2026-08-31T10:00:00Z")

	recorder := httptest.NewRecorder()
	h.Receive(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, dispatcher.sigs, 1)
	assert.Equal(t, "T-1", dispatcher.sigs[0].TransmissionID)
	assert.Equal(t, "SHA256withRSA", dispatcher.sigs[0].AuthAlgo)
	assert.JSONEq(t, body, string(dispatcher.bodies[0]))
}

func TestReceive_UnverifiedIsBadRequest(t *testing.T) {
	h := NewWebhookHandler(&dispatcherMock{err: webhook.ErrUnverified}, 5*time.Second)

	recorder := httptest.NewRecorder()
	h.Receive(recorder, httptest.NewRequest("POST", "/api/v1/webhook/paypal", jsonBody(`{}`)))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestReceive_HandlerFailureIsServerError(t *testing.T) {
	h := NewWebhookHandler(&dispatcherMock{err: assert.AnError}, 5*time.Second)

	recorder := httptest.NewRecorder()
	h.Receive(recorder, httptest.NewRequest("POST", "/api/v1/webhook/paypal", jsonBody(`{}`)))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
