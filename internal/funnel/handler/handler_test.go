// internal/funnel/handler/handler_test.go
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnel-orders/internal/common/database"
	"funnel-orders/internal/common/logger"
	"funnel-orders/internal/funnel"
	"funnel-orders/internal/models"
)

type scriptedSubmitter struct {
	outcome *models.OrderOutcome
}

func (s *scriptedSubmitter) Submit(ctx context.Context, intent *models.OrderIntent) *models.OrderOutcome {
	return s.outcome
}

func newTestMux(t *testing.T, sub *scriptedSubmitter) *http.ServeMux {
	t.Helper()
	mr := miniredis.RunT(t)
	client := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	store := funnel.NewSessionStore(client, 30*time.Minute)
	service := funnel.NewService(store, sub, logger.NewTestLogger(t), nil)

	mux := http.NewServeMux()
	New(service, logger.NewTestLogger(t)).Register(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func selectPlan(t *testing.T, mux *http.ServeMux) string {
	t.Helper()
	rec := doJSON(t, mux, http.MethodPost, "/api/plan", `{"planName": "Pro Plan", "planPrice": 49.99}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

const validCheckoutPayload = `{
	"customer": {"email": "jane@example.com", "firstName": "Jane", "lastName": "Doe"},
	"card": {"number": "4242424242424242", "expMonth": "12", "expYear": "27", "cvv": "123"},
	"productId": "9",
	"totalAmount": 49.99
}`

func TestSelectPlan_CreatesSession(t *testing.T) {
	mux := newTestMux(t, &scriptedSubmitter{})

	rec := doJSON(t, mux, http.MethodPost, "/api/plan", `{"planName": "Pro Plan", "planPrice": 49.99}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "checkout", body["step"])
	assert.Equal(t, "Pro Plan", body["planName"])
}

func TestSelectPlan_ValidationFailure(t *testing.T) {
	mux := newTestMux(t, &scriptedSubmitter{})

	rec := doJSON(t, mux, http.MethodPost, "/api/plan", `{"planPrice": -1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "VALIDATION_FAILED", body["error"])
	assert.NotEmpty(t, body["details"])
}

func TestCheckout_Success(t *testing.T) {
	sub := &scriptedSubmitter{outcome: &models.OrderOutcome{
		Succeeded:  true,
		OrderID:    "ORD-100",
		CustomerID: "C1",
	}}
	mux := newTestMux(t, sub)
	sessionID := selectPlan(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/sessions/"+sessionID+"/checkout", validCheckoutPayload)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["succeeded"])
	assert.Equal(t, "ORD-100", body["orderId"])
}

func TestCheckout_DeclineReturns402(t *testing.T) {
	sub := &scriptedSubmitter{outcome: &models.OrderOutcome{
		Succeeded:   false,
		ErrorReason: "Transaction declined",
	}}
	mux := newTestMux(t, sub)
	sessionID := selectPlan(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/sessions/"+sessionID+"/checkout", validCheckoutPayload)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["succeeded"])
	assert.Equal(t, "Transaction declined", body["errorReason"])
}

func TestCheckout_MissingCardRejected(t *testing.T) {
	mux := newTestMux(t, &scriptedSubmitter{})
	sessionID := selectPlan(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/sessions/"+sessionID+"/checkout", `{
		"customer": {"email": "jane@example.com", "firstName": "Jane", "lastName": "Doe"},
		"productId": "9",
		"totalAmount": 49.99
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", decodeBody(t, rec)["error"])
}

func TestCheckout_UnknownSessionReturns404(t *testing.T) {
	mux := newTestMux(t, &scriptedSubmitter{})

	rec := doJSON(t, mux, http.MethodPost, "/api/sessions/missing/checkout", validCheckoutPayload)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", decodeBody(t, rec)["error"])
}

func TestAddOns_OutOfOrderReturns409(t *testing.T) {
	mux := newTestMux(t, &scriptedSubmitter{})
	sessionID := selectPlan(t, mux)

	// Session is on checkout; addons is not reachable yet.
	rec := doJSON(t, mux, http.MethodPost, "/api/sessions/"+sessionID+"/addons", `{
		"items": [{"productId": "6", "unitPrice": 19.99}],
		"totalAmount": 19.99
	}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "STEP_NOT_ALLOWED", decodeBody(t, rec)["error"])
}

func TestFunnel_FullFlowOverHTTP(t *testing.T) {
	sub := &scriptedSubmitter{outcome: &models.OrderOutcome{
		Succeeded:  true,
		OrderID:    "ORD-100",
		CustomerID: "C1",
	}}
	mux := newTestMux(t, sub)
	sessionID := selectPlan(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/sessions/"+sessionID+"/checkout", validCheckoutPayload)
	require.Equal(t, http.StatusOK, rec.Code)

	sub.outcome = &models.OrderOutcome{Succeeded: true, OrderID: "ORD-101"}
	rec = doJSON(t, mux, http.MethodPost, "/api/sessions/"+sessionID+"/addons", `{
		"items": [{"productId": "6", "unitPrice": 19.99}],
		"totalAmount": 19.99
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Decline the boost; skipping still advances.
	rec = doJSON(t, mux, http.MethodPost, "/api/sessions/"+sessionID+"/superboost", `{
		"items": [],
		"totalAmount": 0
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Step skipped", decodeBody(t, rec)["message"])

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/sessions/%s/summary", sessionID), nil)
	summaryRec := httptest.NewRecorder()
	mux.ServeHTTP(summaryRec, req)
	require.Equal(t, http.StatusOK, summaryRec.Code)

	summary := decodeBody(t, summaryRec)
	assert.Equal(t, "thankyou", summary["step"])
	assert.Equal(t, "ORD-100", summary["parentOrderId"])
	assert.Equal(t, "ORD-101", summary["addOnOrderId"])
	assert.InDelta(t, 69.98, summary["totalSpent"], 0.001)
}

func TestUpsell_MalformedJSON(t *testing.T) {
	mux := newTestMux(t, &scriptedSubmitter{})

	rec := doJSON(t, mux, http.MethodPost, "/api/sessions/x/addons", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	mux := newTestMux(t, &scriptedSubmitter{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}
