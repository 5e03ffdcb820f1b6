// internal/orders/submit/coordinator_test.go
package submit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnel-orders/internal/common/logger"
	"funnel-orders/internal/common/mailer"
	"funnel-orders/internal/common/sticky"
	"funnel-orders/internal/models"
	"funnel-orders/internal/orders/catalog"
	"funnel-orders/internal/orders/request"
)

// ==========================
// Test Doubles
// ==========================

// fakeProvider scripts the provider reply without a network round trip.
type fakeProvider struct {
	mu       sync.Mutex
	fields   map[string]interface{}
	err      error
	blockCh  chan struct{}
	calls    int
	lastPath string
}

func (f *fakeProvider) NewOrder(ctx context.Context, payload interface{}) (*sticky.Response, error) {
	return f.respond("new_order")
}

func (f *fakeProvider) NewOrderCardOnFile(ctx context.Context, payload interface{}) (*sticky.Response, error) {
	return f.respond("new_order_card_on_file")
}

func (f *fakeProvider) respond(path string) (*sticky.Response, error) {
	f.mu.Lock()
	f.calls++
	f.lastPath = path
	block := f.blockCh
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &sticky.Response{StatusCode: 200, Fields: f.fields}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// capturingTracker records events on a channel so tests can await the
// fire-and-forget publish.
type capturingTracker struct {
	events chan string
}

func (c *capturingTracker) Track(ctx context.Context, event string, properties map[string]interface{}) error {
	c.events <- event
	return nil
}

// capturingMailer records confirmation sends likewise.
type capturingMailer struct {
	messages chan mailer.ConfirmationMessage
}

func (c *capturingMailer) SendOrderConfirmation(ctx context.Context, msg mailer.ConfirmationMessage) error {
	c.messages <- msg
	return nil
}

// ==========================
// Test Helpers
// ==========================

func newTestCoordinator(t *testing.T, provider ProviderClient, simulated bool) *Coordinator {
	t.Helper()
	return NewCoordinator(Dependencies{
		Logger:   logger.NewTestLogger(t),
		Provider: provider,
		Builder:  request.NewBuilder(catalog.Default(), "2", "2", false),
	}, simulated)
}

func initialIntent() *models.OrderIntent {
	return &models.OrderIntent{
		LineItems: []models.LineItem{
			{ProductID: "9", UnitPrice: 49.99, DisplayName: "Pro Plan"},
		},
		Customer: models.Customer{
			Email:     "jane@example.com",
			FirstName: "Jane",
			LastName:  "Doe",
		},
		Card: &models.CardDetails{
			Number:   "4242424242424242",
			ExpMonth: "12",
			ExpYear:  "27",
			CVV:      "123",
		},
		TotalAmount: 49.99,
	}
}

func followupIntent(items ...models.LineItem) *models.OrderIntent {
	return &models.OrderIntent{
		LineItems:     items,
		Customer:      models.Customer{Email: "jane@example.com", FirstName: "Jane", LastName: "Doe"},
		ParentOrderID: "ORD-100",
		CustomerID:    "C1",
		TotalAmount:   29.98,
	}
}

// ==========================
// Validation Tests
// ==========================

func TestSubmit_ValidationFailures(t *testing.T) {
	c := newTestCoordinator(t, &fakeProvider{}, false)

	tests := []struct {
		name           string
		intent         *models.OrderIntent
		expectedReason string
	}{
		{
			name:           "nil intent",
			intent:         nil,
			expectedReason: "Invalid request: products array is required",
		},
		{
			name:           "no line items",
			intent:         &models.OrderIntent{},
			expectedReason: "Invalid request: products array is required",
		},
		{
			name: "followup with card",
			intent: &models.OrderIntent{
				LineItems:     []models.LineItem{{ProductID: "6"}},
				ParentOrderID: "ORD-100",
				Card:          &models.CardDetails{Number: "4242424242424242"},
			},
			expectedReason: "Invalid request: card details must be absent for card-on-file orders",
		},
		{
			name: "initial with multiple items",
			intent: &models.OrderIntent{
				LineItems: []models.LineItem{{ProductID: "9"}, {ProductID: "4"}},
				Card:      &models.CardDetails{Number: "4242424242424242"},
			},
			expectedReason: "Invalid request: initial orders support exactly one product",
		},
		{
			name: "initial without card",
			intent: &models.OrderIntent{
				LineItems: []models.LineItem{{ProductID: "9"}},
			},
			expectedReason: "Invalid request: card details are required for an initial order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := c.Submit(context.Background(), tt.intent)
			require.NotNil(t, outcome)
			assert.False(t, outcome.Succeeded)
			assert.Equal(t, tt.expectedReason, outcome.ErrorReason)
		})
	}
}

// ==========================
// Simulated Mode Tests
// ==========================

func TestSubmit_SimulatedMode(t *testing.T) {
	c := newTestCoordinator(t, nil, true)

	intent := followupIntent(
		models.LineItem{ProductID: "6", UnitPrice: 19.99},
		models.LineItem{ProductID: "4", UnitPrice: 9.99},
	)

	outcome := c.Submit(context.Background(), intent)

	assert.True(t, outcome.Succeeded)
	assert.True(t, outcome.IsSimulated)
	assert.True(t, strings.HasPrefix(outcome.OrderID, "TEST-"))
	assert.True(t, strings.HasPrefix(outcome.CustomerID, "TEST-CUST-"))
	assert.Equal(t, "Simulated order for 2 product(s)", outcome.Message)

	require.Len(t, outcome.LineItemResults, 2)
	for _, r := range outcome.LineItemResults {
		assert.True(t, r.Succeeded)
		assert.Equal(t, outcome.OrderID, r.OrderID)
	}
}

func TestSubmit_SimulatedInitialWithoutCard(t *testing.T) {
	c := newTestCoordinator(t, nil, true)

	intent := initialIntent()
	intent.Card = nil

	outcome := c.Submit(context.Background(), intent)
	assert.True(t, outcome.Succeeded)
	assert.True(t, outcome.IsSimulated)
}

// ==========================
// Provider Dispatch Tests
// ==========================

func TestSubmit_InitialAccepted(t *testing.T) {
	provider := &fakeProvider{fields: map[string]interface{}{
		"order_id":    "A1",
		"customer_id": "C1",
	}}
	tracker := &capturingTracker{events: make(chan string, 1)}
	mail := &capturingMailer{messages: make(chan mailer.ConfirmationMessage, 1)}

	c := NewCoordinator(Dependencies{
		Logger:   logger.NewTestLogger(t),
		Provider: provider,
		Builder:  request.NewBuilder(catalog.Default(), "2", "2", false),
		Tracker:  tracker,
		Mailer:   mail,
	}, false)

	outcome := c.Submit(context.Background(), initialIntent())

	require.True(t, outcome.Succeeded)
	assert.Equal(t, "A1", outcome.OrderID)
	assert.Equal(t, "C1", outcome.CustomerID)
	assert.Equal(t, "Created 1 orders successfully", outcome.Message)
	assert.False(t, outcome.IsSimulated)
	assert.Equal(t, "new_order", provider.lastPath)

	select {
	case event := <-tracker.events:
		assert.Equal(t, "Order Completed", event)
	case <-time.After(2 * time.Second):
		t.Fatal("expected analytics event")
	}

	select {
	case msg := <-mail.messages:
		assert.Equal(t, "jane@example.com", msg.To)
		assert.Equal(t, "A1", msg.OrderID)
		assert.Equal(t, "Pro Plan", msg.PlanName)
	case <-time.After(2 * time.Second):
		t.Fatal("expected confirmation email")
	}
}

func TestSubmit_FollowupUsesCardOnFile(t *testing.T) {
	provider := &fakeProvider{fields: map[string]interface{}{"order_id": "A2"}}
	c := newTestCoordinator(t, provider, false)

	outcome := c.Submit(context.Background(), followupIntent(
		models.LineItem{ProductID: "6", UnitPrice: 19.99},
	))

	require.True(t, outcome.Succeeded)
	assert.Equal(t, "new_order_card_on_file", provider.lastPath)
	assert.Equal(t, 1, provider.callCount())
}

func TestSubmit_DeclineFansOutToAllItems(t *testing.T) {
	provider := &fakeProvider{fields: map[string]interface{}{
		"order_id":      "A1",
		"response_code": "D",
	}}
	c := newTestCoordinator(t, provider, false)

	outcome := c.Submit(context.Background(), followupIntent(
		models.LineItem{ProductID: "6", UnitPrice: 19.99},
		models.LineItem{ProductID: "4", UnitPrice: 9.99},
		models.LineItem{ProductID: "16", UnitPrice: 5.00},
	))

	assert.False(t, outcome.Succeeded)
	assert.Equal(t, "Transaction declined", outcome.ErrorReason)
	assert.Equal(t, "Failed to create orders", outcome.Message)

	require.Len(t, outcome.LineItemResults, 3)
	for _, r := range outcome.LineItemResults {
		assert.False(t, r.Succeeded)
		assert.Equal(t, "Transaction declined", r.ErrorReason)
	}
	// One atomic provider call covers every item.
	assert.Equal(t, 1, provider.callCount())
}

func TestSubmit_TransportErrorBecomesRejection(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	c := newTestCoordinator(t, provider, false)

	outcome := c.Submit(context.Background(), initialIntent())

	assert.False(t, outcome.Succeeded)
	assert.Contains(t, outcome.ErrorReason, "connection refused")
}

func TestSubmit_DeclineReasonPropagated(t *testing.T) {
	provider := &fakeProvider{fields: map[string]interface{}{
		"error_found":   "1",
		"error_message": "Card expired",
	}}
	c := newTestCoordinator(t, provider, false)

	outcome := c.Submit(context.Background(), initialIntent())

	assert.False(t, outcome.Succeeded)
	assert.Equal(t, "Card expired", outcome.ErrorReason)
}

// ==========================
// De-duplication Tests
// ==========================

func TestSubmit_DuplicateInFlight(t *testing.T) {
	block := make(chan struct{})
	provider := &fakeProvider{
		fields:  map[string]interface{}{"order_id": "A1"},
		blockCh: block,
	}
	c := newTestCoordinator(t, provider, false)

	firstDone := make(chan *models.OrderOutcome, 1)
	go func() {
		firstDone <- c.Submit(context.Background(), initialIntent())
	}()

	// Wait until the first submission is inside the provider call.
	require.Eventually(t, func() bool {
		return provider.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	dup := c.Submit(context.Background(), initialIntent())
	assert.False(t, dup.Succeeded)
	assert.Equal(t, "Request already in progress", dup.ErrorReason)

	close(block)
	first := <-firstDone
	assert.True(t, first.Succeeded)

	// The fingerprint is released once the first submission finishes.
	retry := c.Submit(context.Background(), initialIntent())
	assert.True(t, retry.Succeeded)
}

func TestSubmit_ReleasesFingerprintAfterFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("boom")}
	registry := NewInFlightRegistry()
	c := NewCoordinator(Dependencies{
		Logger:   logger.NewTestLogger(t),
		Provider: provider,
		Builder:  request.NewBuilder(catalog.Default(), "2", "2", false),
		InFlight: registry,
	}, false)

	outcome := c.Submit(context.Background(), initialIntent())
	assert.False(t, outcome.Succeeded)
	assert.Equal(t, 0, registry.Len())
}
