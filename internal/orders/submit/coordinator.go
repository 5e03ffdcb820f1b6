// Package submit orchestrates order submissions: de-duplication, payload
// building, the provider call, response classification and aggregation into
// a single outcome. Nothing escapes the coordinator as a panic or returned
// error; every exit path is an OrderOutcome.
package submit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"funnel-orders/internal/common/analytics"
	"funnel-orders/internal/common/logger"
	"funnel-orders/internal/common/mailer"
	"funnel-orders/internal/common/metrics"
	"funnel-orders/internal/common/sticky"
	"funnel-orders/internal/models"
	"funnel-orders/internal/orders/request"
	"funnel-orders/internal/orders/response"
)

const (
	modeInitial   = "initial"
	modeFollowup  = "followup"
	modeSimulated = "simulated"

	eventOrderCompleted = "Order Completed"

	sideEffectTimeout = 10 * time.Second
)

// ProviderClient is the slice of the sticky client the coordinator uses.
type ProviderClient interface {
	NewOrder(ctx context.Context, payload interface{}) (*sticky.Response, error)
	NewOrderCardOnFile(ctx context.Context, payload interface{}) (*sticky.Response, error)
}

// Coordinator is the single entry point for order submissions.
type Coordinator struct {
	logger   logger.Logger
	provider ProviderClient
	builder  *request.Builder
	tracker  analytics.Tracker
	mailer   mailer.Mailer
	inflight *InFlightRegistry

	// simulated is set when provider credentials are absent; submissions
	// then synthesize success instead of calling the provider.
	simulated bool
}

type Dependencies struct {
	Logger   logger.Logger
	Provider ProviderClient
	Builder  *request.Builder
	Tracker  analytics.Tracker
	Mailer   mailer.Mailer
	InFlight *InFlightRegistry
}

func NewCoordinator(deps Dependencies, simulated bool) *Coordinator {
	tracker := deps.Tracker
	if tracker == nil {
		tracker = analytics.Noop{}
	}
	mail := deps.Mailer
	if mail == nil {
		mail = mailer.Noop{}
	}
	inflight := deps.InFlight
	if inflight == nil {
		inflight = NewInFlightRegistry()
	}

	return &Coordinator{
		logger:    deps.Logger,
		provider:  deps.Provider,
		builder:   deps.Builder,
		tracker:   tracker,
		mailer:    mail,
		inflight:  inflight,
		simulated: simulated,
	}
}

// Submit processes one order intent to completion. The returned outcome is
// terminal; the coordinator retains nothing from the intent afterwards.
func (c *Coordinator) Submit(ctx context.Context, intent *models.OrderIntent) (outcome *models.OrderOutcome) {
	start := time.Now()
	mode := c.mode(intent)

	// The nothing-escapes boundary: a panic anywhere below becomes a
	// failed outcome, and the deferred release still runs first.
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Order submission panicked", map[string]interface{}{
				"panic": fmt.Sprint(r),
			})
			outcome = &models.OrderOutcome{
				Succeeded:   false,
				ErrorReason: "Order processing failed",
			}
		}
		result := "failure"
		if outcome != nil && outcome.Succeeded {
			result = "success"
		}
		metrics.OrdersSubmitted.WithLabelValues(mode, result).Inc()
		metrics.SubmissionDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()

	if reason, ok := c.validateIntent(intent); !ok {
		return &models.OrderOutcome{
			Succeeded:   false,
			ErrorReason: reason,
		}
	}

	fingerprint := Fingerprint(intent)
	if !c.inflight.TryAcquire(fingerprint) {
		c.logger.Warn("Duplicate request detected, skipping", map[string]interface{}{
			"fingerprint": fingerprint,
			"email":       intent.Customer.Email,
		})
		metrics.DuplicateSubmissions.Inc()
		return &models.OrderOutcome{
			Succeeded:   false,
			ErrorReason: "Request already in progress",
		}
	}
	defer c.inflight.Release(fingerprint)

	metrics.SubmissionsInFlight.Inc()
	defer metrics.SubmissionsInFlight.Dec()

	if c.simulated {
		return c.submitSimulated(intent)
	}

	results, orderID, customerID := c.dispatch(ctx, intent, mode)
	return c.aggregate(intent, results, orderID, customerID, false)
}

func (c *Coordinator) mode(intent *models.OrderIntent) string {
	switch {
	case c.simulated:
		return modeSimulated
	case intent != nil && intent.IsFollowup():
		return modeFollowup
	default:
		return modeInitial
	}
}

// validateIntent enforces the intent invariants before any state changes.
// A multi-item initial order is rejected outright rather than silently
// truncated to its first item.
func (c *Coordinator) validateIntent(intent *models.OrderIntent) (string, bool) {
	if intent == nil || len(intent.LineItems) == 0 {
		return "Invalid request: products array is required", false
	}
	if intent.IsFollowup() && intent.Card != nil {
		return "Invalid request: card details must be absent for card-on-file orders", false
	}
	if !intent.IsFollowup() && len(intent.LineItems) > 1 {
		return "Invalid request: initial orders support exactly one product", false
	}
	if !intent.IsFollowup() && intent.Card == nil && !c.simulated {
		return "Invalid request: card details are required for an initial order", false
	}
	return "", true
}

// submitSimulated synthesizes a successful outcome when provider
// credentials are not configured.
func (c *Coordinator) submitSimulated(intent *models.OrderIntent) *models.OrderOutcome {
	suffix := uuid.NewString()[:8]
	orderID := fmt.Sprintf("TEST-%d-%s", time.Now().UnixMilli(), suffix)
	customerID := fmt.Sprintf("TEST-CUST-%d-%s", time.Now().UnixMilli(), suffix)

	c.logger.Warn("Provider credentials not configured, returning simulated success", map[string]interface{}{
		"orderId":  orderID,
		"products": len(intent.LineItems),
	})

	results := make([]models.LineItemResult, 0, len(intent.LineItems))
	for _, item := range intent.LineItems {
		results = append(results, models.LineItemResult{
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice,
			Succeeded: true,
			OrderID:   orderID,
		})
	}

	outcome := c.aggregate(intent, results, orderID, customerID, true)
	outcome.Message = fmt.Sprintf("Simulated order for %d product(s)", len(intent.LineItems))
	return outcome
}

// dispatch performs exactly one provider call and fans the classification
// out to every line item. The call is atomic: accept or reject applies to
// all items identically.
func (c *Coordinator) dispatch(ctx context.Context, intent *models.OrderIntent, mode string) ([]models.LineItemResult, string, string) {
	var resp *sticky.Response
	var err error

	if intent.IsFollowup() {
		var payload *request.FollowupOrderRequest
		payload, err = c.builder.BuildFollowup(intent)
		if err == nil {
			resp, err = c.provider.NewOrderCardOnFile(ctx, payload)
		}
	} else {
		var payload *request.InitialOrderRequest
		payload, err = c.builder.BuildInitial(intent)
		if err == nil {
			resp, err = c.provider.NewOrder(ctx, payload)
		}
	}

	if err != nil {
		// Connection errors and timeouts become rejections carrying the
		// transport error's message; they never propagate to the caller.
		c.logger.Error("Provider call failed", map[string]interface{}{
			"mode":  mode,
			"error": err.Error(),
		})
		metrics.OrdersFaulted.WithLabelValues(mode).Inc()
		return failAll(intent, err.Error()), "", ""
	}

	verdict := response.Classify(resp.Fields)
	if !verdict.Accepted {
		c.logger.Info("Provider rejected order", map[string]interface{}{
			"mode":   mode,
			"reason": verdict.Reason,
			"status": resp.StatusCode,
		})
		metrics.OrdersDeclined.WithLabelValues(mode).Inc()
		return failAll(intent, verdict.Reason), "", ""
	}

	results := make([]models.LineItemResult, 0, len(intent.LineItems))
	for _, item := range intent.LineItems {
		results = append(results, models.LineItemResult{
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice,
			Succeeded: true,
			OrderID:   verdict.OrderID,
		})
	}
	return results, verdict.OrderID, verdict.CustomerID
}

func failAll(intent *models.OrderIntent, reason string) []models.LineItemResult {
	results := make([]models.LineItemResult, 0, len(intent.LineItems))
	for _, item := range intent.LineItems {
		results = append(results, models.LineItemResult{
			ProductID:   item.ProductID,
			UnitPrice:   item.UnitPrice,
			Succeeded:   false,
			ErrorReason: reason,
		})
	}
	return results
}

// aggregate folds the per-item results into the terminal outcome and, on
// success, fires the analytics and confirmation side effects.
func (c *Coordinator) aggregate(intent *models.OrderIntent, results []models.LineItemResult, orderID, customerID string, simulated bool) *models.OrderOutcome {
	succeeded := 0
	for _, r := range results {
		if r.Succeeded {
			succeeded++
		}
	}

	if succeeded == 0 {
		reason := "Unknown error"
		if len(results) > 0 {
			reason = results[0].ErrorReason
		}
		return &models.OrderOutcome{
			Succeeded:       false,
			Message:         "Failed to create orders",
			LineItemResults: results,
			TotalAmount:     intent.TotalAmount,
			IsSimulated:     simulated,
			ErrorReason:     reason,
		}
	}

	c.logger.Info("Order created", map[string]interface{}{
		"orderId":    orderID,
		"customerId": customerID,
		"products":   len(results),
		"total":      intent.TotalAmount,
		"simulated":  simulated,
	})

	c.emitOrderCompleted(intent, orderID)
	if !intent.IsFollowup() {
		c.sendConfirmation(intent, orderID)
	}

	return &models.OrderOutcome{
		Succeeded:       true,
		OrderID:         orderID,
		CustomerID:      customerID,
		Message:         fmt.Sprintf("Created %d orders successfully", succeeded),
		LineItemResults: results,
		TotalAmount:     intent.TotalAmount,
		IsSimulated:     simulated,
	}
}

// emitOrderCompleted publishes the purchase event without awaiting
// delivery. Failures are logged and swallowed: analytics can never block
// or fail an outcome.
func (c *Coordinator) emitOrderCompleted(intent *models.OrderIntent, orderID string) {
	contents := make([]map[string]interface{}, 0, len(intent.LineItems))
	for _, item := range intent.LineItems {
		contents = append(contents, map[string]interface{}{
			"product_id": item.ProductID,
			"name":       item.DisplayName,
			"price":      item.UnitPrice,
			"quantity":   1,
		})
	}

	properties := map[string]interface{}{
		"order_id":      orderID,
		"total":         intent.TotalAmount,
		"revenue":       intent.TotalAmount,
		"value":         intent.TotalAmount,
		"currency":      "USD",
		"email":         intent.Customer.Email,
		"customer_name": intent.Customer.FullName(),
		"products":      contents,
		"contents":      contents,
		"content_type":  "product",
	}
	for k, v := range intent.TrackingAttributes {
		properties[k] = v
	}

	go func() {
		defer func() { _ = recover() }()
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := c.tracker.Track(ctx, eventOrderCompleted, properties); err != nil {
			c.logger.Warn("Analytics publish failed", map[string]interface{}{
				"orderId": orderID,
				"error":   err.Error(),
			})
		}
	}()
}

// sendConfirmation fires the confirmation email for an initial order,
// best-effort like analytics.
func (c *Coordinator) sendConfirmation(intent *models.OrderIntent, orderID string) {
	planName := ""
	if len(intent.LineItems) > 0 {
		planName = intent.LineItems[0].DisplayName
	}
	msg := mailer.ConfirmationMessage{
		To:         intent.Customer.Email,
		FirstName:  intent.Customer.FirstName,
		OrderID:    orderID,
		PlanName:   planName,
		TotalPrice: intent.TotalAmount,
	}

	go func() {
		defer func() { _ = recover() }()
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := c.mailer.SendOrderConfirmation(ctx, msg); err != nil {
			c.logger.Warn("Confirmation email failed", map[string]interface{}{
				"orderId": orderID,
				"error":   err.Error(),
			})
		}
	}()
}
