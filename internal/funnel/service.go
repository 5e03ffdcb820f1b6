// Package funnel drives the checkout funnel state machine:
// plan-select → checkout → addons → superboost → thankyou.
// Each purchase step assembles an order intent, hands it to the submission
// coordinator and advances the session only on success; a failed outcome
// leaves the session on the current step so the user can retry.
package funnel

import (
	"context"
	"time"

	apperrors "funnel-orders/internal/common/errors"
	"funnel-orders/internal/common/logger"
	"funnel-orders/internal/common/observability"
	"funnel-orders/internal/models"
)

// Submitter is the coordinator surface the funnel depends on.
type Submitter interface {
	Submit(ctx context.Context, intent *models.OrderIntent) *models.OrderOutcome
}

// Followup upsells bill against the checkout order; step numbers continue
// the sequence the initial order started at 1.
const (
	addOnBaseStep      = 2
	superBoostBaseStep = 4
)

type Service struct {
	store     *SessionStore
	submitter Submitter
	logger    logger.Logger
	obs       *observability.Observability
}

// NewService wires the funnel. obs may be nil; submission metrics are then
// skipped.
func NewService(store *SessionStore, submitter Submitter, log logger.Logger, obs *observability.Observability) *Service {
	return &Service{
		store:     store,
		submitter: submitter,
		logger:    log,
		obs:       obs,
	}
}

func (s *Service) recordSubmission(ctx context.Context, start time.Time, outcome *models.OrderOutcome) {
	if s.obs == nil {
		return
	}
	status := "failure"
	if outcome.Succeeded {
		status = "success"
	}
	s.obs.RecordOrderProcessed(ctx, status)
	s.obs.RecordOrderDuration(ctx, time.Since(start), status)
}

// PlanSelection carries the chosen plan into a new or existing session.
type PlanSelection struct {
	SessionID string  `json:"sessionId,omitempty"`
	PlanName  string  `json:"planName"`
	PlanPrice float64 `json:"planPrice"`
}

// SelectPlan records the chosen plan and moves the session to checkout.
// A missing session id starts a fresh session.
func (s *Service) SelectPlan(ctx context.Context, sel PlanSelection) (*models.FunnelSession, error) {
	var session *models.FunnelSession
	var err error

	if sel.SessionID == "" {
		session, err = s.store.Create(ctx)
	} else {
		session, err = s.store.Get(ctx, sel.SessionID)
	}
	if err != nil {
		return nil, err
	}

	session.PlanName = sel.PlanName
	session.PlanPrice = sel.PlanPrice
	session.Step = models.StepCheckout

	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Plan selected", map[string]interface{}{
		"sessionId": session.ID,
		"plan":      sel.PlanName,
		"price":     sel.PlanPrice,
	})
	return session, nil
}

// CheckoutInput is the card-present purchase collected on the checkout page.
type CheckoutInput struct {
	Customer           models.Customer        `json:"customer"`
	BillingAddress     *models.BillingAddress `json:"billingAddress,omitempty"`
	Card               models.CardDetails     `json:"card"`
	ProductID          string                 `json:"productId"`
	TotalAmount        float64                `json:"totalAmount"`
	TrackingAttributes map[string]string      `json:"trackingAttributes,omitempty"`
}

// Checkout submits the initial order for the selected plan. On success the
// provider's order and customer ids are persisted as the parent references
// every later upsell bills against.
func (s *Service) Checkout(ctx context.Context, sessionID string, input CheckoutInput) (*models.OrderOutcome, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Step != models.StepCheckout {
		return nil, apperrors.NewStepNotAllowedError(string(session.Step), string(models.StepCheckout))
	}

	intent := &models.OrderIntent{
		LineItems: []models.LineItem{
			{ProductID: input.ProductID, UnitPrice: input.TotalAmount, DisplayName: session.PlanName},
		},
		Customer:           input.Customer,
		BillingAddress:     input.BillingAddress,
		Card:               &input.Card,
		TotalAmount:        input.TotalAmount,
		TrackingAttributes: input.TrackingAttributes,
	}

	start := time.Now()
	outcome := s.submitter.Submit(ctx, intent)
	s.recordSubmission(ctx, start, outcome)
	if !outcome.Succeeded {
		// Stay on checkout; the UI shows the reason and lets the user retry.
		return outcome, nil
	}

	session.Email = input.Customer.Email
	session.FirstName = input.Customer.FirstName
	session.LastName = input.Customer.LastName
	session.CustomerID = outcome.CustomerID
	session.ParentOrderID = outcome.OrderID
	session.TotalSpent += input.TotalAmount
	session.Step = models.StepAddOns

	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Checkout complete", map[string]interface{}{
		"sessionId":     session.ID,
		"parentOrderId": session.ParentOrderID,
		"customerId":    session.CustomerID,
	})
	return outcome, nil
}

// UpsellInput is an on-file purchase on the add-on or super-boost pages.
// An empty item list skips the step without billing.
type UpsellInput struct {
	Items              []models.LineItem `json:"items"`
	TotalAmount        float64           `json:"totalAmount"`
	TrackingAttributes map[string]string `json:"trackingAttributes,omitempty"`
}

// AddOns submits the add-on bundle as one card-on-file order.
func (s *Service) AddOns(ctx context.Context, sessionID string, input UpsellInput) (*models.OrderOutcome, error) {
	return s.upsell(ctx, sessionID, input, models.StepAddOns, addOnBaseStep)
}

// SuperBoost submits the one-time super-boost upsell.
func (s *Service) SuperBoost(ctx context.Context, sessionID string, input UpsellInput) (*models.OrderOutcome, error) {
	return s.upsell(ctx, sessionID, input, models.StepSuperBoost, superBoostBaseStep)
}

func (s *Service) upsell(ctx context.Context, sessionID string, input UpsellInput, step models.FunnelStep, baseStep int) (*models.OrderOutcome, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Step != step {
		return nil, apperrors.NewStepNotAllowedError(string(session.Step), string(step))
	}

	// Declining the upsell still advances the funnel.
	if len(input.Items) == 0 {
		session.Step = models.NextStep(step)
		if err := s.store.Save(ctx, session); err != nil {
			return nil, err
		}
		return &models.OrderOutcome{Succeeded: true, Message: "Step skipped"}, nil
	}

	intent := &models.OrderIntent{
		LineItems:          input.Items,
		Customer:           models.Customer{Email: session.Email, FirstName: session.FirstName, LastName: session.LastName},
		ParentOrderID:      session.ParentOrderID,
		CustomerID:         session.CustomerID,
		StepNumber:         baseStep,
		TotalAmount:        input.TotalAmount,
		TrackingAttributes: input.TrackingAttributes,
	}

	start := time.Now()
	outcome := s.submitter.Submit(ctx, intent)
	s.recordSubmission(ctx, start, outcome)
	if !outcome.Succeeded {
		return outcome, nil
	}

	switch step {
	case models.StepAddOns:
		session.AddOnOrderID = outcome.OrderID
	case models.StepSuperBoost:
		session.BoostOrderID = outcome.OrderID
	}
	session.TotalSpent += input.TotalAmount
	session.Step = models.NextStep(step)

	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return outcome, nil
}

// Summary returns the completed-funnel view for the thank-you page.
func (s *Service) Summary(ctx context.Context, sessionID string) (*models.FunnelSession, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session, nil
}
