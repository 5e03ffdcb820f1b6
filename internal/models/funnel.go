package models

// FunnelStep names one stage of the checkout funnel.
type FunnelStep string

const (
	StepPlanSelect FunnelStep = "plan-select"
	StepCheckout   FunnelStep = "checkout"
	StepAddOns     FunnelStep = "addons"
	StepSuperBoost FunnelStep = "superboost"
	StepThankYou   FunnelStep = "thankyou"
)

// FunnelSession is the cross-step state persisted between funnel pages.
// Identifiers captured at checkout are what the upsell steps bill against.
type FunnelSession struct {
	ID            string     `json:"id"`
	Step          FunnelStep `json:"step"`
	Email         string     `json:"email,omitempty"`
	FirstName     string     `json:"firstName,omitempty"`
	LastName      string     `json:"lastName,omitempty"`
	CustomerID    string     `json:"customerId,omitempty"`
	ParentOrderID string     `json:"parentOrderId,omitempty"`
	PlanName      string     `json:"planName,omitempty"`
	PlanPrice     float64    `json:"planPrice,omitempty"`
	AddOnOrderID  string     `json:"addOnOrderId,omitempty"`
	BoostOrderID  string     `json:"boostOrderId,omitempty"`
	TotalSpent    float64    `json:"totalSpent,omitempty"`
}

// NextStep returns the step that follows s in the funnel, or s itself when
// the funnel is complete.
func NextStep(s FunnelStep) FunnelStep {
	switch s {
	case StepPlanSelect:
		return StepCheckout
	case StepCheckout:
		return StepAddOns
	case StepAddOns:
		return StepSuperBoost
	case StepSuperBoost:
		return StepThankYou
	default:
		return s
	}
}
