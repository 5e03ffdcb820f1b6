package models

// LineItem is one purchasable product entry within an order. Immutable once
// constructed.
type LineItem struct {
	ProductID   string  `json:"productId"`
	UnitPrice   float64 `json:"unitPrice"`
	DisplayName string  `json:"displayName,omitempty"`
}

// Customer identifies the buyer across funnel steps.
type Customer struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
}

// FullName returns the billing/shipping name used on provider payloads.
func (c Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// BillingAddress is optional on an intent; every field defaults to "".
type BillingAddress struct {
	Address1 string `json:"address1,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Zip      string `json:"zip,omitempty"`
	Country  string `json:"country,omitempty"`
}

// CardDetails is the full card capture used on initial orders only.
type CardDetails struct {
	Number   string `json:"number"`
	ExpMonth string `json:"expMonth"`
	ExpYear  string `json:"expYear"`
	CVV      string `json:"cvv"`
}

// OrderIntent is the caller-owned order submission request. If ParentOrderID
// is set the card must be absent: the order is billed to the card on file.
type OrderIntent struct {
	LineItems          []LineItem        `json:"lineItems"`
	Customer           Customer          `json:"customer"`
	BillingAddress     *BillingAddress   `json:"billingAddress,omitempty"`
	Card               *CardDetails      `json:"card,omitempty"`
	ParentOrderID      string            `json:"parentOrderId,omitempty"`
	CustomerID         string            `json:"customerId,omitempty"`
	StepNumber         int               `json:"stepNumber,omitempty"`
	TotalAmount        float64           `json:"totalAmount"`
	TrackingAttributes map[string]string `json:"trackingAttributes,omitempty"`
}

// IsFollowup reports whether the intent bills a card already on file.
func (o *OrderIntent) IsFollowup() bool {
	return o.ParentOrderID != ""
}

// LineItemResult is the per-item outcome of a submission. A failed provider
// call produces one of these with Succeeded=false for every item of that
// call; there is no partial per-item success within one HTTP call.
type LineItemResult struct {
	ProductID   string  `json:"productId"`
	UnitPrice   float64 `json:"unitPrice"`
	Succeeded   bool    `json:"succeeded"`
	OrderID     string  `json:"orderId,omitempty"`
	ErrorReason string  `json:"errorReason,omitempty"`
}

// OrderOutcome is the terminal value returned to the caller. Never mutated
// after return.
type OrderOutcome struct {
	Succeeded       bool             `json:"succeeded"`
	OrderID         string           `json:"orderId,omitempty"`
	CustomerID      string           `json:"customerId,omitempty"`
	Message         string           `json:"message,omitempty"`
	LineItemResults []LineItemResult `json:"lineItemResults"`
	TotalAmount     float64          `json:"totalAmount"`
	IsSimulated     bool             `json:"isSimulated,omitempty"`
	ErrorReason     string           `json:"errorReason,omitempty"`
}
