// Package request translates an order intent into the provider's wire shape.
// The two variants target different endpoints: an initial order captures the
// card in full, a followup bills the card already on file for the parent
// order. Payloads are built once per submission attempt and never mutated.
package request

import (
	"fmt"
	"strconv"

	"funnel-orders/internal/models"
	"funnel-orders/internal/orders/card"
	"funnel-orders/internal/orders/catalog"
)

const (
	initialStepNum  = 1
	defaultBaseStep = 2

	clientIPPlaceholder = "127.0.0.1"
)

// Offer is one product entry inside a provider payload.
type Offer struct {
	OfferID        int `json:"offer_id"`
	ProductID      int `json:"product_id"`
	BillingModelID int `json:"billing_model_id"`
	Quantity       int `json:"quantity"`
	StepNum        int `json:"step_num"`
}

// InitialOrderRequest is the card-present payload for POST /new_order.
type InitialOrderRequest struct {
	Method     string  `json:"method"`
	CampaignID string  `json:"campaignId"`
	ShippingID string  `json:"shippingId"`
	Offers     []Offer `json:"offers"`

	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`

	BillingFirstName string `json:"billingFirstName"`
	BillingLastName  string `json:"billingLastName"`
	BillingAddress1  string `json:"billingAddress1"`
	BillingCity      string `json:"billingCity"`
	BillingState     string `json:"billingState"`
	BillingZip       string `json:"billingZip"`
	BillingCountry   string `json:"billing_country"`

	ShippingFirstName string `json:"shippingFirstName"`
	ShippingLastName  string `json:"shippingLastName"`
	ShippingAddress1  string `json:"shippingAddress1"`
	ShippingCity      string `json:"shippingCity"`
	ShippingState     string `json:"shippingState"`
	ShippingZip       string `json:"shippingZip"`
	ShippingCountry   string `json:"shippingCountry"`

	CreditCardNumber string `json:"creditCardNumber"`
	ExpirationDate   string `json:"expirationDate"`
	CVV              string `json:"CVV"`
	CreditCardType   string `json:"creditCardType"`

	IPAddress   string `json:"ipAddress"`
	PaymentType string `json:"paymentType"`
	TranType    string `json:"tranType"`
	TestMode    string `json:"testMode,omitempty"`
}

// FollowupOrderRequest is the on-file payload for POST /new_order_card_on_file.
type FollowupOrderRequest struct {
	PreviousOrderID string  `json:"previousOrderId"`
	ShippingID      string  `json:"shippingId"`
	IPAddress       string  `json:"ipAddress"`
	CampaignID      string  `json:"campaignId"`
	Offers          []Offer `json:"offers"`
}

// Builder builds provider payloads using the campaign configuration and the
// product catalog.
type Builder struct {
	catalog    *catalog.Catalog
	campaignID string
	shippingID string
	testMode   bool
}

func NewBuilder(cat *catalog.Catalog, campaignID, shippingID string, testMode bool) *Builder {
	return &Builder{
		catalog:    cat,
		campaignID: campaignID,
		shippingID: shippingID,
		testMode:   testMode,
	}
}

// BuildInitial builds the card-present payload. An initial order carries
// exactly one line item; callers holding more items must split them into a
// followup submission after the parent order exists.
func (b *Builder) BuildInitial(intent *models.OrderIntent) (*InitialOrderRequest, error) {
	if len(intent.LineItems) != 1 {
		return nil, fmt.Errorf("initial order requires exactly one line item, got %d", len(intent.LineItems))
	}
	if intent.Card == nil {
		return nil, fmt.Errorf("initial order requires card details")
	}

	item := intent.LineItems[0]
	info := b.catalog.Lookup(item.ProductID)

	addr := intent.BillingAddress
	if addr == nil {
		addr = &models.BillingAddress{}
	}
	country := addr.Country
	if country == "" {
		country = "US"
	}

	req := &InitialOrderRequest{
		Method:     "NewOrder",
		CampaignID: b.campaignID,
		ShippingID: b.shippingID,
		Offers: []Offer{
			{
				OfferID:        atoiLoose(info.OfferID),
				ProductID:      atoiLoose(item.ProductID),
				BillingModelID: atoiLoose(info.BillingModelID),
				Quantity:       1,
				StepNum:        initialStepNum,
			},
		},

		Email:     intent.Customer.Email,
		FirstName: intent.Customer.FirstName,
		LastName:  intent.Customer.LastName,
		Phone:     intent.Customer.Phone,

		BillingFirstName: intent.Customer.FirstName,
		BillingLastName:  intent.Customer.LastName,
		BillingAddress1:  addr.Address1,
		BillingCity:      addr.City,
		BillingState:     card.NormalizeBillingState(addr.State),
		BillingZip:       addr.Zip,
		BillingCountry:   country,

		// Separate shipping is not collected; it mirrors billing.
		ShippingFirstName: intent.Customer.FirstName,
		ShippingLastName:  intent.Customer.LastName,
		ShippingAddress1:  addr.Address1,
		ShippingCity:      addr.City,
		ShippingState:     card.NormalizeBillingState(addr.State),
		ShippingZip:       addr.Zip,
		ShippingCountry:   country,

		CreditCardNumber: card.NormalizeCardNumber(intent.Card.Number),
		ExpirationDate:   card.ExpirationMMYY(intent.Card.ExpMonth, intent.Card.ExpYear),
		CVV:              intent.Card.CVV,
		CreditCardType:   card.DetectCardNetwork(card.NormalizeCardNumber(intent.Card.Number)),

		IPAddress:   clientIPPlaceholder,
		PaymentType: "CREDITCARD",
		TranType:    "Sale",
	}

	if b.testMode {
		req.TestMode = "1"
	}

	return req, nil
}

// BuildFollowup builds the on-file payload. Every line item becomes one
// offer; step_num counts up from the intent's step number, or from 2 when
// unset.
func (b *Builder) BuildFollowup(intent *models.OrderIntent) (*FollowupOrderRequest, error) {
	if intent.ParentOrderID == "" {
		return nil, fmt.Errorf("followup order requires a parent order id")
	}
	if len(intent.LineItems) == 0 {
		return nil, fmt.Errorf("followup order requires at least one line item")
	}

	baseStep := intent.StepNumber
	if baseStep == 0 {
		baseStep = defaultBaseStep
	}

	offers := make([]Offer, 0, len(intent.LineItems))
	for i, item := range intent.LineItems {
		info := b.catalog.Lookup(item.ProductID)
		offers = append(offers, Offer{
			OfferID:        atoiLoose(info.OfferID),
			ProductID:      atoiLoose(item.ProductID),
			BillingModelID: atoiLoose(info.BillingModelID),
			Quantity:       1,
			StepNum:        baseStep + i,
		})
	}

	return &FollowupOrderRequest{
		PreviousOrderID: intent.ParentOrderID,
		ShippingID:      b.shippingID,
		IPAddress:       clientIPPlaceholder,
		CampaignID:      b.campaignID,
		Offers:          offers,
	}, nil
}

// atoiLoose parses provider-defined numeric ids, tolerating malformed input
// with a zero value rather than failing the whole payload.
func atoiLoose(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
