// Package catalog holds the provider-side product metadata needed to build
// order payloads. The offer and billing-model ids are part of the contract
// with the provider's campaign configuration and are maintained by hand,
// either in the built-in table or in an external catalog file.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

// Billing model ids as configured in the provider campaign.
const (
	BillingModelOneTime   = "2"
	BillingModelRecurring = "3"

	defaultOfferID = "1"
)

// BillingInfo is the catalog entry for one product id.
type BillingInfo struct {
	OfferID        string `json:"offerId"`
	BillingModelID string `json:"billingModelId"`
	Name           string `json:"name,omitempty"`
}

// Catalog resolves product ids to their provider billing metadata.
type Catalog struct {
	products map[string]BillingInfo
}

// Default returns the built-in catalog: setup-fee products bill once,
// main subscriptions and add-ons bill recurring.
func Default() *Catalog {
	return &Catalog{
		products: map[string]BillingInfo{
			"4":  {OfferID: defaultOfferID, BillingModelID: BillingModelOneTime, Name: "Setup Fee"},
			"14": {OfferID: defaultOfferID, BillingModelID: BillingModelOneTime, Name: "Setup Fee"},
			"15": {OfferID: defaultOfferID, BillingModelID: BillingModelOneTime, Name: "Setup Fee"},
			"16": {OfferID: defaultOfferID, BillingModelID: BillingModelOneTime, Name: "Setup Fee"},
			"9":  {OfferID: defaultOfferID, BillingModelID: BillingModelRecurring, Name: "Main Subscription"},
			"6":  {OfferID: defaultOfferID, BillingModelID: BillingModelRecurring, Name: "Main Subscription"},
		},
	}
}

// Lookup returns the billing metadata for a product id. Unrecognized ids
// default to the recurring billing model with the standard offer.
func (c *Catalog) Lookup(productID string) BillingInfo {
	if info, ok := c.products[productID]; ok {
		return info
	}
	return BillingInfo{OfferID: defaultOfferID, BillingModelID: BillingModelRecurring}
}

// catalogFile is the external override format.
type catalogFile struct {
	Version  string                 `json:"version"`
	Products map[string]BillingInfo `json:"products"`
}

const catalogSchema = `{
	"type": "object",
	"required": ["products"],
	"properties": {
		"version": {"type": "string"},
		"products": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["offerId", "billingModelId"],
				"properties": {
					"offerId": {"type": "string", "minLength": 1},
					"billingModelId": {"type": "string", "enum": ["2", "3"]},
					"name": {"type": "string"}
				},
				"additionalProperties": false
			}
		}
	},
	"additionalProperties": false
}`

// Load reads a catalog override file, validates it against the catalog
// schema and merges it over the built-in defaults.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(catalogSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("catalog validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("catalog file invalid: %v", errs)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog file: %w", err)
	}

	cat := Default()
	for id, info := range file.Products {
		cat.products[id] = info
	}
	return cat, nil
}
