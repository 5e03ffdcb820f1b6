package handler

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Inbound payloads are schema-checked before decoding so malformed requests
// fail with field-level messages instead of partial zero-valued structs.

const planSchema = `{
	"type": "object",
	"required": ["planName", "planPrice"],
	"properties": {
		"sessionId": {"type": "string"},
		"planName": {"type": "string", "minLength": 1},
		"planPrice": {"type": "number", "minimum": 0}
	},
	"additionalProperties": false
}`

const checkoutSchema = `{
	"type": "object",
	"required": ["customer", "card", "productId", "totalAmount"],
	"properties": {
		"customer": {
			"type": "object",
			"required": ["email", "firstName", "lastName"],
			"properties": {
				"email": {"type": "string", "minLength": 5},
				"firstName": {"type": "string", "minLength": 1},
				"lastName": {"type": "string", "minLength": 1},
				"phone": {"type": "string"}
			},
			"additionalProperties": false
		},
		"billingAddress": {
			"type": "object",
			"properties": {
				"address1": {"type": "string"},
				"city": {"type": "string"},
				"state": {"type": "string"},
				"zip": {"type": "string"},
				"country": {"type": "string"}
			},
			"additionalProperties": false
		},
		"card": {
			"type": "object",
			"required": ["number", "expMonth", "expYear", "cvv"],
			"properties": {
				"number": {"type": "string", "minLength": 13},
				"expMonth": {"type": "string", "minLength": 1, "maxLength": 2},
				"expYear": {"type": "string", "minLength": 2, "maxLength": 4},
				"cvv": {"type": "string", "minLength": 3, "maxLength": 4}
			},
			"additionalProperties": false
		},
		"productId": {"type": "string", "minLength": 1},
		"totalAmount": {"type": "number", "minimum": 0},
		"trackingAttributes": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		}
	},
	"additionalProperties": false
}`

const upsellSchema = `{
	"type": "object",
	"required": ["items", "totalAmount"],
	"properties": {
		"items": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["productId", "unitPrice"],
				"properties": {
					"productId": {"type": "string", "minLength": 1},
					"unitPrice": {"type": "number", "minimum": 0},
					"displayName": {"type": "string"}
				},
				"additionalProperties": false
			}
		},
		"totalAmount": {"type": "number", "minimum": 0},
		"trackingAttributes": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		}
	},
	"additionalProperties": false
}`

// validateBody checks a raw JSON body against a schema, returning one
// message per violation.
func validateBody(schema string, body []byte) []string {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return []string{fmt.Sprintf("invalid JSON body: %v", err)}
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return errs
}
