// Package response classifies the payment provider's loosely-typed replies.
// The provider renames fields between gateway versions, so every logical
// value is probed through an ordered list of candidate extractors; missing,
// renamed or malformed fields degrade to rejection, never to an error.
package response

import (
	"strconv"
)

const (
	declineSentinel = "D"

	reasonDeclined = "Transaction declined"
	reasonFailed   = "Transaction failed"
)

// Candidate field names per logical value, probed in order.
var (
	orderIDFields    = []string{"order_id", "orderId"}
	customerIDFields = []string{"customer_id", "customerId"}
	reasonFields     = []string{"error_message", "decline_reason", "gateway_response"}
)

// Classification is the classifier's verdict on one provider reply.
type Classification struct {
	Accepted   bool
	OrderID    string
	CustomerID string
	Reason     string
}

// Classify inspects the decoded provider reply. Acceptance requires all of:
// an order id under either candidate name, no error flag, no error message,
// and a response code other than the decline sentinel.
func Classify(fields map[string]interface{}) Classification {
	orderID := firstString(fields, orderIDFields)

	accepted := orderID != "" &&
		!errorFlagSet(fields) &&
		!fieldPresent(fields, "error_message") &&
		firstString(fields, []string{"response_code"}) != declineSentinel

	if accepted {
		return Classification{
			Accepted:   true,
			OrderID:    orderID,
			CustomerID: firstString(fields, customerIDFields),
		}
	}

	return Classification{
		Accepted: false,
		Reason:   rejectionReason(fields),
	}
}

// rejectionReason extracts the human-readable failure reason, first
// non-empty candidate wins.
func rejectionReason(fields map[string]interface{}) string {
	for _, name := range reasonFields {
		if reason := asString(fields[name]); reason != "" {
			return reason
		}
	}
	if firstString(fields, []string{"response_code"}) == declineSentinel {
		return reasonDeclined
	}
	return reasonFailed
}

// errorFlagSet probes error_found as either the string "1" or the number 1.
func errorFlagSet(fields map[string]interface{}) bool {
	switch v := fields["error_found"].(type) {
	case string:
		return v == "1"
	case float64:
		return v == 1
	case int:
		return v == 1
	default:
		return false
	}
}

func fieldPresent(fields map[string]interface{}, name string) bool {
	v, ok := fields[name]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return s != ""
	}
	return true
}

func firstString(fields map[string]interface{}, names []string) string {
	for _, name := range names {
		if s := asString(fields[name]); s != "" {
			return s
		}
	}
	return ""
}

// asString renders a provider value as a string. Numeric ids arrive as JSON
// numbers; anything else unrecognized yields "".
func asString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		return ""
	}
}
