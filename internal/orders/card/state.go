package card

import "strings"

// usStates maps full state names (lowercase) to USPS abbreviations,
// 50 states plus DC variants.
var usStates = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR", "california": "CA",
	"colorado": "CO", "connecticut": "CT", "delaware": "DE", "florida": "FL", "georgia": "GA",
	"hawaii": "HI", "idaho": "ID", "illinois": "IL", "indiana": "IN", "iowa": "IA",
	"kansas": "KS", "kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS", "missouri": "MO",
	"montana": "MT", "nebraska": "NE", "nevada": "NV", "new hampshire": "NH", "new jersey": "NJ",
	"new mexico": "NM", "new york": "NY", "north carolina": "NC", "north dakota": "ND", "ohio": "OH",
	"oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT", "vermont": "VT",
	"virginia": "VA", "washington": "WA", "west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
	"district of columbia": "DC", "washington dc": "DC", "washington d.c.": "DC",
}

// NormalizeBillingState reduces free-form state input to a 2-letter code.
// Already-uppercase 2-letter input passes through; full names are looked up
// case-insensitively; other 2-char input is uppercased; anything else falls
// back to its first two characters uppercased. Best-effort by contract,
// never a validation failure.
func NormalizeBillingState(raw string) string {
	if raw == "" {
		return ""
	}

	clean := strings.TrimSpace(raw)
	if clean == "" {
		return ""
	}

	if len(clean) == 2 && clean == strings.ToUpper(clean) {
		return clean
	}

	if abbr, ok := usStates[strings.ToLower(clean)]; ok {
		return abbr
	}

	if len(clean) == 2 {
		return strings.ToUpper(clean)
	}

	r := []rune(clean)
	if len(r) <= 2 {
		return strings.ToUpper(string(r))
	}
	return strings.ToUpper(string(r[:2]))
}
