package template

import "sort"

// availableVariables is the fixed catalog of recognized placeholder names.
// It is read-only after process start; handlers expose it verbatim.
var availableVariables = map[string]string{
	// Client information
	"client_name":    "Client full name",
	"client_address": "Client address",
	"client_phone":   "Client phone number",
	"client_email":   "Client email address",

	// Defendant information
	"defendant_name":    "Defendant full name",
	"defendant_address": "Defendant address",

	// Incident information
	"incident_date":     "Date of incident",
	"incident_location": "Location of incident",

	// Demand information
	"demand_amount":   "Demand amount",
	"demand_deadline": "Deadline for response",

	// Firm information
	"firm_name":    "Law firm name",
	"firm_address": "Law firm address",
	"firm_phone":   "Law firm phone number",

	// Attorney information
	"attorney_name":       "Attorney name",
	"attorney_title":      "Attorney title",
	"attorney_bar_number": "Attorney bar number",

	// Case information
	"case_reference": "Case reference number",
	"case_type":      "Type of case",
}

// ListAvailable returns a copy of the variable catalog.
func ListAvailable() map[string]string {
	out := make(map[string]string, len(availableVariables))
	for name, desc := range availableVariables {
		out[name] = desc
	}
	return out
}

// CatalogNames returns the catalog's variable names in sorted order.
func CatalogNames() []string {
	names := make([]string, 0, len(availableVariables))
	for name := range availableVariables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsKnown reports whether name is in the variable catalog.
func IsKnown(name string) bool {
	_, ok := availableVariables[name]
	return ok
}
