package template

// DefaultSections returns the starter section layout offered when a firm
// creates a template from scratch.
func DefaultSections() []Section {
	return []Section{
		{
			ID:      "intro",
			Title:   "Introduction/Letterhead",
			Content: "<p>Dear {{defendant_name}},</p><p>This letter is written on behalf of our client, {{client_name}}, regarding the incident that occurred on {{incident_date}}.</p>",
			Order:   1,
		},
		{
			ID:      "facts",
			Title:   "Statement of Facts",
			Content: "<p>On {{incident_date}}, at {{incident_location}}, the following events occurred:</p><p>[Details of the incident]</p>",
			Order:   2,
		},
		{
			ID:      "liability",
			Title:   "Legal Liability Analysis",
			Content: "<p>Based on the facts presented, {{defendant_name}} is liable for the following reasons:</p><p>[Legal analysis]</p>",
			Order:   3,
		},
		{
			ID:      "damages",
			Title:   "Damages Calculation",
			Content: "<p>Our client has suffered the following damages:</p><p>[Itemized damages]</p><p><strong>Total Demand: {{demand_amount}}</strong></p>",
			Order:   4,
		},
		{
			ID:      "demand",
			Title:   "Demand and Settlement Terms",
			Content: "<p>We demand payment of {{demand_amount}} to settle this matter. This offer is valid until {{demand_deadline}}.</p>",
			Order:   5,
		},
		{
			ID:      "closing",
			Title:   "Closing/Signature Block",
			Content: "<p>Sincerely,</p><p>{{attorney_name}}<br/>{{attorney_title}}<br/>{{firm_name}}<br/>{{firm_address}}<br/>{{firm_phone}}</p>",
			Order:   6,
		},
	}
}
