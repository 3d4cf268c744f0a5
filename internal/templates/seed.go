package templates

import "chandlery/internal"

// Defaults are the built-in templates installed by `chandlery templates:seed`.
func Defaults() []internal.EmailTemplate {
	return []internal.EmailTemplate{
		{
			Name:    "standard-quotation",
			Subject: "Quotation request {{po_number}} - {{supplier_name}}",
			Content: `Dear {{supplier_name}},

Please quote the following items for {{ship_code}} voyage {{voyage_number}}, delivery {{delivery_date}}:

{{product_list}}

Estimated order value: {{total_value}}.

Best regards,
{{sender_name}}
{{sender_email}}`,
		},
		{
			Name:    "urgent-order",
			Subject: "URGENT {{po_number}}: provision order for {{ship_code}}",
			Content: `Dear {{supplier_name}},

We need the {{product_count}} items below confirmed within 24 hours, delivery {{delivery_date}}:

{{product_list}}

Total: {{total_value}}

{{sender_name}}`,
		},
	}
}
