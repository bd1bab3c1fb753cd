package notify

import (
	"fmt"

	"delivery-ops-service/internal/ports"
)

// Render builds the customer-facing text for a notification kind.
func Render(kind ports.TemplateKind, params map[string]string) (string, error) {
	name := params["customerName"]
	if name == "" {
		name = "there"
	}
	order := params["orderId"]

	switch kind {
	case ports.TemplateOnRoute:
		msg := fmt.Sprintf("Hi %s, your order #%s is on its way.", name, order)
		if eta := params["eta"]; eta != "" {
			msg += fmt.Sprintf(" Expected arrival around %s.", eta)
		}
		return msg, nil
	case ports.TemplateDelayed:
		msg := fmt.Sprintf("Hi %s, your order #%s is running late", name, order)
		if d := params["delayMinutes"]; d != "" {
			msg += fmt.Sprintf(" by about %s minutes", d)
		}
		msg += "."
		if eta := params["eta"]; eta != "" {
			msg += fmt.Sprintf(" New arrival time: %s.", eta)
		}
		return msg, nil
	case ports.TemplateDelivered:
		return fmt.Sprintf("Hi %s, your order #%s has been delivered. Thank you!", name, order), nil
	default:
		return "", fmt.Errorf("unknown notification template %q", kind)
	}
}
