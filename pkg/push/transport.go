package push

import "context"

// Transport delivers push notifications to devices.
// Delivery is best-effort: (false, nil) is only returned when there were no
// device tokens to deliver to.
type Transport interface {
	Send(ctx context.Context, deviceTokens []string, title, body string, data map[string]string) (bool, error)
}

// Message is the payload handed to the push provider
type Message struct {
	DeviceTokens []string          `json:"device_tokens"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Data         map[string]string `json:"data,omitempty"`
}
