package whatsapp

// WebhookRequest is the normalized inbound message, independent of whether
// the provider posted JSON or form data.
type WebhookRequest struct {
	MessageID string `json:"message_id"`
	From      string `json:"from" validate:"required,max=64"`
	Body      string `json:"body" validate:"required,max=4096"`
}

type WebhookResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
}
