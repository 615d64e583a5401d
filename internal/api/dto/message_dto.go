package dto

// InboundMessageRequest is the webhook payload posted by the messaging
// gateway for every received message.
type InboundMessageRequest struct {
	MessageID       string `json:"message_id"`
	SenderID        string `json:"sender_id"`
	SenderName      string `json:"sender_name"`
	ChatID          string `json:"chat_id"`
	IsGroup         bool   `json:"is_group"`
	Body            string `json:"body"`
	MediaRef        string `json:"media_ref,omitempty"`
	QuotedMessageID string `json:"quoted_message_id,omitempty"`
}
