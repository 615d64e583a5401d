package transport

import "context"

// InboundMessage is one event from the chat transport's message feed.
type InboundMessage struct {
	MessageID       string `json:"message_id"`
	SenderID        string `json:"sender_id"`
	SenderName      string `json:"sender_name"`
	ChatID          string `json:"chat_id"`
	IsGroup         bool   `json:"is_group"`
	Body            string `json:"body,omitempty"`
	MediaRef        string `json:"media_ref,omitempty"`
	QuotedMessageID string `json:"quoted_message_id,omitempty"`
}

// HasMedia reports whether the message carries an attachment.
func (m InboundMessage) HasMedia() bool {
	return m.MediaRef != ""
}

// Messenger is the outbound side of the chat transport collaborator.
type Messenger interface {
	// SendText delivers a text message and returns the delivered message id.
	SendText(ctx context.Context, chatID, text string) (string, error)
	// SendMedia delivers a media attachment with an optional caption.
	SendMedia(ctx context.Context, chatID, mediaRef, caption string) error
	// ResolveQuoted fetches the original message a reply refers to.
	ResolveQuoted(ctx context.Context, messageID string) (*InboundMessage, error)
}
