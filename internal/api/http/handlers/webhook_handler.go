package handlers

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/isp-routing-engine/internal/api/dto"
	"github.com/spec-kit/isp-routing-engine/internal/service"
	"github.com/spec-kit/isp-routing-engine/internal/transport"
	apperrors "github.com/spec-kit/isp-routing-engine/pkg/util"
)

const webhookSecretHeader = "X-Webhook-Secret"

// WebhookHandler receives inbound message callbacks from the messaging
// gateway and feeds them to the router.
type WebhookHandler struct {
	router *service.Router
	secret string
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(router *service.Router, secret string) *WebhookHandler {
	return &WebhookHandler{router: router, secret: secret}
}

// ReceiveMessage POST /webhook/message.
func (h *WebhookHandler) ReceiveMessage(c *fiber.Ctx) error {
	if h.secret != "" {
		provided := c.Get(webhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
			return apperrors.NewUnauthorized("invalid webhook secret")
		}
	}

	var req dto.InboundMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.SenderID == "" || req.ChatID == "" {
		return apperrors.NewValidationError("sender_id and chat_id required", nil)
	}

	msg := transport.InboundMessage{
		MessageID:       req.MessageID,
		SenderID:        req.SenderID,
		SenderName:      req.SenderName,
		ChatID:          req.ChatID,
		IsGroup:         req.IsGroup,
		Body:            req.Body,
		MediaRef:        req.MediaRef,
		QuotedMessageID: req.QuotedMessageID,
	}
	if err := h.router.Route(c.UserContext(), msg); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}
