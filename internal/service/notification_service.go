package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/isp-routing-engine/internal/config"
	"github.com/spec-kit/isp-routing-engine/internal/domain"
	"github.com/spec-kit/isp-routing-engine/internal/events"
	"github.com/spec-kit/isp-routing-engine/internal/transport"
)

// NotificationService turns domain events into messenger notifications:
// new tickets are announced in the triage channel, qualified leads in the
// sales channel.
type NotificationService struct {
	dispatcher events.Dispatcher
	messenger  transport.Messenger
	store      SessionStore
	logger     *zap.Logger
	cfg        config.TransportConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, messenger transport.Messenger, store SessionStore, logger *zap.Logger, cfg config.TransportConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		messenger:  messenger,
		store:      store,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventLeadQualified, n.handleLeadQualified)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		n.logger.Error("unexpected payload for ticket_created", zap.Any("payload", event.Payload))
		return nil
	}

	// The "Ticket <id>" line is load bearing: agents reply quoting this
	// message and the id is parsed back out of it when the triage ref is
	// missing.
	text := fmt.Sprintf(
		"%s *Nuevo caso de soporte*\nTicket %s\nCliente: %s (%s)\nMensaje: %s\n\n_Respondé a este mensaje para tomar el caso._",
		sentimentEmoji(payload.Sentiment),
		event.TicketID,
		payload.ClientName,
		payload.ClientID,
		payload.InitialMessage,
	)

	messageID, err := n.messenger.SendText(ctx, n.cfg.TriageChannelID, text)
	if err != nil {
		n.logger.Error("triage notification failed", zap.String("ticket_id", event.TicketID), zap.Error(err))
		return err
	}

	if err := n.store.SaveTriageRef(ctx, messageID, event.TicketID); err != nil {
		// claims still work through the quoted-body fallback
		n.logger.Warn("triage ref not saved", zap.String("ticket_id", event.TicketID), zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleLeadQualified(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.LeadQualifiedPayload)
	if !ok {
		n.logger.Error("unexpected payload for lead_qualified", zap.Any("payload", event.Payload))
		return nil
	}
	if n.cfg.SalesChannelID == "" {
		return nil
	}

	text := fmt.Sprintf("💰 *Nuevo prospecto calificado*\nNombre: %s\nChat: %s", payload.Name, payload.ChatID)
	if payload.Notes != "" {
		text += "\nNotas: " + payload.Notes
	}

	if _, err := n.messenger.SendText(ctx, n.cfg.SalesChannelID, text); err != nil {
		n.logger.Error("sales notification failed", zap.String("chat_id", payload.ChatID), zap.Error(err))
		return err
	}
	return nil
}

func sentimentEmoji(s domain.Sentiment) string {
	switch s {
	case domain.SentimentEnojado:
		return "🔴"
	case domain.SentimentFrustrado:
		return "🟠"
	case domain.SentimentContento:
		return "🟢"
	default:
		return "⚪"
	}
}
