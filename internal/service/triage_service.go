package service

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
	"github.com/spec-kit/isp-routing-engine/internal/events"
	"github.com/spec-kit/isp-routing-engine/internal/observability"
	"github.com/spec-kit/isp-routing-engine/internal/repository"
	"github.com/spec-kit/isp-routing-engine/internal/transport"
)

// ticketRefPattern extracts the ticket id embedded in a triage notification,
// the fallback when the message-id reference expired.
var ticketRefPattern = regexp.MustCompile(`Ticket ([0-9a-fA-F-]{36})`)

// TriageService resolves agent claim replies on the triage channel into
// bound sessions. The first valid claim wins; later claims on the same
// ticket are no-ops.
type TriageService struct {
	tickets         repository.TicketRepository
	pool            *GroupPool
	store           SessionStore
	sessions        *SessionService
	messenger       transport.Messenger
	dispatcher      events.Dispatcher
	logger          *zap.Logger
	metrics         *observability.Metrics
	triageChannelID string
}

// TriageDependencies bundles collaborators for the triage service.
type TriageDependencies struct {
	TicketRepo      repository.TicketRepository
	Pool            *GroupPool
	Store           SessionStore
	Sessions        *SessionService
	Messenger       transport.Messenger
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	Metrics         *observability.Metrics
	TriageChannelID string
}

// NewTriageService constructs the service.
func NewTriageService(deps TriageDependencies) *TriageService {
	return &TriageService{
		tickets:         deps.TicketRepo,
		pool:            deps.Pool,
		store:           deps.Store,
		sessions:        deps.Sessions,
		messenger:       deps.Messenger,
		dispatcher:      deps.Dispatcher,
		logger:          deps.Logger,
		metrics:         deps.Metrics,
		triageChannelID: deps.TriageChannelID,
	}
}

// HandleTriageMessage processes a message on the triage channel. Only
// replies to a prior ticket notification count as claims; anything else is
// channel chatter and gets ignored.
func (t *TriageService) HandleTriageMessage(ctx context.Context, msg transport.InboundMessage) error {
	if msg.QuotedMessageID == "" {
		return nil
	}

	ticketID, err := t.resolveTicketID(ctx, msg.QuotedMessageID)
	if err != nil {
		return err
	}
	if ticketID == "" {
		return nil
	}

	ticket, err := t.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Status != domain.TicketStatusPending {
		// already claimed or closed; a lost race is a defined no-op
		t.metrics.Inc(observability.MetricClaimRaceLost)
		t.logger.Debug("claim on non-pending ticket ignored",
			zap.String("ticket_id", ticketID),
			zap.String("agent_id", msg.SenderID))
		return nil
	}

	groupID, ok := t.pool.Allocate()
	if !ok {
		if _, err := t.messenger.SendText(ctx, t.triageChannelID, "⚠️ No hay grupos de atención libres. El ticket sigue pendiente."); err != nil {
			t.logger.Warn("no-agents notice failed", zap.Error(err))
		}
		return nil
	}

	claimed, err := t.tickets.ClaimPending(ctx, ticketID, msg.SenderID, groupID)
	if err != nil {
		t.pool.Release(groupID)
		return err
	}
	if !claimed {
		// another agent won between the status read and the swap
		t.pool.Release(groupID)
		t.metrics.Inc(observability.MetricClaimRaceLost)
		return nil
	}

	sess := &domain.Session{
		TicketID:   ticket.ID,
		ClientID:   ticket.ClientID,
		ClientName: ticket.ClientName,
		GroupID:    groupID,
		AgentID:    msg.SenderID,
	}
	if err := t.sessions.Open(ctx, sess); err != nil {
		return err
	}

	t.metrics.Inc(observability.MetricTicketsClaimed)
	t.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClaimed,
		TicketID: ticket.ID,
		Payload: events.TicketClaimedPayload{
			AgentID:    msg.SenderID,
			GroupID:    groupID,
			ClientID:   ticket.ClientID,
			ClientName: ticket.ClientName,
		},
	})

	claimNotice := fmt.Sprintf("✋ %s tomó el ticket de %s.", msg.SenderName, ticket.ClientName)
	if _, err := t.messenger.SendText(ctx, t.triageChannelID, claimNotice); err != nil {
		t.logger.Warn("claim announcement failed", zap.Error(err))
	}

	brief := fmt.Sprintf("📋 Nuevo caso asignado\nCliente: %s\nMensaje inicial: %s\n\nEscribí acá para hablar con el cliente. Comandos: /fin, /agendar <fecha>", ticket.ClientName, ticket.InitialMessage)
	if _, err := t.messenger.SendText(ctx, groupID, brief); err != nil {
		t.logger.Warn("case brief delivery failed", zap.String("group_id", groupID), zap.Error(err))
	}
	return nil
}

// resolveTicketID maps a quoted notification message to a ticket id, first
// through the stored reference, then by re-reading the original message.
func (t *TriageService) resolveTicketID(ctx context.Context, quotedMessageID string) (string, error) {
	ticketID, err := t.store.LookupTriageRef(ctx, quotedMessageID)
	if err != nil {
		return "", err
	}
	if ticketID != "" {
		return ticketID, nil
	}

	original, err := t.messenger.ResolveQuoted(ctx, quotedMessageID)
	if err != nil || original == nil {
		return "", nil
	}
	if match := ticketRefPattern.FindStringSubmatch(original.Body); match != nil {
		return match[1], nil
	}
	return "", nil
}

func (t *TriageService) publishEvent(ctx context.Context, event events.Event) {
	if t.dispatcher == nil {
		return
	}
	publishWithDefaults(ctx, t.dispatcher, event)
}
