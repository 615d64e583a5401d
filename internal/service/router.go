package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/isp-routing-engine/internal/observability"
	"github.com/spec-kit/isp-routing-engine/internal/transport"
)

// Router is the single entry point for inbound messages. It decides whether
// a message belongs to the triage channel, an active support session or the
// client conversation machine.
type Router struct {
	store           SessionStore
	triage          *TriageService
	sessions        *SessionService
	conversations   *ConversationService
	triageChannelID string
	logger          *zap.Logger
	metrics         *observability.Metrics
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	Store           SessionStore
	Triage          *TriageService
	Sessions        *SessionService
	Conversations   *ConversationService
	TriageChannelID string
	Logger          *zap.Logger
	Metrics         *observability.Metrics
}

// NewRouter constructs the router.
func NewRouter(deps RouterDependencies) *Router {
	return &Router{
		store:           deps.Store,
		triage:          deps.Triage,
		sessions:        deps.Sessions,
		conversations:   deps.Conversations,
		triageChannelID: deps.TriageChannelID,
		logger:          deps.Logger,
		metrics:         deps.Metrics,
	}
}

// Route dispatches one inbound message.
func (r *Router) Route(ctx context.Context, msg transport.InboundMessage) error {
	r.metrics.Inc(observability.MetricInboundMessages)

	if msg.IsGroup {
		if msg.ChatID == r.triageChannelID {
			return r.triage.HandleTriageMessage(ctx, msg)
		}

		sess, err := r.store.GetSessionByGroup(ctx, msg.ChatID)
		if err != nil {
			return err
		}
		if sess != nil {
			return r.sessions.HandleGroupMessage(ctx, sess, msg)
		}

		// chatter in an idle pool group
		r.logger.Debug("ignoring group message without session", zap.String("chat_id", msg.ChatID))
		return nil
	}

	return r.conversations.HandleClientMessage(ctx, msg)
}
