package service

import (
	"context"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
)

// SessionStore is the conversation/session store surface the engine
// services depend on. *session.Store is the production implementation.
type SessionStore interface {
	GetState(ctx context.Context, clientID string) (*domain.ConversationState, error)
	SaveState(ctx context.Context, state *domain.ConversationState) error
	DeleteState(ctx context.Context, clientID string) error

	SaveSession(ctx context.Context, sess *domain.Session) error
	GetSessionByTicket(ctx context.Context, ticketID string) (*domain.Session, error)
	GetSessionByClient(ctx context.Context, clientID string) (*domain.Session, error)
	GetSessionByGroup(ctx context.Context, groupID string) (*domain.Session, error)
	DeleteSession(ctx context.Context, sess *domain.Session) error
	ListSessionTicketIDs(ctx context.Context) ([]string, error)

	SaveTriageRef(ctx context.Context, messageID, ticketID string) error
	LookupTriageRef(ctx context.Context, messageID string) (string, error)
}
