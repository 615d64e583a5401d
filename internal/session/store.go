package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
	apperrors "github.com/spec-kit/isp-routing-engine/pkg/util"
)

// Key families in the session store.
const (
	stateKeyPrefix      = "state:"
	sessionKeyPrefix    = "session:"
	sessionClientPrefix = "session_client:"
	sessionGroupPrefix  = "session_group:"
	triageRefPrefix     = "triage_msg:"
	triageRefTTL        = 48 * time.Hour
	sessionSafetyTTL    = 24 * time.Hour
)

// Store is the typed adapter over the session key-value store. Conversation
// state expires after the configured TTL; session records carry a generous
// safety TTL and are deleted explicitly on close.
type Store struct {
	client   *redis.Client
	stateTTL time.Duration
}

// NewStore wraps a redis client.
func NewStore(client *redis.Client, stateTTL time.Duration) *Store {
	return &Store{client: client, stateTTL: stateTTL}
}

// GetState loads a client's conversation state. A missing key or a document
// from an incompatible schema version resolves to nil: the conversation
// simply restarts.
func (s *Store) GetState(ctx context.Context, clientID string) (*domain.ConversationState, error) {
	raw, err := s.client.Get(ctx, stateKeyPrefix+clientID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get state", err)
	}
	var state domain.ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, nil
	}
	if state.SchemaVersion != domain.StateSchemaVersion {
		return nil, nil
	}
	return &state, nil
}

// SaveState persists conversation state, refreshing the inactivity TTL.
func (s *Store) SaveState(ctx context.Context, state *domain.ConversationState) error {
	state.SchemaVersion = domain.StateSchemaVersion
	raw, err := json.Marshal(state)
	if err != nil {
		return apperrors.NewStoreError("marshal state", err)
	}
	if err := s.client.Set(ctx, stateKeyPrefix+state.ClientID, raw, s.stateTTL).Err(); err != nil {
		return apperrors.NewStoreError("set state", err)
	}
	return nil
}

// DeleteState drops a client's conversation state unconditionally.
func (s *Store) DeleteState(ctx context.Context, clientID string) error {
	if err := s.client.Del(ctx, stateKeyPrefix+clientID).Err(); err != nil {
		return apperrors.NewStoreError("delete state", err)
	}
	return nil
}

// SaveSession writes the canonical session record and its two pointer
// mirrors. The canonical record is written first so a crash between writes
// can only leave a pointer that resolves to nothing, never a session that
// cannot be found by ticket id.
func (s *Store) SaveSession(ctx context.Context, sess *domain.Session) error {
	sess.SchemaVersion = domain.SessionSchemaVersion
	raw, err := json.Marshal(sess)
	if err != nil {
		return apperrors.NewStoreError("marshal session", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sess.TicketID, raw, sessionSafetyTTL).Err(); err != nil {
		return apperrors.NewStoreError("set session", err)
	}
	if err := s.client.Set(ctx, sessionClientPrefix+sess.ClientID, sess.TicketID, sessionSafetyTTL).Err(); err != nil {
		return apperrors.NewStoreError("set session client mirror", err)
	}
	if err := s.client.Set(ctx, sessionGroupPrefix+sess.GroupID, sess.TicketID, sessionSafetyTTL).Err(); err != nil {
		return apperrors.NewStoreError("set session group mirror", err)
	}
	return nil
}

// GetSessionByTicket loads the canonical session record.
func (s *Store) GetSessionByTicket(ctx context.Context, ticketID string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+ticketID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get session", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, nil
	}
	if sess.SchemaVersion != domain.SessionSchemaVersion {
		return nil, nil
	}
	return &sess, nil
}

// GetSessionByClient resolves a session through the client pointer mirror.
// A dangling pointer counts as no session.
func (s *Store) GetSessionByClient(ctx context.Context, clientID string) (*domain.Session, error) {
	return s.resolvePointer(ctx, sessionClientPrefix+clientID)
}

// GetSessionByGroup resolves a session through the group pointer mirror.
func (s *Store) GetSessionByGroup(ctx context.Context, groupID string) (*domain.Session, error) {
	return s.resolvePointer(ctx, sessionGroupPrefix+groupID)
}

func (s *Store) resolvePointer(ctx context.Context, key string) (*domain.Session, error) {
	ticketID, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get session mirror", err)
	}
	return s.GetSessionByTicket(ctx, ticketID)
}

// DeleteSession removes the pointer mirrors first and the canonical record
// last, the reverse of SaveSession's write order.
func (s *Store) DeleteSession(ctx context.Context, sess *domain.Session) error {
	if err := s.client.Del(ctx,
		sessionClientPrefix+sess.ClientID,
		sessionGroupPrefix+sess.GroupID,
	).Err(); err != nil {
		return apperrors.NewStoreError("delete session mirrors", err)
	}
	if err := s.client.Del(ctx, sessionKeyPrefix+sess.TicketID).Err(); err != nil {
		return apperrors.NewStoreError("delete session", err)
	}
	return nil
}

// ListSessionTicketIDs scans for all live canonical session records and
// returns their ticket ids. Used to rebuild timers and pool state after a
// restart.
func (s *Store) ListSessionTicketIDs(ctx context.Context) ([]string, error) {
	var ticketIDs []string
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ticketIDs = append(ticketIDs, iter.Val()[len(sessionKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, apperrors.NewStoreError("scan sessions", err)
	}
	return ticketIDs, nil
}

// SaveTriageRef remembers which ticket a triage notification message refers
// to, so an agent's reply can be resolved back to the ticket.
func (s *Store) SaveTriageRef(ctx context.Context, messageID, ticketID string) error {
	if err := s.client.Set(ctx, triageRefPrefix+messageID, ticketID, triageRefTTL).Err(); err != nil {
		return apperrors.NewStoreError("set triage ref", err)
	}
	return nil
}

// LookupTriageRef resolves a quoted triage notification to a ticket id.
// Returns empty when the reference is unknown or expired.
func (s *Store) LookupTriageRef(ctx context.Context, messageID string) (string, error) {
	ticketID, err := s.client.Get(ctx, triageRefPrefix+messageID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.NewStoreError("get triage ref", err)
	}
	return ticketID, nil
}
