package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
	"github.com/spec-kit/isp-routing-engine/internal/events"
	"github.com/spec-kit/isp-routing-engine/internal/nlp"
	"github.com/spec-kit/isp-routing-engine/internal/observability"
	"github.com/spec-kit/isp-routing-engine/internal/repository"
	"github.com/spec-kit/isp-routing-engine/internal/transport"
)

// Agent commands inside an assigned group.
const (
	commandFinish   = "/fin"
	commandSchedule = "/agendar"
)

// SessionService owns the runtime sessions: the inactivity timers, the
// bidirectional relay and the appointment sub-dialogue. Sessions are
// mirrored into the session store so the service can be restarted, but the
// timers live here.
type SessionService struct {
	store      SessionStore
	pool       *GroupPool
	tickets    repository.TicketRepository
	messenger  transport.Messenger
	classifier nlp.Classifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	timeout    time.Duration

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	closed bool
}

// SessionDependencies bundles collaborators for the session service.
type SessionDependencies struct {
	Store      SessionStore
	Pool       *GroupPool
	TicketRepo repository.TicketRepository
	Messenger  transport.Messenger
	Classifier nlp.Classifier
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Timeout    time.Duration
}

// NewSessionService constructs the service.
func NewSessionService(deps SessionDependencies) *SessionService {
	return &SessionService{
		store:      deps.Store,
		pool:       deps.Pool,
		tickets:    deps.TicketRepo,
		messenger:  deps.Messenger,
		classifier: deps.Classifier,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		timeout:    deps.Timeout,
		entries:    make(map[string]*sessionEntry),
	}
}

// Open persists a freshly bound session and starts its inactivity timer.
func (s *SessionService) Open(ctx context.Context, sess *domain.Session) error {
	sess.LastActivity = time.Now()
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return err
	}

	entry := &sessionEntry{}
	ticketID := sess.TicketID
	entry.timer = time.AfterFunc(s.timeout, func() { s.expire(ticketID, 0) })

	s.mu.Lock()
	s.entries[ticketID] = entry
	s.mu.Unlock()

	s.logger.Info("session opened",
		zap.String("ticket_id", sess.TicketID),
		zap.String("client_id", sess.ClientID),
		zap.String("group_id", sess.GroupID))
	return nil
}

// Recover rebuilds timers and pool state from sessions that survived a
// restart. Each recovered session gets a fresh full inactivity window.
func (s *SessionService) Recover(ctx context.Context) error {
	ticketIDs, err := s.store.ListSessionTicketIDs(ctx)
	if err != nil {
		return err
	}
	for _, ticketID := range ticketIDs {
		sess, err := s.store.GetSessionByTicket(ctx, ticketID)
		if err != nil || sess == nil {
			continue
		}
		s.pool.MarkBusy(sess.GroupID)

		entry := &sessionEntry{}
		id := ticketID
		entry.timer = time.AfterFunc(s.timeout, func() { s.expire(id, 0) })
		s.mu.Lock()
		s.entries[ticketID] = entry
		s.mu.Unlock()

		s.logger.Info("session recovered", zap.String("ticket_id", ticketID), zap.String("group_id", sess.GroupID))
	}
	return nil
}

// ResetTimer reschedules the inactivity timeout a full window into the
// future and persists the new activity timestamp.
func (s *SessionService) ResetTimer(ctx context.Context, sess *domain.Session) {
	entry := s.entry(sess.TicketID)
	if entry == nil {
		return
	}
	entry.mu.Lock()
	if entry.closed {
		entry.mu.Unlock()
		return
	}
	// Stop may report the old timer already fired; bumping the generation
	// invalidates its queued expiry either way.
	entry.timer.Stop()
	entry.gen++
	gen := entry.gen
	ticketID := sess.TicketID
	entry.timer = time.AfterFunc(s.timeout, func() { s.expire(ticketID, gen) })
	entry.mu.Unlock()

	sess.LastActivity = time.Now()
	if err := s.store.SaveSession(ctx, sess); err != nil {
		s.logger.Warn("persist session activity failed", zap.String("ticket_id", sess.TicketID), zap.Error(err))
	}
}

// Close tears a session down: cancel the timer, drop the store mirrors,
// free the pool channel, close the ticket and notify both sides. It is
// idempotent; a timer firing concurrently with an explicit /fin results in
// exactly one closure.
func (s *SessionService) Close(ctx context.Context, ticketID, reason string) error {
	entry := s.entry(ticketID)
	if entry == nil {
		return nil
	}
	entry.mu.Lock()
	if entry.closed {
		entry.mu.Unlock()
		return nil
	}

	// Persistence first: on a transient store failure the entry stays live
	// with its timer armed, so a later /fin or expiry retries the close
	// instead of leaking the pool channel and the open ticket.
	sess, err := s.store.GetSessionByTicket(ctx, ticketID)
	if err != nil {
		entry.mu.Unlock()
		return err
	}
	if err := s.tickets.Close(ctx, ticketID); err != nil {
		entry.mu.Unlock()
		return err
	}

	entry.closed = true
	entry.timer.Stop()
	entry.mu.Unlock()

	s.mu.Lock()
	delete(s.entries, ticketID)
	s.mu.Unlock()

	groupID := ""
	if sess != nil {
		groupID = sess.GroupID
		if err := s.store.DeleteSession(ctx, sess); err != nil {
			s.logger.Warn("delete session mirrors failed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
		// the client starts a fresh conversation after closure
		if err := s.store.DeleteState(ctx, sess.ClientID); err != nil {
			s.logger.Warn("delete conversation state failed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
		s.pool.Release(sess.GroupID)

		notice := fmt.Sprintf("✅ Caso cerrado: %s.", reason)
		if _, err := s.messenger.SendText(ctx, sess.ClientID, notice+" ¡Gracias por comunicarte!"); err != nil {
			s.logger.Warn("client closure notice failed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
		if _, err := s.messenger.SendText(ctx, sess.GroupID, notice); err != nil {
			s.logger.Warn("group closure notice failed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
	}

	s.metrics.Inc(observability.MetricTicketsClosed)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClosed,
		TicketID: ticketID,
		Payload:  events.TicketClosedPayload{Reason: reason, GroupID: groupID},
	})
	s.logger.Info("session closed", zap.String("ticket_id", ticketID), zap.String("reason", reason))
	return nil
}

// RelayToAgent forwards a client message into the assigned group, prefixed
// with the client's name, then resets the inactivity timer. Delivery is
// best-effort: a transport failure never closes the session.
func (s *SessionService) RelayToAgent(ctx context.Context, sess *domain.Session, msg transport.InboundMessage) {
	var err error
	if msg.HasMedia() {
		err = s.messenger.SendMedia(ctx, sess.GroupID, msg.MediaRef, fmt.Sprintf("*%s:* %s", sess.ClientName, msg.Body))
	} else {
		_, err = s.messenger.SendText(ctx, sess.GroupID, fmt.Sprintf("*%s:* %s", sess.ClientName, msg.Body))
	}
	if err != nil {
		s.logger.Warn("relay to agent failed", zap.String("ticket_id", sess.TicketID), zap.Error(err))
	}
	s.metrics.Inc(observability.MetricRelaysToAgent)
	s.ResetTimer(ctx, sess)
}

// RelayToClient forwards an agent message back to the client, then resets
// the inactivity timer.
func (s *SessionService) RelayToClient(ctx context.Context, sess *domain.Session, msg transport.InboundMessage) {
	var err error
	if msg.HasMedia() {
		err = s.messenger.SendMedia(ctx, sess.ClientID, msg.MediaRef, msg.Body)
	} else {
		_, err = s.messenger.SendText(ctx, sess.ClientID, msg.Body)
	}
	if err != nil {
		s.logger.Warn("relay to client failed", zap.String("ticket_id", sess.TicketID), zap.Error(err))
	}
	s.metrics.Inc(observability.MetricRelaysToClient)
	s.ResetTimer(ctx, sess)
}

// HandleGroupMessage processes a message from an assigned group: agent
// commands first, anything else relays to the client.
func (s *SessionService) HandleGroupMessage(ctx context.Context, sess *domain.Session, msg transport.InboundMessage) error {
	body := strings.TrimSpace(msg.Body)
	lower := strings.ToLower(body)

	switch {
	case lower == commandFinish:
		return s.Close(ctx, sess.TicketID, domain.CloseReasonAgentResolved)
	case strings.HasPrefix(lower, commandSchedule):
		return s.proposeAppointment(ctx, sess, strings.TrimSpace(body[len(commandSchedule):]))
	default:
		s.RelayToClient(ctx, sess, msg)
		return nil
	}
}

// HandleClientMessage processes a message from a client with an active
// session: a pending appointment consumes the turn as a yes/no answer,
// anything else relays to the assigned group.
func (s *SessionService) HandleClientMessage(ctx context.Context, sess *domain.Session, msg transport.InboundMessage) error {
	if sess.PendingAppointment != nil {
		return s.resolveAppointment(ctx, sess, msg.Body)
	}
	s.RelayToAgent(ctx, sess, msg)
	return nil
}

func (s *SessionService) proposeAppointment(ctx context.Context, sess *domain.Session, text string) error {
	when, ok := ParseSpanishDate(text, time.Now())
	if !ok {
		if _, err := s.messenger.SendText(ctx, sess.GroupID, "No entendí la fecha. Probá por ejemplo: /agendar mañana a las 10"); err != nil {
			s.logger.Warn("schedule hint failed", zap.Error(err))
		}
		return nil
	}

	sess.PendingAppointment = &domain.Appointment{When: when, RawText: text}
	// The appointment proposal does not count as session activity, so the
	// store write bypasses ResetTimer.
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return err
	}

	prompt := fmt.Sprintf("🗓 Te proponemos una visita el %s. ¿Te queda bien? Respondé sí o no.", when.Format("02/01 15:04"))
	if _, err := s.messenger.SendText(ctx, sess.ClientID, prompt); err != nil {
		s.logger.Warn("appointment proposal failed", zap.String("ticket_id", sess.TicketID), zap.Error(err))
	}
	return nil
}

func (s *SessionService) resolveAppointment(ctx context.Context, sess *domain.Session, answer string) error {
	confirmation, err := s.classifier.Confirm(ctx, answer)
	if err != nil {
		// never auto-confirm an ambiguous or failed classification
		s.metrics.Inc(observability.MetricClassifierFallbacks)
		confirmation = domain.ConfirmationNo
	}

	appointment := sess.PendingAppointment
	// Cleared after a single yes/no answer regardless of outcome.
	sess.PendingAppointment = nil
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return err
	}

	if confirmation == domain.ConfirmationYes {
		notice := fmt.Sprintf("✅ El cliente confirmó la visita del %s.", appointment.When.Format("02/01 15:04"))
		if _, err := s.messenger.SendText(ctx, sess.GroupID, notice); err != nil {
			s.logger.Warn("appointment confirmation notice failed", zap.Error(err))
		}
		if _, err := s.messenger.SendText(ctx, sess.ClientID, "¡Listo! Agendamos la visita. Te esperamos."); err != nil {
			s.logger.Warn("appointment client ack failed", zap.Error(err))
		}
		return nil
	}

	if _, err := s.messenger.SendText(ctx, sess.GroupID, "❌ El cliente no confirmó la visita propuesta."); err != nil {
		s.logger.Warn("appointment rejection notice failed", zap.Error(err))
	}
	if _, err := s.messenger.SendText(ctx, sess.ClientID, "Entendido, no agendamos la visita."); err != nil {
		s.logger.Warn("appointment client ack failed", zap.Error(err))
	}
	return nil
}

func (s *SessionService) expire(ticketID string, gen uint64) {
	entry := s.entry(ticketID)
	if entry == nil {
		return
	}
	entry.mu.Lock()
	stale := entry.closed || entry.gen != gen
	entry.mu.Unlock()
	if stale {
		// the timeout was rescheduled or the session already closed while
		// this expiry was queued
		return
	}

	s.metrics.Inc(observability.MetricInactivityTimeouts)
	if err := s.Close(context.Background(), ticketID, domain.CloseReasonInactivity); err != nil {
		s.logger.Error("inactivity close failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *SessionService) entry(ticketID string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[ticketID]
}

func (s *SessionService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	publishWithDefaults(ctx, s.dispatcher, event)
}
