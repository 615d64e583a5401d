package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
	"github.com/spec-kit/isp-routing-engine/internal/repository"
	"github.com/spec-kit/isp-routing-engine/internal/transport"
)

// fakeStore is an in-memory SessionStore. failSessionReads makes the next N
// GetSessionByTicket calls fail, simulating a store outage.
type fakeStore struct {
	mu               sync.Mutex
	states           map[string]*domain.ConversationState
	sessions         map[string]*domain.Session
	byClient         map[string]string
	byGroup          map[string]string
	triageRefs       map[string]string
	failSessionReads int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		states:     make(map[string]*domain.ConversationState),
		sessions:   make(map[string]*domain.Session),
		byClient:   make(map[string]string),
		byGroup:    make(map[string]string),
		triageRefs: make(map[string]string),
	}
}

func (f *fakeStore) GetState(_ context.Context, clientID string) (*domain.ConversationState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[clientID]
	if !ok {
		return nil, nil
	}
	copied := *state
	return &copied, nil
}

func (f *fakeStore) SaveState(_ context.Context, state *domain.ConversationState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *state
	f.states[state.ClientID] = &copied
	return nil
}

func (f *fakeStore) DeleteState(_ context.Context, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, clientID)
	return nil
}

func (f *fakeStore) SaveSession(_ context.Context, sess *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *sess
	f.sessions[sess.TicketID] = &copied
	f.byClient[sess.ClientID] = sess.TicketID
	f.byGroup[sess.GroupID] = sess.TicketID
	return nil
}

func (f *fakeStore) GetSessionByTicket(_ context.Context, ticketID string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSessionReads > 0 {
		f.failSessionReads--
		return nil, errors.New("session store unavailable")
	}
	sess, ok := f.sessions[ticketID]
	if !ok {
		return nil, nil
	}
	copied := *sess
	return &copied, nil
}

func (f *fakeStore) GetSessionByClient(ctx context.Context, clientID string) (*domain.Session, error) {
	f.mu.Lock()
	ticketID, ok := f.byClient[clientID]
	f.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return f.GetSessionByTicket(ctx, ticketID)
}

func (f *fakeStore) GetSessionByGroup(ctx context.Context, groupID string) (*domain.Session, error) {
	f.mu.Lock()
	ticketID, ok := f.byGroup[groupID]
	f.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return f.GetSessionByTicket(ctx, ticketID)
}

func (f *fakeStore) DeleteSession(_ context.Context, sess *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sess.TicketID)
	delete(f.byClient, sess.ClientID)
	delete(f.byGroup, sess.GroupID)
	return nil
}

func (f *fakeStore) ListSessionTicketIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.sessions))
	for id := range f.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStore) SaveTriageRef(_ context.Context, messageID, ticketID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triageRefs[messageID] = ticketID
	return nil
}

func (f *fakeStore) LookupTriageRef(_ context.Context, messageID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.triageRefs[messageID], nil
}

func (f *fakeStore) hasState(clientID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.states[clientID]
	return ok
}

type sentMessage struct {
	ChatID   string
	Text     string
	MediaRef string
}

// fakeMessenger records every outbound message and serves quoted lookups
// from a seeded map.
type fakeMessenger struct {
	mu     sync.Mutex
	sent   []sentMessage
	quoted map[string]*transport.InboundMessage
	nextID int
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{quoted: make(map[string]*transport.InboundMessage)}
}

func (f *fakeMessenger) SendText(_ context.Context, chatID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	f.nextID++
	return fmt.Sprintf("msg-%d", f.nextID), nil
}

func (f *fakeMessenger) SendMedia(_ context.Context, chatID, mediaRef, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: caption, MediaRef: mediaRef})
	return nil
}

func (f *fakeMessenger) ResolveQuoted(_ context.Context, messageID string) (*transport.InboundMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quoted[messageID], nil
}

// textsTo returns every text sent to a chat, in order.
func (f *fakeMessenger) textsTo(chatID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var texts []string
	for _, m := range f.sent {
		if m.ChatID == chatID {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

func (f *fakeMessenger) countContaining(chatID, substr string) int {
	n := 0
	for _, text := range f.textsTo(chatID) {
		if strings.Contains(text, substr) {
			n++
		}
	}
	return n
}

// fakeClassifier returns scripted labels. Zero values degrade the same way
// the production fallbacks do.
type fakeClassifier struct {
	intent       domain.Intent
	sentiment    domain.Sentiment
	confirmation domain.Confirmation
	answer       string
	salesReplies []string

	mu         sync.Mutex
	salesCalls int
}

func (f *fakeClassifier) Intent(_ context.Context, _ string) (domain.Intent, error) {
	if f.intent == "" {
		return domain.IntentPreguntaGeneral, nil
	}
	return f.intent, nil
}

func (f *fakeClassifier) Sentiment(_ context.Context, _ string) (domain.Sentiment, error) {
	if f.sentiment == "" {
		return domain.SentimentNeutro, nil
	}
	return f.sentiment, nil
}

func (f *fakeClassifier) Confirm(_ context.Context, _ string) (domain.Confirmation, error) {
	if f.confirmation == "" {
		return domain.ConfirmationNo, nil
	}
	return f.confirmation, nil
}

func (f *fakeClassifier) Answer(_ context.Context, _ []domain.ChatTurn) (string, error) {
	return f.answer, nil
}

func (f *fakeClassifier) SalesReply(_ context.Context, _ []domain.ChatTurn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.salesReplies) == 0 {
		return "", errors.New("no scripted sales reply")
	}
	i := f.salesCalls
	if i >= len(f.salesReplies) {
		i = len(f.salesReplies) - 1
	}
	f.salesCalls++
	return f.salesReplies[i], nil
}

// fakeTicketRepo keeps tickets in a map with the same compare-and-swap
// claim semantics as the SQL implementation.
type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, errors.New("ticket not found")
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketRepo) GetOpenByClient(_ context.Context, clientID string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ticket := range f.tickets {
		if ticket.ClientID == clientID && ticket.Open() {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeTicketRepo) ClaimPending(_ context.Context, id, agentID, groupID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok || ticket.Status != domain.TicketStatusPending {
		return false, nil
	}
	ticket.Status = domain.TicketStatusInProgress
	ticket.AssignedAgentID = &agentID
	ticket.AssignedGroupID = &groupID
	return true, nil
}

func (f *fakeTicketRepo) Close(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket, ok := f.tickets[id]; ok {
		ticket.Status = domain.TicketStatusClosed
	}
	return nil
}

func (f *fakeTicketRepo) status(id string) domain.TicketStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket, ok := f.tickets[id]; ok {
		return ticket.Status
	}
	return ""
}

type fakeClientRepo struct {
	byPhone  map[string]*domain.ClientProfile
	byDNI    map[string]*domain.ClientProfile
	invoices []domain.Invoice
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{
		byPhone: make(map[string]*domain.ClientProfile),
		byDNI:   make(map[string]*domain.ClientProfile),
	}
}

func (f *fakeClientRepo) GetByPhone(_ context.Context, phone string) (*domain.ClientProfile, error) {
	return f.byPhone[phone], nil
}

func (f *fakeClientRepo) GetByDNI(_ context.Context, dni string) (*domain.ClientProfile, error) {
	return f.byDNI[dni], nil
}

func (f *fakeClientRepo) ListPendingInvoices(_ context.Context, _ string) ([]domain.Invoice, error) {
	return f.invoices, nil
}

type fakeLeadRepo struct {
	mu      sync.Mutex
	created []domain.SalesLead
	updates map[string]domain.LeadStatus
	notes   map[string]string
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{
		updates: make(map[string]domain.LeadStatus),
		notes:   make(map[string]string),
	}
}

func (f *fakeLeadRepo) Create(_ context.Context, lead *domain.SalesLead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *lead)
	return nil
}

func (f *fakeLeadRepo) UpdateStatus(_ context.Context, chatID string, status domain.LeadStatus, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[chatID] = status
	f.notes[chatID] = notes
	return nil
}

type fakeReceiptRepo struct {
	mu      sync.Mutex
	created []domain.PaymentReceipt
	bound   map[string]string
}

func newFakeReceiptRepo() *fakeReceiptRepo {
	return &fakeReceiptRepo{bound: make(map[string]string)}
}

func (f *fakeReceiptRepo) Create(_ context.Context, receipt *domain.PaymentReceipt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *receipt)
	return nil
}

func (f *fakeReceiptRepo) BindToClient(_ context.Context, chatID, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bound[chatID] = clientID
	return nil
}

func (f *fakeReceiptRepo) GetLatestUnmatched(_ context.Context, _ string) (*domain.PaymentReceipt, error) {
	return nil, nil
}

type fakeQRGenerator struct {
	mediaRef string
	err      error
}

func (f *fakeQRGenerator) GenerateQR(_ context.Context, _ domain.ClientProfile, _ domain.Invoice) (string, error) {
	return f.mediaRef, f.err
}

type fakeMenuRepo struct {
	nodes []domain.MenuNode
}

func (f *fakeMenuRepo) GetNode(_ context.Context, id string) (*domain.MenuNode, error) {
	for i := range f.nodes {
		if f.nodes[i].ID == id {
			return &f.nodes[i], nil
		}
	}
	return nil, nil
}

func (f *fakeMenuRepo) ListChildren(_ context.Context, parentID *string) ([]domain.MenuNode, error) {
	var out []domain.MenuNode
	for _, node := range f.nodes {
		switch {
		case parentID == nil && node.ParentID == nil:
			out = append(out, node)
		case parentID != nil && node.ParentID != nil && *node.ParentID == *parentID:
			out = append(out, node)
		}
	}
	return out, nil
}

func (f *fakeMenuRepo) Count(_ context.Context) (int, error) {
	return len(f.nodes), nil
}

func (f *fakeMenuRepo) Insert(_ context.Context, node *domain.MenuNode) error {
	f.nodes = append(f.nodes, *node)
	return nil
}

var _ repository.MenuRepository = (*fakeMenuRepo)(nil)
var _ repository.TicketRepository = (*fakeTicketRepo)(nil)
var _ SessionStore = (*fakeStore)(nil)
