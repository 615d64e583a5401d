package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
	"github.com/spec-kit/isp-routing-engine/internal/events"
	"github.com/spec-kit/isp-routing-engine/internal/menu"
	"github.com/spec-kit/isp-routing-engine/internal/observability"
	"github.com/spec-kit/isp-routing-engine/internal/transport"
)

type conversationFixture struct {
	svc        *ConversationService
	sessions   *SessionService
	store      *fakeStore
	messenger  *fakeMessenger
	classifier *fakeClassifier
	tickets    *fakeTicketRepo
	clients    *fakeClientRepo
	leads      *fakeLeadRepo
	dispatcher events.Dispatcher
}

func newConversationFixture(t *testing.T) *conversationFixture {
	t.Helper()
	f := &conversationFixture{
		store:      newFakeStore(),
		messenger:  newFakeMessenger(),
		classifier: &fakeClassifier{},
		tickets:    newFakeTicketRepo(),
		clients:    newFakeClientRepo(),
		leads:      newFakeLeadRepo(),
		dispatcher: events.NewInMemoryDispatcher(),
	}
	metrics := observability.NewMetrics()
	f.sessions = NewSessionService(SessionDependencies{
		Store:      f.store,
		Pool:       NewGroupPool([]string{"group-1"}),
		TicketRepo: f.tickets,
		Messenger:  f.messenger,
		Classifier: f.classifier,
		Dispatcher: f.dispatcher,
		Logger:     zap.NewNop(),
		Metrics:    metrics,
		Timeout:    time.Hour,
	})
	f.svc = NewConversationService(ConversationDependencies{
		Store:       f.store,
		Menus:       menu.NewResolver(&fakeMenuRepo{}),
		ClientRepo:  f.clients,
		TicketRepo:  f.tickets,
		ReceiptRepo: newFakeReceiptRepo(),
		LeadRepo:    f.leads,
		Classifier:  f.classifier,
		Messenger:   f.messenger,
		QRGenerator: &fakeQRGenerator{},
		Sessions:    f.sessions,
		Dispatcher:  f.dispatcher,
		Logger:      zap.NewNop(),
		Metrics:     metrics,
	})
	return f
}

func clientMessage(senderID, body string) transport.InboundMessage {
	return transport.InboundMessage{
		MessageID:  "in-" + body,
		SenderID:   senderID,
		SenderName: "Cliente",
		ChatID:     senderID,
		Body:       body,
	}
}

func (f *conversationFixture) handle(t *testing.T, msg transport.InboundMessage) {
	t.Helper()
	if err := f.svc.HandleClientMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle %q: %v", msg.Body, err)
	}
}

func TestSalesDialogueQualifiesLead(t *testing.T) {
	f := newConversationFixture(t)
	chatID := "549117770001"
	ctx := context.Background()

	f.classifier.salesReplies = []string{
		"¡Genial, tenemos cobertura en tu zona! ¿Querés que te contacte un asesor? [DIRECCION_DETECTADA]",
	}
	f.classifier.confirmation = domain.ConfirmationYes

	var qualified *events.LeadQualifiedPayload
	f.dispatcher.Subscribe(events.EventLeadQualified, func(_ context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.LeadQualifiedPayload); ok {
			qualified = &payload
		}
		return nil
	})

	// Unknown phone: first contact asks for an identifier.
	f.handle(t, clientMessage(chatID, "hola"))
	if n := f.messenger.countContaining(chatID, "pasame tu DNI"); n != 1 {
		t.Fatal("first contact did not ask for an identifier")
	}

	// Unknown DNI hands over to the sales dialogue.
	f.handle(t, clientMessage(chatID, "30.123.456"))
	if n := f.messenger.countContaining(chatID, "No encontré ese número"); n != 1 {
		t.Fatal("unknown DNI did not start the prospect path")
	}

	// The name seeds the lead and the scripted reply carries the
	// address-found tag, moving to confirmation.
	f.handle(t, clientMessage(chatID, "Juan Perez"))
	if len(f.leads.created) != 1 {
		t.Fatalf("leads created = %d, want 1", len(f.leads.created))
	}
	if lead := f.leads.created[0]; lead.Name != "Juan Perez" || lead.Status != domain.LeadStatusProspect {
		t.Fatalf("seeded lead = %+v, want PROSPECT Juan Perez", lead)
	}
	state, err := f.store.GetState(ctx, chatID)
	if err != nil || state == nil {
		t.Fatalf("state missing after sales reply (err=%v)", err)
	}
	if state.Step != domain.StepAwaitingSalesConfirmation {
		t.Fatalf("step after tagged reply = %s, want awaiting_sales_confirmation", state.Step)
	}
	if n := f.messenger.countContaining(chatID, "[DIRECCION_DETECTADA]"); n != 0 {
		t.Fatal("internal tag leaked to the client")
	}
	if n := f.messenger.countContaining(chatID, "tenemos cobertura en tu zona"); n != 1 {
		t.Fatal("stripped sales reply was not delivered")
	}

	// A yes qualifies the lead and ends the conversation.
	f.handle(t, clientMessage(chatID, "sí"))
	if got := f.leads.updates[chatID]; got != domain.LeadStatusQualified {
		t.Fatalf("lead status after confirmation = %s, want QUALIFIED", got)
	}
	if qualified == nil {
		t.Fatal("lead qualification event never published")
	}
	if qualified.Name != "Juan Perez" || qualified.ChatID != chatID {
		t.Fatalf("qualified payload = %+v", qualified)
	}
	if f.store.hasState(chatID) {
		t.Fatal("conversation state survived the sales outcome")
	}
}

func TestMenuSelectionOutsideDeclaredOrders(t *testing.T) {
	f := newConversationFixture(t)
	chatID := "549117770001"
	ctx := context.Background()

	isClient := true
	state := domain.NewConversationState(chatID)
	state.Step = domain.StepMenuNavigation
	state.IsClient = &isClient
	state.Profile = &domain.ClientProfile{ID: "cli-1", Name: "Carla Gomez"}
	// Declared orders skip 3 and 4 on purpose; the typed number must match
	// an order, not a list position.
	state.MenuOptions = []domain.MenuNode{
		{ID: "soporte", SortOrder: 1, Title: "Soporte técnico", Action: domain.MenuActionSubmenu},
		{ID: "facturacion", SortOrder: 2, Title: "Facturación", Action: domain.MenuActionSubmenu},
		{ID: "agente", SortOrder: 5, Title: "Hablar con un agente", Action: domain.MenuActionTicket},
	}
	if err := f.store.SaveState(ctx, state); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	f.handle(t, clientMessage(chatID, "3"))

	if n := f.messenger.countContaining(chatID, "Esa opción no está en el menú"); n != 1 {
		t.Fatal("gap selection did not re-prompt")
	}
	texts := f.messenger.textsTo(chatID)
	reprompt := texts[len(texts)-1]
	for _, line := range []string{"1. Soporte técnico", "2. Facturación", "5. Hablar con un agente"} {
		if !strings.Contains(reprompt, line) {
			t.Fatalf("re-prompt missing %q:\n%s", line, reprompt)
		}
	}

	reloaded, err := f.store.GetState(ctx, chatID)
	if err != nil || reloaded == nil {
		t.Fatalf("state lost after gap selection (err=%v)", err)
	}
	if reloaded.Step != domain.StepMenuNavigation || len(reloaded.MenuOptions) != 3 {
		t.Fatalf("gap selection changed navigation state: step=%s options=%d", reloaded.Step, len(reloaded.MenuOptions))
	}
}

func TestResetCommandClearsState(t *testing.T) {
	f := newConversationFixture(t)
	chatID := "549117770001"
	ctx := context.Background()

	state := domain.NewConversationState(chatID)
	state.Step = domain.StepAwaitingIdentification
	if err := f.store.SaveState(ctx, state); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	f.handle(t, clientMessage(chatID, "!fin"))

	if f.store.hasState(chatID) {
		t.Fatal("reset command left conversation state behind")
	}
	if n := f.messenger.countContaining(chatID, "reiniciamos la conversación"); n != 1 {
		t.Fatal("reset acknowledgement missing")
	}
}

func TestResetCommandRelaysDuringSession(t *testing.T) {
	f := newConversationFixture(t)
	chatID := "549117770001"
	ctx := context.Background()

	// While an agent holds the chat, everything the client types relays to
	// the group, the reset command included.
	if err := f.store.SaveSession(ctx, &domain.Session{
		SchemaVersion: domain.SessionSchemaVersion,
		TicketID:      "ticket-1",
		ClientID:      chatID,
		ClientName:    "Carla",
		GroupID:       "group-1",
		AgentID:       "agent-1",
	}); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	state := domain.NewConversationState(chatID)
	state.Step = domain.StepAwaitingAgent
	if err := f.store.SaveState(ctx, state); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	f.handle(t, clientMessage(chatID, "!fin"))

	if n := f.messenger.countContaining("group-1", "*Carla:* !fin"); n != 1 {
		t.Fatal("in-session reset command was not relayed to the group")
	}
	if n := f.messenger.countContaining(chatID, "reiniciamos la conversación"); n != 0 {
		t.Fatal("client got a reset acknowledgement while the session relays")
	}
	if !f.store.hasState(chatID) {
		t.Fatal("in-session reset command wiped the conversation state")
	}
}

func TestOpenTicketDeflection(t *testing.T) {
	f := newConversationFixture(t)
	chatID := "549117770001"
	ctx := context.Background()

	if err := f.tickets.Create(ctx, &domain.Ticket{
		ID:             "ticket-1",
		ClientID:       chatID,
		ClientName:     "Carla Gomez",
		InitialMessage: "sin señal",
		Status:         domain.TicketStatusPending,
	}); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}

	isClient := true
	state := domain.NewConversationState(chatID)
	state.Step = domain.StepMenuNavigation
	state.IsClient = &isClient
	state.Profile = &domain.ClientProfile{ID: "cli-1", Name: "Carla Gomez"}
	if err := f.store.SaveState(ctx, state); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	f.classifier.intent = domain.IntentSoporte
	f.handle(t, clientMessage(chatID, "se sigue cortando el internet"))

	if n := f.messenger.countContaining(chatID, "Ya tenés un caso abierto"); n != 1 {
		t.Fatal("second escalation was not deflected")
	}
	if len(f.tickets.tickets) != 1 {
		t.Fatalf("tickets after deflection = %d, want the original 1", len(f.tickets.tickets))
	}
	reloaded, err := f.store.GetState(ctx, chatID)
	if err != nil || reloaded == nil {
		t.Fatalf("state lost after deflection (err=%v)", err)
	}
	if reloaded.Step != domain.StepAwaitingAgent {
		t.Fatalf("step after deflection = %s, want awaiting_agent", reloaded.Step)
	}
}
