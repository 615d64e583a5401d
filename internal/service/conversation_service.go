package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/isp-routing-engine/internal/billing"
	"github.com/spec-kit/isp-routing-engine/internal/domain"
	"github.com/spec-kit/isp-routing-engine/internal/events"
	"github.com/spec-kit/isp-routing-engine/internal/menu"
	"github.com/spec-kit/isp-routing-engine/internal/nlp"
	"github.com/spec-kit/isp-routing-engine/internal/observability"
	"github.com/spec-kit/isp-routing-engine/internal/repository"
	"github.com/spec-kit/isp-routing-engine/internal/transport"
)

// clientCommandReset clears the sender's conversation state from any step.
const clientCommandReset = "!fin"

const apologyText = "Disculpá, tuvimos un inconveniente procesando tu mensaje. 🙏"

// ConversationService owns the per-client finite-state conversation machine.
// Each inbound client message is read against the persisted state, produces
// outbound actions and writes the next state back.
type ConversationService struct {
	store      SessionStore
	menus      *menu.Resolver
	clients    repository.ClientRepository
	tickets    repository.TicketRepository
	receipts   repository.ReceiptRepository
	leads      repository.LeadRepository
	classifier nlp.Classifier
	messenger  transport.Messenger
	qr         billing.QRGenerator
	sessions   *SessionService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// ConversationDependencies bundles collaborators for the conversation service.
type ConversationDependencies struct {
	Store       SessionStore
	Menus       *menu.Resolver
	ClientRepo  repository.ClientRepository
	TicketRepo  repository.TicketRepository
	ReceiptRepo repository.ReceiptRepository
	LeadRepo    repository.LeadRepository
	Classifier  nlp.Classifier
	Messenger   transport.Messenger
	QRGenerator billing.QRGenerator
	Sessions    *SessionService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// NewConversationService constructs the service.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	return &ConversationService{
		store:      deps.Store,
		menus:      deps.Menus,
		clients:    deps.ClientRepo,
		tickets:    deps.TicketRepo,
		receipts:   deps.ReceiptRepo,
		leads:      deps.LeadRepo,
		classifier: deps.Classifier,
		messenger:  deps.Messenger,
		qr:         deps.QRGenerator,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// HandleClientMessage processes one direct message from a client chat.
func (c *ConversationService) HandleClientMessage(ctx context.Context, msg transport.InboundMessage) error {
	body := strings.TrimSpace(msg.Body)

	// An in-progress session takes the message before the state machine does,
	// reset command included: while an agent holds the chat everything relays.
	sess, err := c.store.GetSessionByClient(ctx, msg.SenderID)
	if err != nil {
		return err
	}
	if sess != nil {
		return c.sessions.HandleClientMessage(ctx, sess, msg)
	}

	if strings.EqualFold(body, clientCommandReset) {
		if err := c.store.DeleteState(ctx, msg.SenderID); err != nil {
			return err
		}
		c.send(ctx, msg.SenderID, "🔄 Listo, reiniciamos la conversación. Escribime cuando quieras.")
		return nil
	}

	state, err := c.store.GetState(ctx, msg.SenderID)
	if err != nil {
		return err
	}
	if state == nil {
		state = domain.NewConversationState(msg.SenderID)
	}

	if msg.HasMedia() && state.Step != domain.StepAwaitingDNIForReceipt {
		return c.handleReceipt(ctx, state, msg)
	}

	switch state.Step {
	case domain.StepNone:
		return c.handleFirstContact(ctx, state, msg)
	case domain.StepAwaitingIdentification:
		return c.handleIdentification(ctx, state, msg)
	case domain.StepSalesGetName:
		return c.handleSalesDialogue(ctx, state, body)
	case domain.StepAwaitingSalesConfirmation:
		return c.handleSalesConfirmation(ctx, state, body)
	case domain.StepMenuNavigation:
		return c.handleMenuNavigation(ctx, state, msg)
	case domain.StepAwaitingInvoiceSelection:
		return c.handleInvoiceSelection(ctx, state, body)
	case domain.StepAwaitingQRConfirmation:
		return c.handleQRConfirmation(ctx, state, body)
	case domain.StepAwaitingDNIForReceipt:
		return c.handleReceiptDNI(ctx, state, body)
	case domain.StepAwaitingAgent:
		c.send(ctx, state.ClientID, "Ya estás en la cola de atención, un agente te va a responder en breve. 🙏")
		return nil
	default:
		// unknown persisted step, restart cleanly
		return c.handleFirstContact(ctx, domain.NewConversationState(msg.SenderID), msg)
	}
}

func (c *ConversationService) handleFirstContact(ctx context.Context, state *domain.ConversationState, msg transport.InboundMessage) error {
	profile, err := c.clients.GetByPhone(ctx, msg.SenderID)
	if err != nil {
		c.send(ctx, state.ClientID, apologyText)
		return err
	}

	if profile != nil {
		return c.enterMenu(ctx, state, profile, fmt.Sprintf("¡Hola %s! 👋 Soy el asistente virtual. ¿En qué te puedo ayudar?", firstName(profile.Name)))
	}

	state.Step = domain.StepAwaitingIdentification
	if err := c.store.SaveState(ctx, state); err != nil {
		return err
	}
	c.send(ctx, state.ClientID, "¡Hola! 👋 Para ayudarte mejor, pasame tu DNI o número de cliente. Si todavía no sos cliente, contame tu nombre.")
	return nil
}

func (c *ConversationService) handleIdentification(ctx context.Context, state *domain.ConversationState, msg transport.InboundMessage) error {
	body := strings.TrimSpace(msg.Body)

	if digits, ok := normalizeIdentifier(body); ok {
		profile, err := c.clients.GetByDNI(ctx, digits)
		if err != nil {
			c.send(ctx, state.ClientID, apologyText)
			return err
		}
		if profile != nil {
			return c.enterMenu(ctx, state, profile, fmt.Sprintf("¡Perfecto, %s! Te encontramos. 👌", firstName(profile.Name)))
		}

		state.Step = domain.StepSalesGetName
		if err := c.store.SaveState(ctx, state); err != nil {
			return err
		}
		c.send(ctx, state.ClientID, "No encontré ese número en el sistema. 🤔 ¿Me decís tu nombre así te asesoro igual?")
		return nil
	}

	// Anything that does not look like an identifier is a name: the sender
	// becomes a prospect and the sales dialogue starts right away.
	return c.handleSalesDialogue(ctx, state, body)
}

func (c *ConversationService) handleSalesDialogue(ctx context.Context, state *domain.ConversationState, text string) error {
	if state.ProspectName == "" {
		state.ProspectName = text
		isClient := false
		state.IsClient = &isClient
		lead := &domain.SalesLead{
			ID:     uuid.NewString(),
			ChatID: state.ClientID,
			Name:   text,
			Status: domain.LeadStatusProspect,
		}
		if err := c.leads.Create(ctx, lead); err != nil {
			c.send(ctx, state.ClientID, apologyText)
			return err
		}
	}

	state.Step = domain.StepSalesGetName
	state.AppendTurn("user", text)

	reply, err := c.classifier.SalesReply(ctx, state.History)
	if err != nil {
		c.metrics.Inc(observability.MetricClassifierFallbacks)
		c.logger.Warn("sales classifier failed", zap.String("client_id", state.ClientID), zap.Error(err))
		c.send(ctx, state.ClientID, apologyText+" Probá escribirme de nuevo en un ratito.")
		return c.store.SaveState(ctx, state)
	}

	cleaned, tagged := stripSalesTags(reply)
	if tagged {
		state.Step = domain.StepAwaitingSalesConfirmation
	}
	state.AppendTurn("assistant", cleaned)

	if err := c.store.SaveState(ctx, state); err != nil {
		return err
	}
	c.send(ctx, state.ClientID, cleaned)
	return nil
}

func (c *ConversationService) handleSalesConfirmation(ctx context.Context, state *domain.ConversationState, text string) error {
	confirmation := c.confirmOrNo(ctx, text)

	if confirmation == domain.ConfirmationYes {
		notes := lastUserTurns(state.History, 3)
		if err := c.leads.UpdateStatus(ctx, state.ClientID, domain.LeadStatusQualified, notes); err != nil {
			c.logger.Warn("lead qualification update failed", zap.String("chat_id", state.ClientID), zap.Error(err))
		}
		publishWithDefaults(ctx, c.dispatcher, events.Event{
			Type: events.EventLeadQualified,
			Payload: events.LeadQualifiedPayload{
				ChatID: state.ClientID,
				Name:   state.ProspectName,
				Notes:  notes,
			},
		})
		c.send(ctx, state.ClientID, "¡Genial! 🎉 Un asesor te va a contactar para coordinar la instalación. ¡Gracias!")
	} else {
		if err := c.leads.UpdateStatus(ctx, state.ClientID, domain.LeadStatusDiscarded, ""); err != nil {
			c.logger.Warn("lead discard update failed", zap.String("chat_id", state.ClientID), zap.Error(err))
		}
		c.send(ctx, state.ClientID, "Entendido, no avanzamos por ahora. Cuando quieras retomamos. 👍")
	}

	// cleared after this exchange regardless of outcome
	return c.store.DeleteState(ctx, state.ClientID)
}

func (c *ConversationService) handleMenuNavigation(ctx context.Context, state *domain.ConversationState, msg transport.InboundMessage) error {
	body := strings.TrimSpace(msg.Body)

	if isAllDigits(body) {
		choice, _ := strconv.Atoi(body)
		return c.handleMenuSelection(ctx, state, choice)
	}
	return c.handleFreeQuestion(ctx, state, body)
}

func (c *ConversationService) handleMenuSelection(ctx context.Context, state *domain.ConversationState, choice int) error {
	atRoot := state.MenuParentID == ""

	if choice == 0 && !atRoot {
		profile := state.Profile
		return c.enterMenu(ctx, state, profile, "Volvemos al inicio. 👇")
	}

	option, ok := menu.SelectByOrder(state.MenuOptions, choice)
	if !ok {
		c.send(ctx, state.ClientID, "Esa opción no está en el menú. 🙈\n\n"+menu.Render("Elegí un número:", state.MenuOptions, atRoot))
		return c.store.SaveState(ctx, state)
	}

	switch option.Action {
	case domain.MenuActionSubmenu:
		children, err := c.menus.Children(ctx, option.ID)
		if err != nil {
			c.send(ctx, state.ClientID, apologyText)
			return err
		}
		state.MenuParentID = option.ID
		state.MenuOptions = children
		if err := c.store.SaveState(ctx, state); err != nil {
			return err
		}
		c.send(ctx, state.ClientID, menu.Render(option.Title+" 👇", children, false))
		return nil

	case domain.MenuActionReply:
		c.send(ctx, state.ClientID, option.ReplyText)
		c.send(ctx, state.ClientID, menu.Render("¿Algo más?", state.MenuOptions, atRoot))
		return c.store.SaveState(ctx, state)

	case domain.MenuActionTicket:
		return c.createTicket(ctx, state, "Solicitud desde el menú: "+option.Title)

	case domain.MenuActionInvoiceFlow:
		return c.startInvoiceFlow(ctx, state)

	default:
		c.logger.Error("menu node with unknown action", zap.String("node_id", option.ID), zap.String("action", string(option.Action)))
		c.send(ctx, state.ClientID, apologyText)
		return nil
	}
}

func (c *ConversationService) handleFreeQuestion(ctx context.Context, state *domain.ConversationState, question string) error {
	intent, err := c.classifier.Intent(ctx, question)
	if err != nil {
		c.metrics.Inc(observability.MetricClassifierFallbacks)
		intent = domain.IntentPreguntaGeneral
	}
	if intent == domain.IntentSoporte {
		return c.createTicket(ctx, state, question)
	}

	state.AppendTurn("user", question)
	answer, err := c.classifier.Answer(ctx, state.History)
	if err != nil {
		c.metrics.Inc(observability.MetricClassifierFallbacks)
		c.logger.Warn("answer classifier failed", zap.String("client_id", state.ClientID), zap.Error(err))
		c.send(ctx, state.ClientID, apologyText+" Te derivo con un agente.")
		return c.createTicket(ctx, state, question)
	}
	if strings.Contains(answer, domain.NoAnswerSentinel) {
		return c.createTicket(ctx, state, question)
	}

	state.AppendTurn("assistant", answer)
	if err := c.store.SaveState(ctx, state); err != nil {
		return err
	}
	c.send(ctx, state.ClientID, answer)
	return nil
}

func (c *ConversationService) startInvoiceFlow(ctx context.Context, state *domain.ConversationState) error {
	if state.Profile == nil {
		c.send(ctx, state.ClientID, apologyText)
		return nil
	}
	invoices, err := c.clients.ListPendingInvoices(ctx, state.Profile.ID)
	if err != nil {
		c.send(ctx, state.ClientID, apologyText)
		return err
	}
	if len(invoices) == 0 {
		c.send(ctx, state.ClientID, "No tenés facturas pendientes. 🎉")
		c.send(ctx, state.ClientID, menu.Render("¿Algo más?", state.MenuOptions, state.MenuParentID == ""))
		return c.store.SaveState(ctx, state)
	}

	state.PendingInvoices = invoices
	state.Step = domain.StepAwaitingInvoiceSelection
	if err := c.store.SaveState(ctx, state); err != nil {
		return err
	}
	c.send(ctx, state.ClientID, renderInvoices(invoices))
	return nil
}

func (c *ConversationService) handleInvoiceSelection(ctx context.Context, state *domain.ConversationState, body string) error {
	choice := 0
	if isAllDigits(body) {
		choice, _ = strconv.Atoi(body)
	}
	if choice < 1 || choice > len(state.PendingInvoices) {
		// out-of-range input re-prompts without losing state
		c.send(ctx, state.ClientID, "Ese número no corresponde a ninguna factura. 🙈\n\n"+renderInvoices(state.PendingInvoices))
		return nil
	}

	selected := state.PendingInvoices[choice-1]
	state.SelectedInvoice = &selected
	state.Step = domain.StepAwaitingQRConfirmation
	if err := c.store.SaveState(ctx, state); err != nil {
		return err
	}
	c.send(ctx, state.ClientID, fmt.Sprintf("Vas a pagar la factura %s por $%.2f. ¿Confirmás? (sí/no)", selected.Number, selected.Amount))
	return nil
}

func (c *ConversationService) handleQRConfirmation(ctx context.Context, state *domain.ConversationState, body string) error {
	confirmation := c.confirmOrNo(ctx, body)

	if confirmation != domain.ConfirmationYes {
		c.send(ctx, state.ClientID, "Entendido, no generamos el pago. 👍")
		return c.store.DeleteState(ctx, state.ClientID)
	}

	if state.Profile == nil || state.SelectedInvoice == nil {
		c.send(ctx, state.ClientID, apologyText)
		return c.store.DeleteState(ctx, state.ClientID)
	}

	mediaRef, err := c.qr.GenerateQR(ctx, *state.Profile, *state.SelectedInvoice)
	if err != nil {
		c.logger.Warn("qr generation failed", zap.String("invoice", state.SelectedInvoice.Number), zap.Error(err))
		c.send(ctx, state.ClientID, apologyText+" Te derivo con un agente para resolver el pago.")
		return c.createTicket(ctx, state, "Falló la generación del QR de pago de la factura "+state.SelectedInvoice.Number)
	}

	caption := fmt.Sprintf("Escaneá el QR para pagar la factura %s. ¡Gracias!", state.SelectedInvoice.Number)
	if err := c.messenger.SendMedia(ctx, state.ClientID, mediaRef, caption); err != nil {
		c.logger.Warn("qr delivery failed", zap.String("client_id", state.ClientID), zap.Error(err))
	}
	return c.store.DeleteState(ctx, state.ClientID)
}

func (c *ConversationService) handleReceipt(ctx context.Context, state *domain.ConversationState, msg transport.InboundMessage) error {
	receipt := &domain.PaymentReceipt{
		ID:       uuid.NewString(),
		ChatID:   msg.SenderID,
		MediaRef: msg.MediaRef,
		Status:   domain.ReceiptStatusUnmatched,
	}
	if state.Profile != nil {
		receipt.ClientID = &state.Profile.ID
		receipt.Status = domain.ReceiptStatusMatched
	}
	if err := c.receipts.Create(ctx, receipt); err != nil {
		c.send(ctx, state.ClientID, apologyText)
		return err
	}

	if receipt.Status == domain.ReceiptStatusMatched {
		c.send(ctx, state.ClientID, "✅ Recibimos tu comprobante, ¡gracias!")
		return nil
	}

	state.Step = domain.StepAwaitingDNIForReceipt
	if err := c.store.SaveState(ctx, state); err != nil {
		return err
	}
	c.send(ctx, state.ClientID, "Recibimos tu comprobante. 🧾 Pasame tu DNI así lo asociamos a tu cuenta.")
	return nil
}

func (c *ConversationService) handleReceiptDNI(ctx context.Context, state *domain.ConversationState, body string) error {
	digits, ok := normalizeIdentifier(body)
	if ok {
		profile, err := c.clients.GetByDNI(ctx, digits)
		if err != nil {
			c.send(ctx, state.ClientID, apologyText)
			return err
		}
		if profile != nil {
			if err := c.receipts.BindToClient(ctx, state.ClientID, profile.ID); err != nil {
				c.logger.Warn("receipt binding failed", zap.String("chat_id", state.ClientID), zap.Error(err))
			} else {
				c.send(ctx, state.ClientID, "✅ Listo, asociamos el comprobante a tu cuenta. ¡Gracias!")
				return c.store.DeleteState(ctx, state.ClientID)
			}
		}
	}

	// No retry loop: the receipt stays for manual review and the state
	// expires by TTL.
	c.send(ctx, state.ClientID, "No pudimos asociarlo automáticamente, lo va a revisar un operador. 🙏")
	return nil
}

// createTicket opens a support escalation for the client, deflecting when
// one is already open.
func (c *ConversationService) createTicket(ctx context.Context, state *domain.ConversationState, initialMessage string) error {
	existing, err := c.tickets.GetOpenByClient(ctx, state.ClientID)
	if err != nil {
		c.send(ctx, state.ClientID, apologyText)
		return err
	}
	if existing != nil {
		state.Step = domain.StepAwaitingAgent
		if err := c.store.SaveState(ctx, state); err != nil {
			return err
		}
		c.send(ctx, state.ClientID, "Ya tenés un caso abierto, estás en la cola de atención. 🙏")
		return nil
	}

	sentiment, err := c.classifier.Sentiment(ctx, initialMessage)
	if err != nil {
		c.metrics.Inc(observability.MetricClassifierFallbacks)
		sentiment = domain.SentimentNeutro
	}

	clientName := state.ClientID
	if state.Profile != nil {
		clientName = state.Profile.Name
	} else if state.ProspectName != "" {
		clientName = state.ProspectName
	}

	ticket := &domain.Ticket{
		ID:             uuid.NewString(),
		ClientID:       state.ClientID,
		ClientName:     clientName,
		InitialMessage: initialMessage,
		Sentiment:      sentiment,
		Status:         domain.TicketStatusPending,
	}
	if err := c.tickets.Create(ctx, ticket); err != nil {
		c.send(ctx, state.ClientID, apologyText)
		return err
	}

	c.metrics.Inc(observability.MetricTicketsCreated)
	publishWithDefaults(ctx, c.dispatcher, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			ClientID:       ticket.ClientID,
			ClientName:     ticket.ClientName,
			InitialMessage: ticket.InitialMessage,
			Sentiment:      ticket.Sentiment,
		},
	})

	state.Step = domain.StepAwaitingAgent
	if err := c.store.SaveState(ctx, state); err != nil {
		return err
	}
	c.send(ctx, state.ClientID, "🎫 Creamos tu caso. Un agente te va a contactar por acá en breve.")
	return nil
}

// enterMenu resolves the root options and renders the main menu.
func (c *ConversationService) enterMenu(ctx context.Context, state *domain.ConversationState, profile *domain.ClientProfile, greeting string) error {
	options, err := c.menus.Root(ctx)
	if err != nil {
		c.send(ctx, state.ClientID, apologyText)
		return err
	}

	isClient := true
	state.IsClient = &isClient
	state.Profile = profile
	state.Step = domain.StepMenuNavigation
	state.MenuParentID = ""
	state.MenuOptions = options
	state.ClearPaymentFlow()
	if err := c.store.SaveState(ctx, state); err != nil {
		return err
	}
	c.send(ctx, state.ClientID, menu.Render(greeting, options, true))
	return nil
}

// confirmOrNo classifies a yes/no answer, degrading to NO on any failure.
func (c *ConversationService) confirmOrNo(ctx context.Context, text string) domain.Confirmation {
	confirmation, err := c.classifier.Confirm(ctx, text)
	if err != nil {
		c.metrics.Inc(observability.MetricClassifierFallbacks)
		return domain.ConfirmationNo
	}
	return confirmation
}

// send delivers a text best-effort; transport failures are logged, never fatal.
func (c *ConversationService) send(ctx context.Context, chatID, text string) {
	if _, err := c.messenger.SendText(ctx, chatID, text); err != nil {
		c.logger.Warn("send failed", zap.String("chat_id", chatID), zap.Error(err))
	}
}

func renderInvoices(invoices []domain.Invoice) string {
	var b strings.Builder
	b.WriteString("Estas son tus facturas pendientes. Respondé con el número de la que querés pagar:\n\n")
	for i, inv := range invoices {
		fmt.Fprintf(&b, "%d. Factura %s por $%.2f (vence %s)\n", i+1, inv.Number, inv.Amount, inv.DueDate.Format("02/01/2006"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// stripSalesTags removes the dialogue control tags from a sales reply and
// reports whether any was present.
func stripSalesTags(reply string) (string, bool) {
	tagged := strings.Contains(reply, domain.TagAddressFound) || strings.Contains(reply, domain.TagDirectClose)
	cleaned := strings.ReplaceAll(reply, domain.TagAddressFound, "")
	cleaned = strings.ReplaceAll(cleaned, domain.TagDirectClose, "")
	return strings.TrimSpace(cleaned), tagged
}

// isAllDigits reports whether s is a non-empty run of ASCII digits. Strict
// matching keeps stray punctuation from ever hitting a menu option.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// normalizeIdentifier strips separators from a DNI or customer number and
// reports whether the result looks like one.
func normalizeIdentifier(s string) (string, bool) {
	cleaned := strings.NewReplacer(" ", "", ".", "", "-", "").Replace(strings.TrimSpace(s))
	if !isAllDigits(cleaned) {
		return "", false
	}
	if len(cleaned) < 7 || len(cleaned) > 11 {
		return "", false
	}
	return cleaned, true
}

func firstName(full string) string {
	if idx := strings.IndexByte(full, ' '); idx > 0 {
		return full[:idx]
	}
	return full
}

func lastUserTurns(history []domain.ChatTurn, n int) string {
	var turns []string
	for i := len(history) - 1; i >= 0 && len(turns) < n; i-- {
		if history[i].Role == "user" {
			turns = append([]string{history[i].Text}, turns...)
		}
	}
	return strings.Join(turns, " | ")
}
