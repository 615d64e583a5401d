package domain

// ConversationStep enumerates the per-client state machine positions.
type ConversationStep string

const (
	StepNone                      ConversationStep = "none"
	StepAwaitingIdentification    ConversationStep = "awaiting_identification"
	StepSalesGetName              ConversationStep = "sales_get_name"
	StepAwaitingSalesConfirmation ConversationStep = "awaiting_sales_confirmation"
	StepMenuNavigation            ConversationStep = "menu_navigation"
	StepAwaitingInvoiceSelection  ConversationStep = "awaiting_invoice_selection"
	StepAwaitingQRConfirmation    ConversationStep = "awaiting_qr_confirmation"
	StepAwaitingDNIForReceipt     ConversationStep = "awaiting_dni_for_receipt"
	StepAwaitingAgent             ConversationStep = "awaiting_agent"
)

// ChatTurn is one turn of the recorded dialogue history.
type ChatTurn struct {
	Role string `json:"role"` // "user" | "assistant"
	Text string `json:"text"`
}

// ConversationState is the per-client state machine document, stored under
// state:{clientId} with a TTL covering the whole conversation.
type ConversationState struct {
	SchemaVersion int              `json:"v"`
	ClientID      string           `json:"client_id"`
	Step          ConversationStep `json:"step"`
	// IsClient is tri-state: nil means identity not yet resolved.
	IsClient *bool          `json:"is_client,omitempty"`
	Profile  *ClientProfile `json:"profile,omitempty"`
	History  []ChatTurn     `json:"history,omitempty"`

	// Menu navigation cursor.
	MenuParentID string     `json:"menu_parent_id,omitempty"`
	MenuOptions  []MenuNode `json:"menu_options,omitempty"`

	// Payment flow scratch data.
	PendingInvoices []Invoice `json:"pending_invoices,omitempty"`
	SelectedInvoice *Invoice  `json:"selected_invoice,omitempty"`

	// Prospect dialogue scratch data.
	ProspectName string `json:"prospect_name,omitempty"`
}

// StateSchemaVersion guards persisted state across deployments; documents
// with a different version are discarded and the conversation restarts.
const StateSchemaVersion = 1

// NewConversationState returns a fresh state for an unseen client.
func NewConversationState(clientID string) *ConversationState {
	return &ConversationState{
		SchemaVersion: StateSchemaVersion,
		ClientID:      clientID,
		Step:          StepNone,
	}
}

// AppendTurn records one dialogue turn.
func (s *ConversationState) AppendTurn(role, text string) {
	s.History = append(s.History, ChatTurn{Role: role, Text: text})
}

// ClearPaymentFlow drops invoice-selection scratch data.
func (s *ConversationState) ClearPaymentFlow() {
	s.PendingInvoices = nil
	s.SelectedInvoice = nil
}
