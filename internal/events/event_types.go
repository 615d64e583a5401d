package events

import (
	"time"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketClaimed EventType = "ticket_claimed"
	EventTicketClosed  EventType = "ticket_closed"
	EventLeadQualified EventType = "lead_qualified"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ClientID       string           `json:"client_id"`
	ClientName     string           `json:"client_name"`
	InitialMessage string           `json:"initial_message"`
	Sentiment      domain.Sentiment `json:"sentiment"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	AgentID    string `json:"agent_id"`
	GroupID    string `json:"group_id"`
	ClientID   string `json:"client_id"`
	ClientName string `json:"client_name"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Reason  string `json:"reason"`
	GroupID string `json:"group_id,omitempty"`
}

// LeadQualifiedPayload payload.
type LeadQualifiedPayload struct {
	ChatID string `json:"chat_id"`
	Name   string `json:"name"`
	Notes  string `json:"notes,omitempty"`
}
