package domain

import "time"

// TicketStatus enumerates lifecycle states for support escalations.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Close reasons shown to the client and the assigned group.
const (
	CloseReasonAgentResolved = "resuelto por el agente"
	CloseReasonInactivity    = "inactividad"
)

// Ticket is the durable record of one support escalation. At most one
// PENDING or IN_PROGRESS ticket may exist per client at a time.
type Ticket struct {
	ID              string
	ClientID        string
	ClientName      string
	InitialMessage  string
	Sentiment       Sentiment
	Status          TicketStatus
	AssignedAgentID *string
	AssignedGroupID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClosedAt        *time.Time
}

// Open reports whether the ticket still occupies the client's single
// escalation slot.
func (t *Ticket) Open() bool {
	return t.Status == TicketStatusPending || t.Status == TicketStatusInProgress
}
