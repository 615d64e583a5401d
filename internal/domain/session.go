package domain

import "time"

// Appointment is a proposed visit parsed from an agent's /agendar command,
// pending the client's yes/no answer.
type Appointment struct {
	When    time.Time `json:"when"`
	RawText string    `json:"raw_text"`
}

// Session is the runtime binding of an IN_PROGRESS ticket to one agent and
// one relay group. The canonical record lives under session:{ticketId};
// session_client:{clientId} and session_group:{groupId} hold only the ticket
// id so any component can resolve the session from any of the three
// identities.
type Session struct {
	SchemaVersion      int          `json:"v"`
	TicketID           string       `json:"ticket_id"`
	ClientID           string       `json:"client_id"`
	ClientName         string       `json:"client_name"`
	GroupID            string       `json:"group_id"`
	AgentID            string       `json:"agent_id"`
	LastActivity       time.Time    `json:"last_activity"`
	PendingAppointment *Appointment `json:"pending_appointment,omitempty"`
}

// SessionSchemaVersion versions the persisted session document.
const SessionSchemaVersion = 1
