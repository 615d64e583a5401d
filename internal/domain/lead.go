package domain

import "time"

// LeadStatus tracks a prospect through the sales dialogue.
type LeadStatus string

const (
	LeadStatusProspect  LeadStatus = "PROSPECT"
	LeadStatusQualified LeadStatus = "QUALIFIED"
	LeadStatusDiscarded LeadStatus = "DISCARDED"
)

// SalesLead is a prospect record seeded when an unidentified chat
// participant enters the AI-led sales dialogue.
type SalesLead struct {
	ID        string
	ChatID    string
	Name      string
	Status    LeadStatus
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
