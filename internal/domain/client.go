package domain

import "time"

// ClientProfile is the resolved account data for a registered client.
type ClientProfile struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	DNI      string   `json:"dni"`
	Phone    string   `json:"phone"`
	Balance  float64  `json:"balance"`
	Services []string `json:"services,omitempty"`
}

// InvoiceStatus enumerates billing states for an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

// Invoice is one billing document owned by a client.
type Invoice struct {
	ID       string        `json:"id"`
	ClientID string        `json:"client_id"`
	Number   string        `json:"number"`
	Amount   float64       `json:"amount"`
	DueDate  time.Time     `json:"due_date"`
	Status   InvoiceStatus `json:"status"`
}
