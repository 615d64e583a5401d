package domain

import "time"

// ReceiptStatus tracks whether a payment receipt was bound to a client.
type ReceiptStatus string

const (
	ReceiptStatusUnmatched ReceiptStatus = "UNMATCHED"
	ReceiptStatusMatched   ReceiptStatus = "MATCHED"
)

// PaymentReceipt records a payment proof image sent over chat. Receipts from
// unidentified senders stay UNMATCHED until a DNI resolves them, or get
// reviewed manually.
type PaymentReceipt struct {
	ID        string
	ChatID    string
	ClientID  *string
	MediaRef  string
	Status    ReceiptStatus
	CreatedAt time.Time
}
