package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusDispatched OutboxStatus = "dispatched"
	OutboxStatusFailed     OutboxStatus = "failed"
)

type OutboxEventType string

const OutboxEventPaymentSent OutboxEventType = "payment_sent"

// OutboxEvent is a pending side effect written in the same transaction as the
// payment it belongs to. A background dispatcher delivers it with retries, so
// a failed delivery never rolls back the ledger write.
type OutboxEvent struct {
	ID          uuid.UUID
	EventType   OutboxEventType
	Payload     json.RawMessage
	Status      OutboxStatus
	Attempts    int
	LastAttempt *time.Time
	CreatedAt   time.Time
}

// PaymentSentPayload is the body delivered to the counterpart's notification
// endpoint.
type PaymentSentPayload struct {
	CounterpartID uuid.UUID `json:"counterpart_id"`
	Amount        string    `json:"amount"`
	Currency      Currency  `json:"currency"`
	PaymentType   string    `json:"paymentType"`
	InvoiceNumber string    `json:"invoiceNumber"`
	ReceiptURL    string    `json:"receiptUrl,omitempty"`
}
