package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActivityEntry is an append-only audit row recorded alongside payment
// mutations.
type ActivityEntry struct {
	ID          uuid.UUID
	Action      string
	Collection  string
	DocumentID  uuid.UUID
	PerformedBy string
	Changes     json.RawMessage
	Metadata    json.RawMessage
	CreatedAt   time.Time
}

const (
	ActivityPaymentRecorded = "payment_recorded"
	ActivityPaymentVoided   = "payment_voided"
)
