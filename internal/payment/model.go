package payment

import (
	"encoding/json"
	"time"

	"sickfits-be/internal/apperr"
)

const DefaultCurrency = "USD"

type ChargeRequest struct {
	Amount         int
	Currency       string
	Source         string
	Description    string
	IdempotencyKey string
}

type Charge struct {
	ID       string `json:"id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Paid     bool   `json:"paid"`

	FailureMessage string `json:"failure_message"`

	Metadata struct {
		CheckoutKey string `json:"checkout_key"`
	} `json:"metadata"`
}

func (c *Charge) Succeeded() bool {
	return c != nil && c.Paid && c.Status == "succeeded"
}

// ErrPaymentDeclined is the cause of every provider-side rejection.
var ErrPaymentDeclined = apperr.New(apperr.KindValidation, "payment declined")

// WebhookEvent is a stored provider notification.
type WebhookEvent struct {
	ID          int64
	EventID     string
	Type        string
	CheckoutKey string
	Payload     json.RawMessage

	// Attempts counts deliveries of the event, the first included.
	Attempts   int
	ReceivedAt time.Time
}
