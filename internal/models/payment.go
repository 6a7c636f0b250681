package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses. Captured is the only terminal state; a payment row is
// created exactly once and never mutated.
const (
	PaymentStatusCaptured = "captured"
)

// Supported payment methods.
const (
	PaymentMethodPix  = "pix"
	PaymentMethodCard = "card"
)

// Outbox event lifecycle. The API only ever writes PENDING rows; the
// dispatcher process owns the transition to PUBLISHED.
const (
	OutboxStatusPending   = "pending"
	OutboxStatusPublished = "published"

	EventPaymentCaptured = "payment_captured"
)

// Payment is one confirmed logical request, keyed by the caller-supplied
// idempotency key.
type Payment struct {
	ID                string          `json:"id" db:"id"`
	IdempotencyKey    string          `json:"idempotency_key" db:"idempotency_key"`
	Status            string          `json:"status" db:"status"`
	GrossAmount       decimal.Decimal `json:"gross_amount" db:"gross_amount"`
	PlatformFeeAmount decimal.Decimal `json:"platform_fee_amount" db:"platform_fee_amount"`
	NetAmount         decimal.Decimal `json:"net_amount" db:"net_amount"`
	PaymentMethod     string          `json:"payment_method" db:"payment_method"`
	Installments      int             `json:"installments" db:"installments"`
	Currency          string          `json:"currency" db:"currency"`
	PayloadHash       string          `json:"payload_hash" db:"payload_hash"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// LedgerEntry is one recipient's finalized share of a payment's net amount.
// Entries are written in split order in the same transaction as the payment
// and cascade with it.
type LedgerEntry struct {
	ID          int64           `json:"id" db:"id"`
	PaymentID   string          `json:"payment_id" db:"payment_id"`
	RecipientID string          `json:"recipient_id" db:"recipient_id"`
	Role        string          `json:"role" db:"role"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// OutboxEvent is a durably recorded intent to notify downstream systems,
// written atomically with the payment it describes. Amounts inside Payload are
// decimal strings, never floats.
type OutboxEvent struct {
	ID          int64           `json:"id" db:"id"`
	PaymentID   string          `json:"payment_id" db:"payment_id"`
	Type        string          `json:"type" db:"type"`
	Status      string          `json:"status" db:"status"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	PublishedAt *time.Time      `json:"published_at" db:"published_at"`
}
