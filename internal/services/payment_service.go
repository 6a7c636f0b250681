package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/pagsplit/backend/internal/models"
)

// PaymentService confirms marketplace payments: it computes fees and splits,
// persists the payment with its ledger entries and a pending outbox event in
// one database transaction, and enforces the idempotency protocol. It is the
// only stateful component; the calculators it coordinates are pure.
type PaymentService struct {
	db         *sql.DB
	calculator *CalculationService
	splitter   *SplitService
}

func NewPaymentService(db *sql.DB) *PaymentService {
	return &PaymentService{
		db:         db,
		calculator: NewCalculationService(),
		splitter:   NewSplitService(),
	}
}

// ConfirmPaymentInput is a validated confirmation request. The adapter layer
// owns transport validation; the service still re-checks the domain
// invariants the calculators depend on.
type ConfirmPaymentInput struct {
	IdempotencyKey string
	Amount         decimal.Decimal
	Currency       string
	PaymentMethod  string
	Installments   int
	Splits         []SplitInput
}

// Receivable is one recipient's share in a confirmation result.
type Receivable struct {
	RecipientID string          `json:"recipient_id"`
	Role        string          `json:"role"`
	Amount      decimal.Decimal `json:"amount"`
}

// OutboxEventSummary is the outbox slice of a confirmation result.
type OutboxEventSummary struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// PaymentResult is what a confirmation returns, assembled from persisted rows
// so that first calls and idempotent replays are indistinguishable.
type PaymentResult struct {
	PaymentID         string             `json:"payment_id"`
	Status            string             `json:"status"`
	GrossAmount       decimal.Decimal    `json:"gross_amount"`
	PlatformFeeAmount decimal.Decimal    `json:"platform_fee_amount"`
	NetAmount         decimal.Decimal    `json:"net_amount"`
	Receivables       []Receivable       `json:"receivables"`
	OutboxEvent       OutboxEventSummary `json:"outbox_event"`
}

// ConfirmPayment executes one atomic unit of work. A retry with the same key
// and payload replays the persisted result without writing anything; the same
// key with a different payload is a conflict. Any failure after the
// idempotency check rolls the whole transaction back, leaving the key free
// for a corrected retry.
func (s *PaymentService) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*PaymentResult, error) {
	fingerprint, err := paymentFingerprint(input.Amount, input.Currency, input.PaymentMethod, input.Installments, input.Splits)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("[PAYMENT] Failed to begin transaction: %v", err)
		return nil, err
	}
	defer tx.Rollback()

	existing, err := s.findPaymentByKeyTx(ctx, tx, input.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.PayloadHash != fingerprint {
			log.Printf("[PAYMENT] Idempotency conflict for key %s", input.IdempotencyKey)
			return nil, ErrIdempotencyConflict
		}

		result, err := s.assembleResultTx(ctx, tx, existing)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		log.Printf("[PAYMENT] Replayed payment %s for key %s", existing.ID, input.IdempotencyKey)
		return result, nil
	}

	calculation, err := s.calculator.Calculate(input.Amount, input.PaymentMethod, input.Installments)
	if err != nil {
		return nil, err
	}

	allocated, err := s.splitter.Allocate(calculation.NetAmount, input.Splits)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ID:                uuid.New().String(),
		IdempotencyKey:    input.IdempotencyKey,
		Status:            models.PaymentStatusCaptured,
		GrossAmount:       calculation.GrossAmount,
		PlatformFeeAmount: calculation.PlatformFeeAmount,
		NetAmount:         calculation.NetAmount,
		PaymentMethod:     input.PaymentMethod,
		Installments:      input.Installments,
		Currency:          input.Currency,
		PayloadHash:       fingerprint,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.insertPaymentTx(ctx, tx, payment); err != nil {
		if isUniqueViolation(err) {
			// Lost the insert race for this key. Fall back to the
			// read-and-compare path against the winner's committed row.
			tx.Rollback()
			log.Printf("[PAYMENT] Concurrent insert for key %s, replaying committed payment", input.IdempotencyKey)
			return s.replayCommitted(ctx, input.IdempotencyKey, fingerprint)
		}
		log.Printf("[PAYMENT] Failed to store payment for key %s: %v", input.IdempotencyKey, err)
		return nil, err
	}

	for _, split := range allocated {
		if err := s.insertLedgerEntryTx(ctx, tx, payment.ID, split); err != nil {
			log.Printf("[PAYMENT] Failed to store ledger entry for payment %s: %v", payment.ID, err)
			return nil, err
		}
	}

	if err := s.insertOutboxEventTx(ctx, tx, payment, allocated); err != nil {
		log.Printf("[PAYMENT] Failed to store outbox event for payment %s: %v", payment.ID, err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[PAYMENT] Failed to commit payment %s: %v", payment.ID, err)
		return nil, err
	}

	log.Printf("[PAYMENT] Captured payment %s for key %s: gross=%s fee=%s net=%s",
		payment.ID, input.IdempotencyKey,
		payment.GrossAmount.StringFixed(2), payment.PlatformFeeAmount.StringFixed(2), payment.NetAmount.StringFixed(2))

	receivables := make([]Receivable, 0, len(allocated))
	for _, split := range allocated {
		receivables = append(receivables, Receivable{
			RecipientID: split.RecipientID,
			Role:        split.Role,
			Amount:      split.Amount,
		})
	}

	return &PaymentResult{
		PaymentID:         payment.ID,
		Status:            payment.Status,
		GrossAmount:       payment.GrossAmount,
		PlatformFeeAmount: payment.PlatformFeeAmount,
		NetAmount:         payment.NetAmount,
		Receivables:       receivables,
		OutboxEvent: OutboxEventSummary{
			Type:   models.EventPaymentCaptured,
			Status: models.OutboxStatusPending,
		},
	}, nil
}

// GetPayment returns the persisted result for a captured payment.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*PaymentResult, error) {
	payment, err := s.fetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return s.assembleResult(ctx, payment)
}

// replayCommitted runs the idempotent-replay path outside the aborted
// transaction after a unique-constraint loss.
func (s *PaymentService) replayCommitted(ctx context.Context, idempotencyKey, fingerprint string) (*PaymentResult, error) {
	payment, err := s.fetchPaymentByKey(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if payment.PayloadHash != fingerprint {
		return nil, ErrIdempotencyConflict
	}
	return s.assembleResult(ctx, payment)
}

// Store helpers. The *Tx variants run inside the confirmation transaction;
// the plain variants serve reads outside it.

func (s *PaymentService) findPaymentByKeyTx(ctx context.Context, tx *sql.Tx, idempotencyKey string) (*models.Payment, error) {
	payment := &models.Payment{}
	err := tx.QueryRowContext(ctx, `
		SELECT id, idempotency_key, status, gross_amount, platform_fee_amount, net_amount,
		       payment_method, installments, currency, payload_hash, created_at
		FROM payments
		WHERE idempotency_key = $1
	`, idempotencyKey).Scan(
		&payment.ID, &payment.IdempotencyKey, &payment.Status,
		&payment.GrossAmount, &payment.PlatformFeeAmount, &payment.NetAmount,
		&payment.PaymentMethod, &payment.Installments, &payment.Currency,
		&payment.PayloadHash, &payment.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) fetchPaymentByKey(ctx context.Context, idempotencyKey string) (*models.Payment, error) {
	payment := &models.Payment{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, idempotency_key, status, gross_amount, platform_fee_amount, net_amount,
		       payment_method, installments, currency, payload_hash, created_at
		FROM payments
		WHERE idempotency_key = $1
	`, idempotencyKey).Scan(
		&payment.ID, &payment.IdempotencyKey, &payment.Status,
		&payment.GrossAmount, &payment.PlatformFeeAmount, &payment.NetAmount,
		&payment.PaymentMethod, &payment.Installments, &payment.Currency,
		&payment.PayloadHash, &payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) fetchPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	payment := &models.Payment{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, idempotency_key, status, gross_amount, platform_fee_amount, net_amount,
		       payment_method, installments, currency, payload_hash, created_at
		FROM payments
		WHERE id = $1
	`, paymentID).Scan(
		&payment.ID, &payment.IdempotencyKey, &payment.Status,
		&payment.GrossAmount, &payment.PlatformFeeAmount, &payment.NetAmount,
		&payment.PaymentMethod, &payment.Installments, &payment.Currency,
		&payment.PayloadHash, &payment.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) insertPaymentTx(ctx context.Context, tx *sql.Tx, payment *models.Payment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payments
		(id, idempotency_key, status, gross_amount, platform_fee_amount, net_amount,
		 payment_method, installments, currency, payload_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, payment.ID, payment.IdempotencyKey, payment.Status,
		payment.GrossAmount, payment.PlatformFeeAmount, payment.NetAmount,
		payment.PaymentMethod, payment.Installments, payment.Currency,
		payment.PayloadHash, payment.CreatedAt)
	return err
}

func (s *PaymentService) insertLedgerEntryTx(ctx context.Context, tx *sql.Tx, paymentID string, split SplitResult) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (payment_id, recipient_id, role, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, paymentID, split.RecipientID, split.Role, split.Amount, time.Now().UTC())
	return err
}

func (s *PaymentService) insertOutboxEventTx(ctx context.Context, tx *sql.Tx, payment *models.Payment, allocated []SplitResult) error {
	receivables := make([]map[string]any, 0, len(allocated))
	for _, split := range allocated {
		receivables = append(receivables, map[string]any{
			"recipient_id": split.RecipientID,
			"role":         split.Role,
			"amount":       split.Amount.StringFixed(2),
		})
	}

	payload, err := json.Marshal(map[string]any{
		"payment_id":   payment.ID,
		"gross_amount": payment.GrossAmount.StringFixed(2),
		"net_amount":   payment.NetAmount.StringFixed(2),
		"receivables":  receivables,
	})
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox_events (payment_id, type, status, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, payment.ID, models.EventPaymentCaptured, models.OutboxStatusPending, payload, time.Now().UTC())
	return err
}

func (s *PaymentService) assembleResultTx(ctx context.Context, tx *sql.Tx, payment *models.Payment) (*PaymentResult, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT recipient_id, role, amount
		FROM ledger_entries
		WHERE payment_id = $1
		ORDER BY id
	`, payment.ID)
	if err != nil {
		return nil, err
	}
	receivables, err := scanReceivables(rows)
	if err != nil {
		return nil, err
	}

	var event OutboxEventSummary
	err = tx.QueryRowContext(ctx, `
		SELECT type, status
		FROM outbox_events
		WHERE payment_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, payment.ID).Scan(&event.Type, &event.Status)
	if err != nil {
		return nil, err
	}

	return resultFromRows(payment, receivables, event), nil
}

func (s *PaymentService) assembleResult(ctx context.Context, payment *models.Payment) (*PaymentResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recipient_id, role, amount
		FROM ledger_entries
		WHERE payment_id = $1
		ORDER BY id
	`, payment.ID)
	if err != nil {
		return nil, err
	}
	receivables, err := scanReceivables(rows)
	if err != nil {
		return nil, err
	}

	var event OutboxEventSummary
	err = s.db.QueryRowContext(ctx, `
		SELECT type, status
		FROM outbox_events
		WHERE payment_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, payment.ID).Scan(&event.Type, &event.Status)
	if err != nil {
		return nil, err
	}

	return resultFromRows(payment, receivables, event), nil
}

func scanReceivables(rows *sql.Rows) ([]Receivable, error) {
	defer rows.Close()

	receivables := []Receivable{}
	for rows.Next() {
		var receivable Receivable
		if err := rows.Scan(&receivable.RecipientID, &receivable.Role, &receivable.Amount); err != nil {
			return nil, err
		}
		receivables = append(receivables, receivable)
	}
	return receivables, rows.Err()
}

func resultFromRows(payment *models.Payment, receivables []Receivable, event OutboxEventSummary) *PaymentResult {
	return &PaymentResult{
		PaymentID:         payment.ID,
		Status:            payment.Status,
		GrossAmount:       payment.GrossAmount,
		PlatformFeeAmount: payment.PlatformFeeAmount,
		NetAmount:         payment.NetAmount,
		Receivables:       receivables,
		OutboxEvent:       event,
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
