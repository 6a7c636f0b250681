package database

import (
	"database/sql"
	"log"
)

// RunMigrations applies the schema the payment core depends on. Statements
// are idempotent so they can run on every startup.
func RunMigrations(db *sql.DB) error {
	log.Println("Running database migrations...")

	if err := createPaymentsTable(db); err != nil {
		return err
	}

	if err := createLedgerEntriesTable(db); err != nil {
		return err
	}

	if err := createOutboxEventsTable(db); err != nil {
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createPaymentsTable(db *sql.DB) error {
	// The unique constraint on idempotency_key is load-bearing: concurrent
	// confirmations with the same key race to insert, and exactly one wins.
	query := `
		CREATE TABLE IF NOT EXISTS payments (
			id UUID PRIMARY KEY,
			idempotency_key VARCHAR(255) NOT NULL UNIQUE,
			status VARCHAR(20) NOT NULL DEFAULT 'captured',
			gross_amount NUMERIC(12,2) NOT NULL,
			platform_fee_amount NUMERIC(12,2) NOT NULL,
			net_amount NUMERIC(12,2) NOT NULL,
			payment_method VARCHAR(10) NOT NULL,
			installments SMALLINT NOT NULL,
			currency CHAR(3) NOT NULL,
			payload_hash CHAR(64) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	_, err := db.Exec(query)
	if err != nil {
		log.Printf("Failed to run migration for payments table: %v", err)
		return err
	}
	return nil
}

func createLedgerEntriesTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS ledger_entries (
			id BIGSERIAL PRIMARY KEY,
			payment_id UUID NOT NULL REFERENCES payments(id) ON DELETE CASCADE,
			recipient_id VARCHAR(255) NOT NULL,
			role VARCHAR(50) NOT NULL,
			amount NUMERIC(12,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_entries_payment_id ON ledger_entries (payment_id);
		CREATE INDEX IF NOT EXISTS idx_ledger_entries_recipient_id ON ledger_entries (recipient_id);
	`
	_, err := db.Exec(query)
	if err != nil {
		log.Printf("Failed to run migration for ledger_entries table: %v", err)
		return err
	}
	return nil
}

func createOutboxEventsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS outbox_events (
			id BIGSERIAL PRIMARY KEY,
			payment_id UUID NOT NULL REFERENCES payments(id) ON DELETE CASCADE,
			type VARCHAR(50) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			published_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_outbox_events_payment_id ON outbox_events (payment_id);
		CREATE INDEX IF NOT EXISTS idx_outbox_events_type ON outbox_events (type);
		CREATE INDEX IF NOT EXISTS idx_outbox_events_status ON outbox_events (status);
	`
	_, err := db.Exec(query)
	if err != nil {
		log.Printf("Failed to run migration for outbox_events table: %v", err)
		return err
	}
	return nil
}
