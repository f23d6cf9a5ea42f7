package persistence

import (
	"context"
	"database/sql"
	"time"
)

// PostgresDeliveryStore implements the cold tier of the engine's delivery
// guard against the outcome log. MarkProcessed is a no-op: the persistence
// worker writes the rows this store queries.
type PostgresDeliveryStore struct {
	db *sql.DB
}

func NewPostgresDeliveryStore(db *sql.DB) *PostgresDeliveryStore {
	return &PostgresDeliveryStore{db: db}
}

// IsDuplicate checks whether a delivery key already appears in the outcome log.
func (s *PostgresDeliveryStore) IsDuplicate(eventType string, deliveryKey string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	query := `
        SELECT 1
        FROM ledger_log.outcomes
        WHERE event_type = $1 AND delivery_key = $2
        LIMIT 1
    `

	var exists int
	err := s.db.QueryRowContext(ctx, query, eventType, deliveryKey).Scan(&exists)

	if err == sql.ErrNoRows {
		return false, nil // Not found - not a duplicate
	}

	if err != nil {
		return false, err // DB error
	}

	return true, nil // Found - is duplicate
}

// MarkProcessed is a no-op for the Postgres tier; the audit writer persists
// the delivery key with the outcome row.
func (s *PostgresDeliveryStore) MarkProcessed(eventType string, deliveryKey string) error {
	return nil
}
