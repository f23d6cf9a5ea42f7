package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// OutcomeLogWriter writes outcome records to Postgres using batch inserts.
// Multi-row INSERT keeps the writer portable; switch to pgx CopyFrom if
// throughput ever demands it. The log is write-only from the engine's point
// of view: an audit trail, not recovery state.
type OutcomeLogWriter struct {
	db *sql.DB
}

// OutcomeRow represents a row in ledger_log.outcomes.
type OutcomeRow struct {
	RecordID    string
	Sequence    int64
	EventType   string
	Client      uint16
	Tx          uint32
	AmountMinor int64
	Accepted    bool
	Reason      string
	DeliveryKey string
	Timestamp   time.Time
}

func NewOutcomeLogWriter(db *sql.DB) *OutcomeLogWriter {
	return &OutcomeLogWriter{db: db}
}

// WriteOutcomeBatch writes a batch of outcomes inside the given transaction
// using one multi-row INSERT. Idempotent: redelivered rows hit the record_id
// conflict and are skipped.
func (w *OutcomeLogWriter) WriteOutcomeBatch(ctx context.Context, tx *sql.Tx, outcomes []OutcomeRow) error {
	if len(outcomes) == 0 {
		return nil
	}

	query := `INSERT INTO ledger_log.outcomes
		(record_id, sequence, event_type, client, tx, amount_minor, accepted, reason, delivery_key, timestamp)
		VALUES `

	values := make([]string, 0, len(outcomes))
	args := make([]interface{}, 0, len(outcomes)*10)

	for i, o := range outcomes {
		base := i * 10
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10,
		))
		args = append(args,
			o.RecordID, o.Sequence, o.EventType, int32(o.Client), int64(o.Tx),
			o.AmountMinor, o.Accepted, o.Reason, nullableKey(o.DeliveryKey), o.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (record_id) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func nullableKey(key string) interface{} {
	if key == "" {
		return nil
	}
	return key
}
