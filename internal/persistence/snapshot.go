package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"PayLedger/internal/ledger"

	"github.com/google/uuid"
)

// SnapshotArchiver stores the final balance snapshot produced at shutdown.
// Archived snapshots are an audit artifact for reconciliation. The engine
// never reads them back; every run starts from an empty ledger.
type SnapshotArchiver struct {
	db *sql.DB
}

// archivedSnapshot is the JSON stored in the data column.
type archivedSnapshot struct {
	Sequence  int64                    `json:"sequence"`
	Accounts  []ledger.AccountSnapshot `json:"accounts"`
	CreatedAt time.Time                `json:"created_at"`
}

func NewSnapshotArchiver(db *sql.DB) *SnapshotArchiver {
	return &SnapshotArchiver{db: db}
}

// Archive persists one final snapshot row.
func (sa *SnapshotArchiver) Archive(ctx context.Context, sequence int64, accounts []ledger.AccountSnapshot) error {
	data, err := json.Marshal(archivedSnapshot{
		Sequence:  sequence,
		Accounts:  accounts,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = sa.db.ExecContext(ctx, `
		INSERT INTO ledger_log.snapshots (snapshot_id, sequence, accounts, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, uuid.New(), sequence, data, len(data))

	return err
}

// LatestSequence returns the highest archived snapshot sequence, 0 when the
// table is empty. Used by reconciliation tooling, not by the engine.
func (sa *SnapshotArchiver) LatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := sa.db.QueryRowContext(ctx, `SELECT MAX(sequence) FROM ledger_log.snapshots`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}
