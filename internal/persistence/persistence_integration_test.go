package persistence_test

import (
	"context"
	"testing"
	"time"

	"PayLedger/internal/engine"
	"PayLedger/internal/event"
	"PayLedger/internal/ledger"
	"PayLedger/internal/money"
	"PayLedger/internal/persistence"
	"PayLedger/internal/testutil"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func outcomeRow(seq int64, key string) persistence.OutcomeRow {
	return persistence.OutcomeRow{
		RecordID:    uuid.New().String(),
		Sequence:    seq,
		EventType:   "Deposit",
		Client:      1,
		Tx:          uint32(seq),
		AmountMinor: 10_000,
		Accepted:    true,
		Reason:      "",
		DeliveryKey: key,
		Timestamp:   time.Now(),
	}
}

// ============================================================================
// Test: OutcomeLogWriter (integration)
// ============================================================================

func TestOutcomeLogWriter_BatchInsert(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	migrator := persistence.NewMigrator(db, "../../migrations", zerolog.Nop())
	if err := migrator.Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	writer := persistence.NewOutcomeLogWriter(db)

	rows := []persistence.OutcomeRow{
		outcomeRow(1, "msg-1"),
		outcomeRow(2, ""),
		outcomeRow(3, "msg-3"),
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := writer.WriteOutcomeBatch(ctx, tx, rows); err != nil {
		tx.Rollback()
		t.Fatalf("write batch: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_log.outcomes`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("row count: got %d, want 3", count)
	}

	// Empty delivery keys land as NULL, keeping the partial dedup index small.
	var nullKeys int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_log.outcomes WHERE delivery_key IS NULL`).Scan(&nullKeys); err != nil {
		t.Fatalf("count nulls: %v", err)
	}
	if nullKeys != 1 {
		t.Errorf("null keys: got %d, want 1", nullKeys)
	}
}

func TestOutcomeLogWriter_ConflictSkipsDuplicates(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	migrator := persistence.NewMigrator(db, "../../migrations", zerolog.Nop())
	if err := migrator.Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	writer := persistence.NewOutcomeLogWriter(db)
	row := outcomeRow(1, "msg-1")

	for i := 0; i < 2; i++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		if err := writer.WriteOutcomeBatch(ctx, tx, []persistence.OutcomeRow{row}); err != nil {
			tx.Rollback()
			t.Fatalf("write %d: %v", i, err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_log.outcomes`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("replayed record_id should insert once, got %d rows", count)
	}
}

// ============================================================================
// Test: PersistenceWorker (integration)
// ============================================================================

func TestPersistenceWorker_FlushesEngineOutcomes(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	migrator := persistence.NewMigrator(db, "../../migrations", zerolog.Nop())
	if err := migrator.Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	auditChan := make(chan engine.Outcome, 64)
	worker := persistence.NewPersistenceWorker(db, auditChan, 10, 50*time.Millisecond, nil, zerolog.Nop())

	workerDone := make(chan error, 1)
	go func() { workerDone <- worker.Run(ctx) }()

	h := engine.New(engine.Options{
		AuditChan: auditChan,
		Logger:    zerolog.Nop(),
	}).Start(ctx)

	events := []event.Event{
		&event.Deposit{Client: 1, Tx: 1, Amount: money.MustParse("1.0"), Key: "m1"},
		&event.Withdrawal{Client: 1, Tx: 2, Amount: money.MustParse("0.5"), Key: "m2"},
		&event.Withdrawal{Client: 1, Tx: 3, Amount: money.MustParse("9.0"), Key: "m3"}, // rejected
	}
	for i, evt := range events {
		if err := h.Submit(ctx, evt); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if _, err := h.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	// Channel close triggers the final flush.
	close(auditChan)
	select {
	case err := <-workerDone:
		if err != nil {
			t.Fatalf("worker: %v", err)
		}
	case <-ctx.Done():
		t.Fatal("worker did not finish")
	}

	var count, rejected int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_log.outcomes`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("audit rows: got %d, want 3", count)
	}
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_log.outcomes WHERE NOT accepted AND reason = 'insufficient_funds'`).Scan(&rejected); err != nil {
		t.Fatalf("count rejected: %v", err)
	}
	if rejected != 1 {
		t.Errorf("rejected rows: got %d, want 1", rejected)
	}
}

// ============================================================================
// Test: SnapshotArchiver (integration)
// ============================================================================

func TestSnapshotArchiver_ArchiveAndLatest(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	migrator := persistence.NewMigrator(db, "../../migrations", zerolog.Nop())
	if err := migrator.Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	archiver := persistence.NewSnapshotArchiver(db)

	seq, err := archiver.LatestSequence(ctx)
	if err != nil {
		t.Fatalf("latest on empty table: %v", err)
	}
	if seq != 0 {
		t.Errorf("empty table: got %d, want 0", seq)
	}

	accounts := []ledger.AccountSnapshot{
		{Client: 1, Available: money.MustParse("1.5"), Total: money.MustParse("1.5")},
	}
	if err := archiver.Archive(ctx, 42, accounts); err != nil {
		t.Fatalf("archive: %v", err)
	}

	seq, err = archiver.LatestSequence(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if seq != 42 {
		t.Errorf("latest sequence: got %d, want 42", seq)
	}
}

// ============================================================================
// Test: PostgresDeliveryStore (integration)
// ============================================================================

func TestPostgresDeliveryStore_FindsPersistedKeys(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	migrator := persistence.NewMigrator(db, "../../migrations", zerolog.Nop())
	if err := migrator.Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	writer := persistence.NewOutcomeLogWriter(db)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := writer.WriteOutcomeBatch(ctx, tx, []persistence.OutcomeRow{outcomeRow(1, "seen-key")}); err != nil {
		tx.Rollback()
		t.Fatalf("write: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	store := persistence.NewPostgresDeliveryStore(db)

	dup, err := store.IsDuplicate("Deposit", "seen-key")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !dup {
		t.Error("persisted key should be duplicate")
	}

	dup, err = store.IsDuplicate("Deposit", "fresh-key")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if dup {
		t.Error("fresh key should not be duplicate")
	}
}
