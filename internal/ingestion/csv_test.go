package ingestion_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"PayLedger/internal/engine"
	"PayLedger/internal/ingestion"
	"PayLedger/internal/ledger"
	"PayLedger/internal/money"

	"github.com/rs/zerolog"
)

// runCSV feeds a CSV document through a fresh engine and returns the final
// snapshot.
func runCSV(t *testing.T, input string) []ledger.AccountSnapshot {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h := engine.New(engine.Options{Logger: zerolog.Nop()}).Start(ctx)
	reader := ingestion.NewCSVReader(zerolog.Nop())
	if err := reader.Run(ctx, strings.NewReader(input), h); err != nil {
		t.Fatalf("csv run: %v", err)
	}

	accounts, err := h.Shutdown(ctx)
	if err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	return accounts
}

func findClient(t *testing.T, accounts []ledger.AccountSnapshot, client ledger.ClientID) ledger.AccountSnapshot {
	t.Helper()
	for _, a := range accounts {
		if a.Client == client {
			return a
		}
	}
	t.Fatalf("client %d not in snapshot", client)
	return ledger.AccountSnapshot{}
}

// ============================================================================
// Test: CSVReader
// ============================================================================

func TestCSVReader_BasicFlow(t *testing.T) {
	input := `type,client,tx,amount
deposit,1,1,1.0
deposit,2,2,2.0
deposit,1,3,2.0
withdrawal,1,4,1.5
withdrawal,2,5,3.0
`
	accounts := runCSV(t, input)

	c1 := findClient(t, accounts, 1)
	if c1.Available != money.MustParse("1.5") {
		t.Errorf("client 1: got %s, want 1.5000", c1.Available)
	}
	c2 := findClient(t, accounts, 2)
	if c2.Available != money.MustParse("2.0") {
		t.Errorf("client 2: got %s, want 2.0000", c2.Available)
	}
}

func TestCSVReader_WhitespaceAndCase(t *testing.T) {
	input := "type, client, tx, amount\n" +
		"  Deposit,  1,  1,  1.0\n" +
		"WITHDRAWAL, 1, 2, 0.5\n"

	accounts := runCSV(t, input)
	if got := findClient(t, accounts, 1).Available; got != money.MustParse("0.5") {
		t.Errorf("got %s, want 0.5000", got)
	}
}

func TestCSVReader_DisputeRowsOmitAmount(t *testing.T) {
	input := `type,client,tx,amount
deposit,1,1,5.0
dispute,1,1,
resolve,1,1
dispute,1,1
chargeback,1,1
`
	accounts := runCSV(t, input)

	c1 := findClient(t, accounts, 1)
	if !c1.Locked {
		t.Error("account should be locked after chargeback")
	}
	if c1.Total != 0 {
		t.Errorf("total: got %s, want 0.0000", c1.Total)
	}
}

func TestCSVReader_MalformedRowsSkipped(t *testing.T) {
	input := `type,client,tx,amount
deposit,1,1,1.0
deposit,not-a-client,2,1.0
teleport,1,3,1.0
deposit,1,4,1.00001
deposit,1,5,2.0
`
	accounts := runCSV(t, input)
	// Rows 2-4 are soft errors; rows 1 and 5 apply.
	if got := findClient(t, accounts, 1).Available; got != money.MustParse("3.0") {
		t.Errorf("got %s, want 3.0000", got)
	}
}

func TestCSVReader_ColumnOrderIndependent(t *testing.T) {
	input := `amount,tx,client,type
1.0,1,1,deposit
`
	accounts := runCSV(t, input)
	if got := findClient(t, accounts, 1).Available; got != money.MustParse("1.0") {
		t.Errorf("got %s, want 1.0000", got)
	}
}

func TestCSVReader_MissingRequiredColumn(t *testing.T) {
	ctx := context.Background()
	h := engine.New(engine.Options{Logger: zerolog.Nop()}).Start(ctx)
	defer h.Shutdown(ctx)

	reader := ingestion.NewCSVReader(zerolog.Nop())
	err := reader.Run(ctx, strings.NewReader("kind,client,tx\n"), h)
	if err == nil {
		t.Error("header without type column should fail")
	}
}

func TestCSVReader_EmptyInput(t *testing.T) {
	ctx := context.Background()
	h := engine.New(engine.Options{Logger: zerolog.Nop()}).Start(ctx)
	defer h.Shutdown(ctx)

	reader := ingestion.NewCSVReader(zerolog.Nop())
	if err := reader.Run(ctx, strings.NewReader(""), h); err != nil {
		t.Errorf("empty input should be a no-op, got %v", err)
	}
}

func TestCSVReader_EventsCarryNoDeliveryKey(t *testing.T) {
	// Batch input is exactly-once: identical rows must be rejected by the
	// tx-id guard, not absorbed silently by the delivery guard.
	input := `type,client,tx,amount
deposit,1,1,1.0
deposit,1,1,1.0
`
	accounts := runCSV(t, input)
	if got := findClient(t, accounts, 1).Available; got != money.MustParse("1.0") {
		t.Errorf("duplicate tx row must not double-apply, got %s", got)
	}
}
