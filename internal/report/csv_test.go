package report_test

import (
	"bytes"
	"testing"

	"PayLedger/internal/ledger"
	"PayLedger/internal/money"
	"PayLedger/internal/report"
)

// ============================================================================
// Test: WriteSnapshotCSV
// ============================================================================

func TestWriteSnapshotCSV(t *testing.T) {
	accounts := []ledger.AccountSnapshot{
		{Client: 1, Available: money.MustParse("1.5"), Held: 0, Total: money.MustParse("1.5"), Locked: false},
		{Client: 2, Available: money.MustParse("-5.0"), Held: money.MustParse("5.0"), Total: 0, Locked: false},
		{Client: 3, Available: 0, Held: 0, Total: 0, Locked: true},
	}

	var buf bytes.Buffer
	if err := report.WriteSnapshotCSV(&buf, accounts); err != nil {
		t.Fatalf("write: %v", err)
	}

	want := "client,available,held,total,locked\n" +
		"1,1.5000,0.0000,1.5000,false\n" +
		"2,-5.0000,5.0000,0.0000,false\n" +
		"3,0.0000,0.0000,0.0000,true\n"
	if buf.String() != want {
		t.Errorf("csv mismatch:\n--- want ---\n%s\n--- got ---\n%s", want, buf.String())
	}
}

func TestWriteSnapshotCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := report.WriteSnapshotCSV(&buf, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "client,available,held,total,locked\n" {
		t.Errorf("empty snapshot should render only the header, got %q", buf.String())
	}
}
