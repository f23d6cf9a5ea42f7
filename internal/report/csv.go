// Package report renders engine output for external consumers: the final
// snapshot as CSV and per-event outcomes as diagnostics.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"PayLedger/internal/ledger"
)

// WriteSnapshotCSV renders the final account snapshot as
//
//	client,available,held,total,locked
//	1,1.5000,0.0000,1.5000,false
//
// Amounts carry exactly 4 fractional digits. Rows arrive already sorted by
// client id from the account book.
func WriteSnapshotCSV(w io.Writer, accounts []ledger.AccountSnapshot) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"client", "available", "held", "total", "locked"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, acct := range accounts {
		record := []string{
			strconv.FormatUint(uint64(acct.Client), 10),
			acct.Available.String(),
			acct.Held.String(),
			acct.Total.String(),
			strconv.FormatBool(acct.Locked),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row for client %d: %w", acct.Client, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
