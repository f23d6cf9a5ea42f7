package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"PayLedger/internal/engine"
	"PayLedger/internal/event"
	"PayLedger/internal/ledger"
	"PayLedger/internal/money"

	"github.com/rs/zerolog"
)

// CSVReader feeds a row-oriented event file into the engine. Rows look like
//
//	type,       client, tx, amount
//	deposit,    1,      1,  1.5
//	dispute,    1,      1,
//
// Header and fields are whitespace-tolerant and the type is matched case
// insensitively. Malformed rows are soft errors: logged and skipped, never
// fatal to the run. The reader delivers each row exactly once, so events
// carry no delivery key.
type CSVReader struct {
	log zerolog.Logger
}

func NewCSVReader(log zerolog.Logger) *CSVReader {
	return &CSVReader{log: log}
}

// Run parses rows from r and submits them in order through the handle,
// blocking on backpressure. Returns on input exhaustion; the caller decides
// when to issue Exit.
func (cr *CSVReader) Run(ctx context.Context, r io.Reader, h *engine.Handle) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // dispute rows may omit the amount column

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}
	cols, err := headerIndex(header)
	if err != nil {
		return err
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			cr.log.Warn().Err(err).Int("line", line).Msg("skipping malformed csv row")
			continue
		}

		evt, err := cols.parseRow(record)
		if err != nil {
			cr.log.Warn().Err(err).Int("line", line).Msg("skipping invalid csv row")
			continue
		}

		if err := h.Submit(ctx, evt); err != nil {
			return fmt.Errorf("submit line %d: %w", line, err)
		}
	}
}

// columnIndex maps the known column names to their positions.
type columnIndex struct {
	typ, client, tx, amount int
}

func headerIndex(header []string) (columnIndex, error) {
	idx := columnIndex{typ: -1, client: -1, tx: -1, amount: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "type":
			idx.typ = i
		case "client":
			idx.client = i
		case "tx":
			idx.tx = i
		case "amount":
			idx.amount = i
		}
	}
	if idx.typ < 0 || idx.client < 0 || idx.tx < 0 {
		return idx, fmt.Errorf("csv header missing required columns (have %v)", header)
	}
	return idx, nil
}

func (c columnIndex) field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c columnIndex) parseRow(record []string) (event.Event, error) {
	kind := strings.ToLower(c.field(record, c.typ))

	client64, err := strconv.ParseUint(c.field(record, c.client), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("parse client: %w", err)
	}
	tx64, err := strconv.ParseUint(c.field(record, c.tx), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parse tx: %w", err)
	}
	client := ledger.ClientID(client64)
	tx := ledger.TxID(tx64)

	switch kind {
	case "deposit", "withdrawal":
		amount, err := money.Parse(c.field(record, c.amount))
		if err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		if kind == "deposit" {
			return &event.Deposit{Client: client, Tx: tx, Amount: amount}, nil
		}
		return &event.Withdrawal{Client: client, Tx: tx, Amount: amount}, nil
	case "dispute":
		return &event.Dispute{Client: client, Tx: tx}, nil
	case "resolve":
		return &event.Resolve{Client: client, Tx: tx}, nil
	case "chargeback":
		return &event.Chargeback{Client: client, Tx: tx}, nil
	default:
		return nil, fmt.Errorf("unknown row type %q", kind)
	}
}
