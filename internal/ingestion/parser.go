package ingestion

import (
	"encoding/json"
	"fmt"

	"PayLedger/internal/event"
	"PayLedger/internal/ledger"
	"PayLedger/internal/money"
)

// ParseRawEvent converts a RawEvent (JSON bytes + event type string) into a
// typed event.Event. The ingestion shell validates structure here; semantic
// validation (duplicate ids, ownership, funds) belongs to the engine.
func ParseRawEvent(raw RawEvent, eventType string) (event.Event, error) {
	switch eventType {
	case "Deposit":
		return parseDeposit(raw)
	case "Withdrawal":
		return parseWithdrawal(raw)
	case "Dispute":
		return parseDispute(raw)
	case "Resolve":
		return parseResolve(raw)
	case "Chargeback":
		return parseChargeback(raw)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

// ParseTyped parses a JSON body whose "type" field names the event kind.
// Used by the HTTP injection endpoint, where the subject does not carry the
// kind.
func ParseTyped(data []byte, deliveryKey string) (event.Event, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse event envelope: %w", err)
	}
	raw := RawEvent{MsgID: deliveryKey, Data: data}
	switch probe.Type {
	case "deposit":
		return parseDeposit(raw)
	case "withdrawal":
		return parseWithdrawal(raw)
	case "dispute":
		return parseDispute(raw)
	case "resolve":
		return parseResolve(raw)
	case "chargeback":
		return parseChargeback(raw)
	default:
		return nil, fmt.Errorf("unknown event type: %q", probe.Type)
	}
}

// --- JSON wire formats ---
// Amounts travel as decimal strings ("1.5000") to keep the 4-digit
// fixed-point contract exact on the wire.

type transferJSON struct {
	Client uint16 `json:"client"`
	Tx     uint32 `json:"tx"`
	Amount string `json:"amount"`
}

type disputeRefJSON struct {
	Client uint16 `json:"client"`
	Tx     uint32 `json:"tx"`
}

func parseDeposit(raw RawEvent) (*event.Deposit, error) {
	var j transferJSON
	if err := json.Unmarshal(raw.Data, &j); err != nil {
		return nil, fmt.Errorf("parse Deposit: %w", err)
	}
	amount, err := money.Parse(j.Amount)
	if err != nil {
		return nil, fmt.Errorf("parse Deposit amount: %w", err)
	}
	return &event.Deposit{
		Client: ledger.ClientID(j.Client),
		Tx:     ledger.TxID(j.Tx),
		Amount: amount,
		Key:    raw.MsgID,
	}, nil
}

func parseWithdrawal(raw RawEvent) (*event.Withdrawal, error) {
	var j transferJSON
	if err := json.Unmarshal(raw.Data, &j); err != nil {
		return nil, fmt.Errorf("parse Withdrawal: %w", err)
	}
	amount, err := money.Parse(j.Amount)
	if err != nil {
		return nil, fmt.Errorf("parse Withdrawal amount: %w", err)
	}
	return &event.Withdrawal{
		Client: ledger.ClientID(j.Client),
		Tx:     ledger.TxID(j.Tx),
		Amount: amount,
		Key:    raw.MsgID,
	}, nil
}

func parseDispute(raw RawEvent) (*event.Dispute, error) {
	var j disputeRefJSON
	if err := json.Unmarshal(raw.Data, &j); err != nil {
		return nil, fmt.Errorf("parse Dispute: %w", err)
	}
	return &event.Dispute{
		Client: ledger.ClientID(j.Client),
		Tx:     ledger.TxID(j.Tx),
		Key:    raw.MsgID,
	}, nil
}

func parseResolve(raw RawEvent) (*event.Resolve, error) {
	var j disputeRefJSON
	if err := json.Unmarshal(raw.Data, &j); err != nil {
		return nil, fmt.Errorf("parse Resolve: %w", err)
	}
	return &event.Resolve{
		Client: ledger.ClientID(j.Client),
		Tx:     ledger.TxID(j.Tx),
		Key:    raw.MsgID,
	}, nil
}

func parseChargeback(raw RawEvent) (*event.Chargeback, error) {
	var j disputeRefJSON
	if err := json.Unmarshal(raw.Data, &j); err != nil {
		return nil, fmt.Errorf("parse Chargeback: %w", err)
	}
	return &event.Chargeback{
		Client: ledger.ClientID(j.Client),
		Tx:     ledger.TxID(j.Tx),
		Key:    raw.MsgID,
	}, nil
}
