package event

import "PayLedger/internal/ledger"

// EventType discriminator for event payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeDeposit
	EventTypeWithdrawal
	EventTypeDispute
	EventTypeResolve
	EventTypeChargeback
)

// Event is the closed set of domain events the engine consumes. The five
// concrete types in this package are the only implementations; the engine
// dispatches with an exhaustive type switch.
type Event interface {
	// EventType returns the discriminator
	EventType() EventType

	// ClientID returns the client the event claims to act for
	ClientID() ledger.ClientID

	// TxID returns the referenced transaction id
	TxID() ledger.TxID

	// DeliveryKey returns the transport-level dedup key for at-least-once
	// sources (NATS message id, HTTP Idempotency-Key). Empty for sources
	// that deliver exactly once, such as the CSV batch reader.
	DeliveryKey() string
}

func (et EventType) String() string {
	switch et {
	case EventTypeDeposit:
		return "Deposit"
	case EventTypeWithdrawal:
		return "Withdrawal"
	case EventTypeDispute:
		return "Dispute"
	case EventTypeResolve:
		return "Resolve"
	case EventTypeChargeback:
		return "Chargeback"
	default:
		return "Unknown"
	}
}
