package engine

import (
	"time"

	"PayLedger/internal/event"
	"PayLedger/internal/ledger"
	"PayLedger/internal/money"

	"github.com/google/uuid"
)

// RejectReason classifies soft validation failures. These are client errors:
// the event is discarded, state is untouched, processing continues. Internal
// failures travel as Go errors instead and abort the run.
type RejectReason int32

const (
	RejectNone RejectReason = iota
	RejectNonPositiveAmount
	RejectDuplicateTx
	RejectDuplicateDelivery
	RejectInsufficientFunds
	RejectUnknownTx
	RejectOwnerMismatch
	RejectNotDisputable
	RejectWrongState
	RejectAccountLocked
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectNonPositiveAmount:
		return "non_positive_amount"
	case RejectDuplicateTx:
		return "duplicate_tx"
	case RejectDuplicateDelivery:
		return "duplicate_delivery"
	case RejectInsufficientFunds:
		return "insufficient_funds"
	case RejectUnknownTx:
		return "unknown_tx"
	case RejectOwnerMismatch:
		return "owner_mismatch"
	case RejectNotDisputable:
		return "not_disputable"
	case RejectWrongState:
		return "wrong_state"
	case RejectAccountLocked:
		return "account_locked"
	default:
		return "unknown"
	}
}

// Outcome is the per-event result record. Every consumed event produces
// exactly one, accepted or not. The engine forwards outcomes on the audit
// channel (blocking, complete) and the observer channel (non-blocking,
// best-effort); neither path alters ledger state.
type Outcome struct {
	RecordID    uuid.UUID
	Sequence    int64
	EventType   event.EventType
	Client      ledger.ClientID
	Tx          ledger.TxID
	Amount      money.Amount // moved/held amount; zero when nothing applied
	Accepted    bool
	Reason      RejectReason
	DeliveryKey string // transport dedup key, empty for exactly-once sources
	Timestamp   time.Time
}
