package ledger

import (
	"fmt"

	"PayLedger/internal/money"
)

// TxID identifies a transaction. Ids are globally unique across all clients;
// reuse is rejected before a record is created. The 32-bit space bounds
// retention: records are never pruned because a dispute or chargeback may
// reference any historical transaction.
type TxID uint32

// TxKind distinguishes the two money-moving event kinds.
type TxKind uint8

const (
	TxDeposit TxKind = iota
	TxWithdrawal
)

func (k TxKind) String() string {
	switch k {
	case TxDeposit:
		return "deposit"
	case TxWithdrawal:
		return "withdrawal"
	default:
		return fmt.Sprintf("TxKind(%d)", k)
	}
}

// TxState is the dispute lifecycle state. Only deposits move through this
// machine; withdrawals are recorded solely to block id reuse and are never
// disputable.
//
//	Active -> Disputed -> Active      (resolve, re-enters the disputable pool)
//	                   -> ChargedBack (terminal)
type TxState uint8

const (
	TxActive TxState = iota
	TxDisputed
	TxChargedBack
)

func (s TxState) String() string {
	switch s {
	case TxActive:
		return "active"
	case TxDisputed:
		return "disputed"
	case TxChargedBack:
		return "charged_back"
	default:
		return fmt.Sprintf("TxState(%d)", s)
	}
}

// Transaction is the per-transaction record retained for the life of the
// process.
type Transaction struct {
	ID     TxID
	Client ClientID
	Amount money.Amount
	Kind   TxKind
	State  TxState
}

// Disputable reports whether a dispute may open against this transaction
// right now.
func (t *Transaction) Disputable() bool {
	return t.Kind == TxDeposit && t.State == TxActive
}

// MarkDisputed transitions Active -> Disputed.
func (t *Transaction) MarkDisputed() error {
	if t.State != TxActive {
		return fmt.Errorf("tx %d: cannot dispute from state %s", t.ID, t.State)
	}
	t.State = TxDisputed
	return nil
}

// MarkResolved transitions Disputed -> Active.
func (t *Transaction) MarkResolved() error {
	if t.State != TxDisputed {
		return fmt.Errorf("tx %d: cannot resolve from state %s", t.ID, t.State)
	}
	t.State = TxActive
	return nil
}

// MarkChargedBack transitions Disputed -> ChargedBack. Terminal.
func (t *Transaction) MarkChargedBack() error {
	if t.State != TxDisputed {
		return fmt.Errorf("tx %d: cannot charge back from state %s", t.ID, t.State)
	}
	t.State = TxChargedBack
	return nil
}

// TransactionStore holds every accepted transaction, keyed by id. Membership
// doubles as the replay/dedup guard: an id present here is rejected on any
// later Deposit or Withdrawal regardless of client.
type TransactionStore struct {
	txs map[TxID]*Transaction
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{txs: make(map[TxID]*Transaction)}
}

// Contains reports whether an id was ever accepted.
func (s *TransactionStore) Contains(id TxID) bool {
	_, ok := s.txs[id]
	return ok
}

// Get returns the transaction for an id, or nil.
func (s *TransactionStore) Get(id TxID) *Transaction {
	return s.txs[id]
}

// Put records a newly accepted transaction. The id must not already exist;
// callers check Contains first, so a collision here is an internal error.
func (s *TransactionStore) Put(tx *Transaction) error {
	if _, ok := s.txs[tx.ID]; ok {
		return fmt.Errorf("tx %d already recorded", tx.ID)
	}
	s.txs[tx.ID] = tx
	return nil
}

// Len returns the number of recorded transactions.
func (s *TransactionStore) Len() int { return len(s.txs) }
