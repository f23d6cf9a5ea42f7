package engine

import (
	"fmt"

	"PayLedger/internal/event"
	"PayLedger/internal/ledger"
	"PayLedger/internal/money"
)

// LockedPolicy decides what happens to events that reference an account
// already locked by a chargeback.
type LockedPolicy int32

const (
	// LockedRejectAll rejects every subsequent event touching a locked
	// account. This is the default.
	LockedRejectAll LockedPolicy = iota

	// LockedAllowAll processes events against locked accounts normally;
	// the lock stays visible in snapshots but does not gate anything.
	LockedAllowAll
)

func (p LockedPolicy) String() string {
	switch p {
	case LockedRejectAll:
		return "reject"
	case LockedAllowAll:
		return "allow"
	default:
		return fmt.Sprintf("LockedPolicy(%d)", p)
	}
}

// applyEvent is the decision step: validate the event against the books and,
// if it passes, mutate them. Validation happens entirely before the first
// mutation, so a rejected event leaves no trace.
//
// Returns the amount moved (or held/released), the reject reason
// (RejectNone on acceptance), and an error only for broken-invariant
// conditions that must abort the run.
func (e *Engine) applyEvent(evt event.Event) (money.Amount, RejectReason, error) {
	switch ev := evt.(type) {
	case *event.Deposit:
		return e.applyDeposit(ev)
	case *event.Withdrawal:
		return e.applyWithdrawal(ev)
	case *event.Dispute:
		return e.applyDispute(ev)
	case *event.Resolve:
		return e.applyResolve(ev)
	case *event.Chargeback:
		return e.applyChargeback(ev)
	default:
		return 0, RejectNone, fmt.Errorf("unhandled event type %T", evt)
	}
}

func (e *Engine) applyDeposit(ev *event.Deposit) (money.Amount, RejectReason, error) {
	if !ev.Amount.IsPositive() {
		return 0, RejectNonPositiveAmount, nil
	}
	if e.txs.Contains(ev.Tx) {
		return 0, RejectDuplicateTx, nil
	}

	acct := e.accounts.GetOrCreate(ev.Client)
	if acct.Locked && e.policy == LockedRejectAll {
		return 0, RejectAccountLocked, nil
	}

	if err := e.txs.Put(&ledger.Transaction{
		ID:     ev.Tx,
		Client: ev.Client,
		Amount: ev.Amount,
		Kind:   ledger.TxDeposit,
		State:  ledger.TxActive,
	}); err != nil {
		return 0, RejectNone, err
	}
	acct.Credit(ev.Amount)
	return ev.Amount, RejectNone, nil
}

func (e *Engine) applyWithdrawal(ev *event.Withdrawal) (money.Amount, RejectReason, error) {
	if !ev.Amount.IsPositive() {
		return 0, RejectNonPositiveAmount, nil
	}
	if e.txs.Contains(ev.Tx) {
		return 0, RejectDuplicateTx, nil
	}

	acct := e.accounts.GetOrCreate(ev.Client)
	if acct.Locked && e.policy == LockedRejectAll {
		return 0, RejectAccountLocked, nil
	}
	if ev.Amount > acct.Available {
		return 0, RejectInsufficientFunds, nil
	}

	// Withdrawals are recorded only to block id reuse; they never enter the
	// dispute lifecycle.
	if err := e.txs.Put(&ledger.Transaction{
		ID:     ev.Tx,
		Client: ev.Client,
		Amount: ev.Amount,
		Kind:   ledger.TxWithdrawal,
		State:  ledger.TxActive,
	}); err != nil {
		return 0, RejectNone, err
	}
	if err := acct.Debit(ev.Amount); err != nil {
		return 0, RejectNone, err
	}
	return ev.Amount, RejectNone, nil
}

// lookupDisputed resolves the transaction and account for a dispute-family
// event, applying the shared rejection rules (existence, ownership, deposit
// kind, locked policy).
func (e *Engine) lookupDisputed(client ledger.ClientID, txID ledger.TxID) (*ledger.Transaction, *ledger.Account, RejectReason, error) {
	tx := e.txs.Get(txID)
	if tx == nil {
		return nil, nil, RejectUnknownTx, nil
	}
	if tx.Client != client {
		return nil, nil, RejectOwnerMismatch, nil
	}
	if tx.Kind != ledger.TxDeposit {
		return nil, nil, RejectNotDisputable, nil
	}

	acct := e.accounts.Get(tx.Client)
	if acct == nil {
		// A recorded transaction always has an account.
		return nil, nil, RejectNone, fmt.Errorf("tx %d: no account for client %d", tx.ID, tx.Client)
	}
	if acct.Locked && e.policy == LockedRejectAll {
		return nil, nil, RejectAccountLocked, nil
	}
	return tx, acct, RejectNone, nil
}

func (e *Engine) applyDispute(ev *event.Dispute) (money.Amount, RejectReason, error) {
	tx, acct, reason, err := e.lookupDisputed(ev.Client, ev.Tx)
	if reason != RejectNone || err != nil {
		return 0, reason, err
	}
	if tx.State != ledger.TxActive {
		return 0, RejectWrongState, nil
	}

	if err := tx.MarkDisputed(); err != nil {
		return 0, RejectNone, err
	}
	// Available may go negative: the disputed funds may already be spent,
	// and the client then owes them back.
	acct.Hold(tx.Amount)
	return tx.Amount, RejectNone, nil
}

func (e *Engine) applyResolve(ev *event.Resolve) (money.Amount, RejectReason, error) {
	tx, acct, reason, err := e.lookupDisputed(ev.Client, ev.Tx)
	if reason != RejectNone || err != nil {
		return 0, reason, err
	}
	if tx.State != ledger.TxDisputed {
		return 0, RejectWrongState, nil
	}

	// Held underflow here means the books are corrupt; abort the run.
	if err := acct.Release(tx.Amount); err != nil {
		return 0, RejectNone, err
	}
	if err := tx.MarkResolved(); err != nil {
		return 0, RejectNone, err
	}
	return tx.Amount, RejectNone, nil
}

func (e *Engine) applyChargeback(ev *event.Chargeback) (money.Amount, RejectReason, error) {
	tx, acct, reason, err := e.lookupDisputed(ev.Client, ev.Tx)
	if reason != RejectNone || err != nil {
		return 0, reason, err
	}
	if tx.State != ledger.TxDisputed {
		return 0, RejectWrongState, nil
	}

	if err := acct.ChargeBack(tx.Amount); err != nil {
		return 0, RejectNone, err
	}
	if err := tx.MarkChargedBack(); err != nil {
		return 0, RejectNone, err
	}
	return tx.Amount, RejectNone, nil
}
