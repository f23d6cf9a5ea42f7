// internal/event/withdrawal.go
package event

import (
	"PayLedger/internal/ledger"
	"PayLedger/internal/money"
)

type Withdrawal struct {
	Client ledger.ClientID
	Tx     ledger.TxID
	Amount money.Amount
	Key    string
}

func (w *Withdrawal) EventType() EventType {
	return EventTypeWithdrawal
}

func (w *Withdrawal) ClientID() ledger.ClientID {
	return w.Client
}

func (w *Withdrawal) TxID() ledger.TxID {
	return w.Tx
}

func (w *Withdrawal) DeliveryKey() string {
	return w.Key
}
