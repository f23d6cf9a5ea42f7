// internal/event/deposit.go
package event

import (
	"PayLedger/internal/ledger"
	"PayLedger/internal/money"
)

type Deposit struct {
	Client ledger.ClientID
	Tx     ledger.TxID
	Amount money.Amount
	Key    string
}

func (d *Deposit) EventType() EventType {
	return EventTypeDeposit
}

func (d *Deposit) ClientID() ledger.ClientID {
	return d.Client
}

func (d *Deposit) TxID() ledger.TxID {
	return d.Tx
}

func (d *Deposit) DeliveryKey() string {
	return d.Key
}
