// internal/event/chargeback.go
package event

import "PayLedger/internal/ledger"

// Chargeback closes an open dispute against the client: the held funds leave
// the ledger entirely and the account is locked for good.
type Chargeback struct {
	Client ledger.ClientID
	Tx     ledger.TxID
	Key    string
}

func (c *Chargeback) EventType() EventType {
	return EventTypeChargeback
}

func (c *Chargeback) ClientID() ledger.ClientID {
	return c.Client
}

func (c *Chargeback) TxID() ledger.TxID {
	return c.Tx
}

func (c *Chargeback) DeliveryKey() string {
	return c.Key
}
