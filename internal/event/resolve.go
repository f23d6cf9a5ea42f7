// internal/event/resolve.go
package event

import "PayLedger/internal/ledger"

// Resolve closes an open dispute in the client's favor, releasing the held
// funds back to available.
type Resolve struct {
	Client ledger.ClientID
	Tx     ledger.TxID
	Key    string
}

func (r *Resolve) EventType() EventType {
	return EventTypeResolve
}

func (r *Resolve) ClientID() ledger.ClientID {
	return r.Client
}

func (r *Resolve) TxID() ledger.TxID {
	return r.Tx
}

func (r *Resolve) DeliveryKey() string {
	return r.Key
}
