// internal/event/dispute.go
package event

import "PayLedger/internal/ledger"

// Dispute opens a claim against a previously accepted deposit. It carries
// no amount; the held amount comes from the referenced transaction record.
type Dispute struct {
	Client ledger.ClientID
	Tx     ledger.TxID
	Key    string
}

func (d *Dispute) EventType() EventType {
	return EventTypeDispute
}

func (d *Dispute) ClientID() ledger.ClientID {
	return d.Client
}

func (d *Dispute) TxID() ledger.TxID {
	return d.Tx
}

func (d *Dispute) DeliveryKey() string {
	return d.Key
}
