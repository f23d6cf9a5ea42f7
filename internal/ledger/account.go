package ledger

import (
	"fmt"
	"sort"

	"PayLedger/internal/money"
)

// ClientID identifies a client account. The id space is bounded (16-bit),
// so the account book never needs eviction.
type ClientID uint16

// Account is the per-client balance record. Mutated only by the engine's
// single consumer goroutine; no locking.
//
// Invariant after every applied event: total == available + held, and held
// is never negative. Available may legitimately go negative when a deposit
// is disputed after its funds were already withdrawn.
type Account struct {
	Client    ClientID
	Available money.Amount
	Held      money.Amount
	Locked    bool
}

// Total is the client's full asset position.
func (a *Account) Total() money.Amount { return a.Available + a.Held }

// Credit adds funds to available.
func (a *Account) Credit(amount money.Amount) {
	a.Available += amount
}

// Debit removes funds from available. Fails when available would go
// negative; withdrawals never overdraw.
func (a *Account) Debit(amount money.Amount) error {
	if amount > a.Available {
		return fmt.Errorf("debit %s exceeds available %s", amount, a.Available)
	}
	a.Available -= amount
	return nil
}

// Hold moves funds from available to held for a dispute. Available may go
// negative here: the disputed deposit may already have been spent.
func (a *Account) Hold(amount money.Amount) {
	a.Available -= amount
	a.Held += amount
}

// Release moves held funds back to available when a dispute resolves.
// Held going negative means the books are corrupt, not bad input.
func (a *Account) Release(amount money.Amount) error {
	if amount > a.Held {
		return fmt.Errorf("release %s exceeds held %s for client %d", amount, a.Held, a.Client)
	}
	a.Held -= amount
	a.Available += amount
	return nil
}

// ChargeBack removes held funds entirely (total shrinks) and locks the
// account. The lock is irreversible.
func (a *Account) ChargeBack(amount money.Amount) error {
	if amount > a.Held {
		return fmt.Errorf("chargeback %s exceeds held %s for client %d", amount, a.Held, a.Client)
	}
	a.Held -= amount
	a.Locked = true
	return nil
}

// Snapshot returns a read-only copy of the account state.
func (a *Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		Client:    a.Client,
		Available: a.Available,
		Held:      a.Held,
		Total:     a.Total(),
		Locked:    a.Locked,
	}
}

// AccountSnapshot is the externally visible balance record. Amounts render
// to 4 fractional digits via money.Amount.
type AccountSnapshot struct {
	Client    ClientID     `json:"client"`
	Available money.Amount `json:"available"`
	Held      money.Amount `json:"held"`
	Total     money.Amount `json:"total"`
	Locked    bool         `json:"locked"`
}

// AccountBook holds every account ever observed, keyed by client id.
// Accounts are created implicitly on first reference and never deleted.
type AccountBook struct {
	accounts map[ClientID]*Account
}

func NewAccountBook() *AccountBook {
	return &AccountBook{accounts: make(map[ClientID]*Account)}
}

// Get returns the account for a client, or nil if never observed.
func (b *AccountBook) Get(client ClientID) *Account {
	return b.accounts[client]
}

// GetOrCreate returns the account for a client, creating a zeroed unlocked
// record on first reference.
func (b *AccountBook) GetOrCreate(client ClientID) *Account {
	if acct, ok := b.accounts[client]; ok {
		return acct
	}
	acct := &Account{Client: client}
	b.accounts[client] = acct
	return acct
}

// Len returns the number of known accounts.
func (b *AccountBook) Len() int { return len(b.accounts) }

// LockedCount returns the number of locked accounts.
func (b *AccountBook) LockedCount() int {
	n := 0
	for _, acct := range b.accounts {
		if acct.Locked {
			n++
		}
	}
	return n
}

// Snapshot copies every account, sorted by client id for deterministic
// output. The copy is safe for concurrent inspection after delivery.
func (b *AccountBook) Snapshot() []AccountSnapshot {
	out := make([]AccountSnapshot, 0, len(b.accounts))
	for _, acct := range b.accounts {
		out = append(out, acct.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Client < out[j].Client })
	return out
}

// CheckInvariants verifies the book-wide balance invariants. Total is
// derived from available and held, so the only falsifiable invariant here is
// that held never goes negative; a failure is a fatal internal error, never
// a client error.
func (b *AccountBook) CheckInvariants() error {
	for _, acct := range b.accounts {
		if acct.Held < 0 {
			return fmt.Errorf("client %d: held is negative (%s)", acct.Client, acct.Held)
		}
	}
	return nil
}
