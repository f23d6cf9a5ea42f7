package engine

import (
	"context"

	"PayLedger/internal/event"
	"PayLedger/internal/ledger"
)

// Handle is the producer-side interface to a running engine. Any number of
// goroutines may use it concurrently; the engine behind it stays single
// threaded.
//
// Ordering: events submitted from one goroutine are applied in submission
// order. Across goroutines the only guarantee is some total order consistent
// with each submitter's own order.
type Handle struct {
	inbound chan inboundMsg
	done    chan struct{}
	err     error // written once before done is closed
}

// Submit enqueues one event, blocking while the channel is full
// (backpressure). Returns the engine's terminal error if the loop already
// stopped.
func (h *Handle) Submit(ctx context.Context, evt event.Event) error {
	select {
	case h.inbound <- inboundMsg{evt: evt}:
		return nil
	case <-h.done:
		return h.stopErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueryAccount returns a read-only copy of one account's state, answered by
// the engine loop itself so the result is consistent with every event
// applied so far. found is false for a never-observed client.
func (h *Handle) QueryAccount(ctx context.Context, client ledger.ClientID) (ledger.AccountSnapshot, bool, error) {
	reply := make(chan queryReply, 1)
	select {
	case h.inbound <- inboundMsg{query: &queryRequest{client: &client, reply: reply}}:
	case <-h.done:
		return ledger.AccountSnapshot{}, false, h.stopErr()
	case <-ctx.Done():
		return ledger.AccountSnapshot{}, false, ctx.Err()
	}

	select {
	case r := <-reply:
		if !r.found {
			return ledger.AccountSnapshot{}, false, nil
		}
		return r.accounts[0], true, nil
	case <-h.done:
		return ledger.AccountSnapshot{}, false, h.stopErr()
	case <-ctx.Done():
		return ledger.AccountSnapshot{}, false, ctx.Err()
	}
}

// Accounts returns read-only copies of every known account, sorted by
// client id.
func (h *Handle) Accounts(ctx context.Context) ([]ledger.AccountSnapshot, error) {
	reply := make(chan queryReply, 1)
	select {
	case h.inbound <- inboundMsg{query: &queryRequest{reply: reply}}:
	case <-h.done:
		return nil, h.stopErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.accounts, nil
	case <-h.done:
		return nil, h.stopErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown sends the terminal Exit signal and waits for the final snapshot.
// Every event submitted by this goroutine before Shutdown is applied first.
// After Shutdown returns, the engine no longer consumes anything.
func (h *Handle) Shutdown(ctx context.Context) ([]ledger.AccountSnapshot, error) {
	reply := make(chan []ledger.AccountSnapshot, 1)
	select {
	case h.inbound <- inboundMsg{exit: &exitRequest{reply: reply}}:
	case <-h.done:
		return nil, h.stopErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case snapshot := <-reply:
		return snapshot, nil
	case <-h.done:
		// The reply channel is buffered; drain it if the loop replied just
		// before returning.
		select {
		case snapshot := <-reply:
			return snapshot, nil
		default:
			return nil, h.stopErr()
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed when the engine loop terminates for any reason.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the terminal error, nil after a clean Exit. Valid only after
// Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Depth reports current fill and capacity of the inbound channel.
func (h *Handle) Depth() (size, capacity int) {
	return len(h.inbound), cap(h.inbound)
}

func (h *Handle) stopErr() error {
	if h.err != nil {
		return h.err
	}
	return ErrEngineStopped
}
