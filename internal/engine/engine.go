// Package engine contains the single-threaded ledger state machine. One
// goroutine owns the account book and transaction store; producers reach it
// only through a bounded inbound channel, so no lock guards the books.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PayLedger/internal/event"
	"PayLedger/internal/ledger"
	"PayLedger/internal/money"
	"PayLedger/internal/observability"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultChannelCapacity bounds the inbound queue. Producers block when
	// it fills (backpressure) rather than dropping events.
	DefaultChannelCapacity = 10_000

	// DefaultGuardCapacity is the delivery-key LRU size.
	DefaultGuardCapacity = 1_000_000
)

// ErrEngineStopped is returned by handle operations after the engine loop
// has terminated.
var ErrEngineStopped = errors.New("engine stopped")

// Options configures an Engine. Zero values get defaults; nil channels
// disable the corresponding emission (the CSV batch mode runs with both nil).
type Options struct {
	ChannelCapacity int
	GuardCapacity   int
	LockedPolicy    LockedPolicy

	// DeliveryStore is the optional cold tier behind the delivery-key LRU.
	DeliveryStore DeliveryStore

	// AuditChan receives every outcome. Blocking send: the engine stalls
	// until the persistence worker drains, so the audit log is complete.
	AuditChan chan<- Outcome

	// ObserverChan receives outcomes best-effort. Non-blocking send with
	// drop on full; diagnostics must never stall the engine.
	ObserverChan chan<- Outcome

	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// Engine is the single consumer of the inbound channel and the exclusive
// owner of the account book and transaction store.
type Engine struct {
	accounts *ledger.AccountBook
	txs      *ledger.TransactionStore
	guard    *DeliveryGuard
	policy   LockedPolicy
	sequence int64

	inbound      chan inboundMsg
	auditChan    chan<- Outcome
	observerChan chan<- Outcome
	metrics      *observability.Metrics
	log          zerolog.Logger
}

// inboundMsg is the closed message set the loop consumes: exactly one of
// the fields is set.
type inboundMsg struct {
	evt   event.Event
	query *queryRequest
	exit  *exitRequest
}

type queryRequest struct {
	client *ledger.ClientID // nil queries all accounts
	reply  chan queryReply
}

type queryReply struct {
	accounts []ledger.AccountSnapshot
	found    bool
}

type exitRequest struct {
	reply chan []ledger.AccountSnapshot
}

func New(opts Options) *Engine {
	if opts.ChannelCapacity <= 0 {
		opts.ChannelCapacity = DefaultChannelCapacity
	}
	if opts.GuardCapacity <= 0 {
		opts.GuardCapacity = DefaultGuardCapacity
	}

	return &Engine{
		accounts:     ledger.NewAccountBook(),
		txs:          ledger.NewTransactionStore(),
		guard:        NewDeliveryGuard(opts.GuardCapacity, opts.DeliveryStore),
		policy:       opts.LockedPolicy,
		inbound:      make(chan inboundMsg, opts.ChannelCapacity),
		auditChan:    opts.AuditChan,
		observerChan: opts.ObserverChan,
		metrics:      opts.Metrics,
		log:          opts.Logger,
	}
}

// Start launches the consumption loop and returns the handle producers use.
func (e *Engine) Start(ctx context.Context) *Handle {
	h := &Handle{
		inbound: e.inbound,
		done:    make(chan struct{}),
	}
	go func() {
		h.err = e.run(ctx)
		close(h.done)
	}()
	return h
}

// run consumes messages until Exit, a fatal error, or context cancellation.
// On Exit the snapshot is delivered to the issuer before returning, so every
// event enqueued ahead of Exit is fully applied first (FIFO per producer).
func (e *Engine) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-e.inbound:
			if !ok {
				return errors.New("inbound channel closed unexpectedly")
			}
			switch {
			case msg.evt != nil:
				if err := e.ProcessEvent(msg.evt); err != nil {
					e.log.Error().Err(err).
						Str("event_type", msg.evt.EventType().String()).
						Msg("fatal engine error")
					return fmt.Errorf("apply %s: %w", msg.evt.EventType(), err)
				}
			case msg.query != nil:
				msg.query.reply <- e.handleQuery(msg.query)
			case msg.exit != nil:
				snapshot := e.accounts.Snapshot()
				msg.exit.reply <- snapshot
				e.log.Info().Int("accounts", len(snapshot)).Msg("exit observed, snapshot delivered")
				return nil
			}
		}
	}
}

// ProcessEvent is the per-event pipeline: delivery dedup, state-machine
// apply, outcome emission, dedup marking, metrics. A non-nil error is fatal
// to the run; soft rejections only mark the outcome.
func (e *Engine) ProcessEvent(evt event.Event) error {
	start := time.Now()
	eventType := evt.EventType().String()

	// Step 1: delivery dedup. Only transports with at-least-once semantics
	// set a key; tx-id replay is handled by the state machine itself.
	deliveryKey := evt.DeliveryKey()
	if deliveryKey != "" && e.guard.IsDuplicate(eventType, deliveryKey) {
		e.emitOutcome(e.buildOutcome(evt, 0, RejectDuplicateDelivery))
		if e.metrics != nil {
			e.metrics.EventsRejected.WithLabelValues(eventType, RejectDuplicateDelivery.String()).Inc()
			e.metrics.DeliveryDuplicates.WithLabelValues(eventType).Inc()
		}
		return nil
	}

	// Step 2: validate and apply.
	amount, reason, err := e.applyEvent(evt)
	if err != nil {
		return err
	}

	// Step 3: emit the outcome (blocking audit, best-effort observer).
	out := e.buildOutcome(evt, amount, reason)
	e.emitOutcome(out)

	// Step 4: remember the delivery key whatever the verdict was; the
	// message itself has now been consumed.
	if deliveryKey != "" {
		e.guard.MarkProcessed(eventType, deliveryKey)
	}

	if reason != RejectNone {
		e.log.Debug().
			Str("event_type", eventType).
			Uint16("client", uint16(evt.ClientID())).
			Uint32("tx", uint32(evt.TxID())).
			Str("reason", reason.String()).
			Msg("event rejected")
	}

	// Step 5: metrics.
	if e.metrics != nil {
		if reason == RejectNone {
			e.metrics.EventsApplied.WithLabelValues(eventType).Inc()
		} else {
			e.metrics.EventsRejected.WithLabelValues(eventType, reason.String()).Inc()
		}
		e.metrics.EventDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		e.metrics.EngineSequence.Set(float64(e.sequence))
		e.metrics.AccountsKnown.Set(float64(e.accounts.Len()))
		e.metrics.AccountsLocked.Set(float64(e.accounts.LockedCount()))
		e.metrics.TransactionsTracked.Set(float64(e.txs.Len()))
		e.metrics.DedupLRUSize.Set(float64(e.guard.lru.Size()))
		e.metrics.DedupLRUEvictions.Set(float64(e.guard.lru.Evictions()))
	}

	return nil
}

func (e *Engine) buildOutcome(evt event.Event, amount money.Amount, reason RejectReason) Outcome {
	e.sequence++
	return Outcome{
		RecordID:    uuid.New(),
		Sequence:    e.sequence,
		EventType:   evt.EventType(),
		Client:      evt.ClientID(),
		Tx:          evt.TxID(),
		Amount:      amount,
		Accepted:    reason == RejectNone,
		Reason:      reason,
		DeliveryKey: evt.DeliveryKey(),
		Timestamp:   time.Now(),
	}
}

func (e *Engine) emitOutcome(out Outcome) {
	// Audit: blocking send; the engine stalls until the persistence worker
	// drains. This guarantees the audit log misses nothing.
	if e.auditChan != nil {
		e.auditChan <- out
	}

	// Observer: non-blocking send, drop on full. Diagnostics can lag,
	// the ledger cannot.
	if e.observerChan != nil {
		select {
		case e.observerChan <- out:
		default:
			if e.metrics != nil {
				e.metrics.OutcomeDrops.Inc()
			}
		}
	}
}

func (e *Engine) handleQuery(q *queryRequest) queryReply {
	if q.client == nil {
		return queryReply{accounts: e.accounts.Snapshot(), found: true}
	}
	acct := e.accounts.Get(*q.client)
	if acct == nil {
		return queryReply{}
	}
	return queryReply{accounts: []ledger.AccountSnapshot{acct.Snapshot()}, found: true}
}
