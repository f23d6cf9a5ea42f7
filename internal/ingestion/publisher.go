package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PayLedger/internal/engine"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// OutcomePublisher publishes per-event outcome records to NATS for
// downstream consumers (client notification, reconciliation). Fed from the
// engine's best-effort observer channel; a failed publish is logged and
// dropped, never retried into the engine's path.
// Subjects follow the pattern: pay.ledger.outcomes.{event_type}
type OutcomePublisher struct {
	js        jetstream.JetStream
	inputChan <-chan engine.Outcome
	log       zerolog.Logger
}

// outcomeJSON is the outbound wire form of an outcome record.
type outcomeJSON struct {
	RecordID  string    `json:"record_id"`
	Sequence  int64     `json:"sequence"`
	EventType string    `json:"event_type"`
	Client    uint16    `json:"client"`
	Tx        uint32    `json:"tx"`
	Amount    string    `json:"amount"`
	Accepted  bool      `json:"accepted"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewOutcomePublisher(js jetstream.JetStream, inputChan <-chan engine.Outcome, log zerolog.Logger) *OutcomePublisher {
	return &OutcomePublisher{
		js:        js,
		inputChan: inputChan,
		log:       log,
	}
}

// Run starts the publisher loop. Returns when the context is cancelled or
// the input channel closes.
func (op *OutcomePublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case out, ok := <-op.inputChan:
			if !ok {
				return nil
			}

			if err := op.publish(ctx, out); err != nil {
				op.log.Warn().Err(err).Int64("sequence", out.Sequence).Msg("outcome publish failed")
				// Non-fatal: the audit log in Postgres is the authoritative record
			}
		}
	}
}

func (op *OutcomePublisher) publish(ctx context.Context, out engine.Outcome) error {
	j := outcomeJSON{
		RecordID:  out.RecordID.String(),
		Sequence:  out.Sequence,
		EventType: out.EventType.String(),
		Client:    uint16(out.Client),
		Tx:        uint32(out.Tx),
		Amount:    out.Amount.String(),
		Accepted:  out.Accepted,
		Timestamp: out.Timestamp,
	}
	if !out.Accepted {
		j.Reason = out.Reason.String()
	}

	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	subject := fmt.Sprintf("pay.ledger.outcomes.%s", out.EventType)
	_, err = op.js.Publish(ctx, subject, data)
	return err
}

// EnsureOutcomeStream creates the outbound outcomes stream.
func EnsureOutcomeStream(ctx context.Context, js jetstream.JetStream, log zerolog.Logger) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "PAY_LEDGER_OUTCOMES",
		Subjects:  []string{"pay.ledger.outcomes.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outcome stream: %w", err)
	}
	log.Info().Msg("ensured outcome stream PAY_LEDGER_OUTCOMES")
	return nil
}
