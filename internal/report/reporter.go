package report

import (
	"context"

	"PayLedger/internal/engine"

	"github.com/rs/zerolog"
)

// OutcomeReporter drains the engine's best-effort observer channel and logs
// rejections. With Verbose set, rejections log at info so operators can
// follow soft errors without dropping the global level to debug. Purely
// diagnostic: the authoritative record is the Postgres audit log.
type OutcomeReporter struct {
	inputChan <-chan engine.Outcome
	log       zerolog.Logger
	verbose   bool
}

func NewOutcomeReporter(inputChan <-chan engine.Outcome, log zerolog.Logger, verbose bool) *OutcomeReporter {
	return &OutcomeReporter{
		inputChan: inputChan,
		log:       log,
		verbose:   verbose,
	}
}

// Run consumes outcomes until the context is cancelled or the channel closes.
func (r *OutcomeReporter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out, ok := <-r.inputChan:
			if !ok {
				return nil
			}
			if out.Accepted {
				continue
			}

			evt := r.log.Debug()
			if r.verbose {
				evt = r.log.Info()
			}
			evt.Str("event_type", out.EventType.String()).
				Uint16("client", uint16(out.Client)).
				Uint32("tx", uint32(out.Tx)).
				Str("reason", out.Reason.String()).
				Int64("sequence", out.Sequence).
				Msg("event rejected")
		}
	}
}
