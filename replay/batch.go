package replay

import (
	"context"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/viam-labs/roboclip/session"
)

// A SinkFactory builds the sink for one session's run. It is invoked after
// the session loads, so factories can size themselves off its metadata.
type SinkFactory func(s *session.Session) (Sink, error)

// Batch replays the named sessions under cfg.DataDir in order. Sessions with
// no usable streams are reported and skipped. Any other per-session failure
// is collected and the batch moves on; only config errors and context
// cancellation stop it early. It returns how many sessions replayed cleanly
// along with the collected errors.
func Batch(
	ctx context.Context,
	cfg Config,
	names []string,
	newSink SinkFactory,
	logger golog.Logger,
) (int, error) {
	var errs error
	replayed := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return replayed, multierr.Combine(errs, err)
		}

		s, err := session.Load(filepath.Join(cfg.DataDir, name), logger)
		if err != nil {
			if errors.Is(err, session.ErrNoStreams) {
				logger.Warnw("skipping session with no usable streams", "session", name)
				continue
			}
			errs = multierr.Combine(errs, errors.Wrapf(err, "loading session %s", name))
			continue
		}

		sy, err := NewSynchronizer(s, cfg, logger)
		if err != nil {
			// config problems will fail every session identically
			return replayed, multierr.Combine(errs, err)
		}
		sink, err := newSink(s)
		if err != nil {
			errs = multierr.Combine(errs, errors.Wrapf(err, "building sink for session %s", name))
			continue
		}

		if err := sy.Run(ctx, sink); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return replayed, multierr.Combine(errs, err)
			}
			errs = multierr.Combine(errs, errors.Wrapf(err, "session %s", name))
			continue
		}
		replayed++
	}
	return replayed, errs
}
