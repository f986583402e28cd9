package ledger

import (
	"time"

	"github.com/filecoin-project/go-clock"
	"go.uber.org/zap"
)

type options struct {
	clock  clock.Clock
	logger *zap.SugaredLogger
}

// Option configures a Store.
type Option func(*options)

// WithClock sets the clock used for record bookkeeping timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the store logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{clock: clock.New(), logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) now() time.Time { return o.clock.Now().UTC() }
