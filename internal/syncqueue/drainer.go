package syncqueue

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/towerops/fieldtrack/internal/api"
)

// DrainerConfig configures the background drainer.
type DrainerConfig struct {
	// Interval is how often the drainer checks for pending operations.
	Interval time.Duration

	// InitialBackoff is the first retry delay after a failed drain.
	InitialBackoff time.Duration

	// MaxBackoff caps the retry delay.
	MaxBackoff time.Duration

	// Multiplier controls backoff growth.
	Multiplier float64

	// MaxTries bounds retries within one drain attempt; the queue stays
	// intact between attempts regardless.
	MaxTries uint
}

// DefaultDrainerConfig returns the default drain policy.
func DefaultDrainerConfig() DrainerConfig {
	return DrainerConfig{
		Interval:       30 * time.Second,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     60 * time.Second,
		Multiplier:     2.0,
		MaxTries:       5,
	}
}

// Drainer periodically drains the queue in the background, retrying failed
// batches with exponential backoff. A trigger channel lets callers request
// an immediate attempt, e.g. on reconnect.
type Drainer struct {
	queue *Queue
	cfg   DrainerConfig

	stopCh    chan struct{}
	doneCh    chan struct{}
	triggerCh chan struct{}
}

// NewDrainer creates a drainer for the queue.
func NewDrainer(queue *Queue, cfg DrainerConfig) *Drainer {
	if cfg.Interval <= 0 {
		cfg = DefaultDrainerConfig()
	}
	return &Drainer{
		queue:     queue,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		triggerCh: make(chan struct{}, 1), // Buffered so trigger doesn't block
	}
}

// Start begins the background drain loop.
func (d *Drainer) Start(ctx context.Context) {
	go d.loop(ctx)
}

// Trigger requests an immediate drain attempt.
func (d *Drainer) Trigger() {
	select {
	case d.triggerCh <- struct{}{}:
	default:
		// A trigger is already pending.
	}
}

// Stop makes a final drain attempt and stops the loop.
func (d *Drainer) Stop(ctx context.Context) {
	close(d.stopCh)
	select {
	case <-d.doneCh:
		log.Debug().Msg("sync drainer stopped")
	case <-ctx.Done():
		log.Warn().Msg("sync drainer stop timeout")
	}
}

func (d *Drainer) loop(ctx context.Context) {
	defer close(d.doneCh)

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	log.Debug().Dur("interval", d.cfg.Interval).Msg("sync drainer started")

	for {
		select {
		case <-ticker.C:
			d.tryDrain(ctx)

		case <-d.triggerCh:
			log.Debug().Msg("sync triggered, attempting immediate drain")
			d.tryDrain(ctx)

		case <-d.stopCh:
			d.tryDrain(ctx) // Final attempt
			return

		case <-ctx.Done():
			return
		}
	}
}

// DrainOnce drains the queue under the drainer's backoff policy, retrying
// transient failures up to MaxTries within this single call. The queue is
// never modified on failure.
func (d *Drainer) DrainOnce(ctx context.Context) (*api.SyncResult, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.cfg.InitialBackoff
	bo.MaxInterval = d.cfg.MaxBackoff
	bo.Multiplier = d.cfg.Multiplier

	return backoff.Retry(ctx, func() (*api.SyncResult, error) {
		res, err := d.queue.Drain(ctx)
		if err != nil && !api.IsRetryable(err) && api.KindOf(err) != "" {
			// Auth failures will not resolve by waiting; surface them.
			return nil, backoff.Permanent(err)
		}
		return res, err
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(d.cfg.MaxTries))
}

// tryDrain runs one backoff-retried drain for the background loop.
// Failures are logged and left for the next interval.
func (d *Drainer) tryDrain(ctx context.Context) {
	if d.queue.Count() == 0 {
		return
	}

	result, err := d.DrainOnce(ctx)
	if err != nil {
		log.Warn().Err(err).Int("pending", d.queue.Count()).Msg("background drain failed, will retry")
		return
	}

	if result.Processed > 0 {
		log.Info().Int("processed", result.Processed).Msg("background drain completed")
	}
}
