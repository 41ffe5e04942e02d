package service

import (
	"context"
	"log"
	"time"

	"github.com/lensapp/lens/internal/state"
)

// Sender delivers updates to the state actor. *state.Store implements it.
type Sender interface {
	Send(ctx context.Context, u state.Update) error
}

// Loop calls tick, then waits for interval before calling it again, until ctx
// is cancelled. A receive on wake cuts the wait short; pass nil to disable.
//
// The wait starts after tick returns, so a slow tick delays the next one and
// missed ticks are never replayed. Tick errors are logged and the loop keeps
// going.
func Loop(ctx context.Context, name string, logger *log.Logger, interval time.Duration, wake <-chan struct{}, tick func(context.Context) error) {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		if err := tick(ctx); err != nil && ctx.Err() == nil {
			logger.Printf("%s: tick failed: %v", name, err)
		}

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-wake:
			timer.Stop()
		}
	}
}
