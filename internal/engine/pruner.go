package engine

import (
	"time"

	"sleipnir/internal/common"

	"github.com/rs/zerolog/log"
)

// Good-for-day orders are swept at this hour of day, local time.
const pruneHour = 16

// Clock supplies the wall-clock time the pruner schedules against.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// pruneGFD parks until the next daily cutoff, sweeps every resting
// good-for-day order, and goes back to waiting. A dying tomb wakes the
// wait immediately.
func (book *Orderbook) pruneGFD() error {
	for {
		now := book.clock.Now()
		timer := time.NewTimer(nextPruneTime(now).Sub(now))

		select {
		case <-book.t.Dying():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		book.sweepGFD()
	}
}

// sweepGFD collects resting good-for-day identities under the lock,
// releases it, then cancels them as a batch. Orders added between the
// collect and the cancel are left for the next sweep; cancellation
// itself is idempotent, so concurrent removals are harmless.
func (book *Orderbook) sweepGFD() {
	book.mu.Lock()
	var ids []common.OrderID
	for id, e := range book.orders {
		if e.order.Type == common.GFD {
			ids = append(ids, id)
		}
	}
	book.mu.Unlock()

	if len(ids) == 0 {
		return
	}

	book.CancelBatch(ids...)
	log.Info().Int("orders", len(ids)).Msg("pruned good-for-day orders")
}

// nextPruneTime is today's cutoff if it is still ahead, else
// tomorrow's. The cutoff is a fixed hour, minute and second zero.
func nextPruneTime(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), pruneHour, 0, 0, 0, now.Location())
	if now.Hour() >= pruneHour {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
