package engine

import (
	"testing"
	"time"

	"sleipnir/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func TestNextPruneTime(t *testing.T) {
	loc := time.UTC

	// Before the cutoff: today at the cutoff hour.
	now := time.Date(2025, time.March, 10, 9, 30, 0, 0, loc)
	assert.Equal(t,
		time.Date(2025, time.March, 10, pruneHour, 0, 0, 0, loc),
		nextPruneTime(now))

	// At or after the cutoff: tomorrow.
	now = time.Date(2025, time.March, 10, pruneHour, 0, 1, 0, loc)
	assert.Equal(t,
		time.Date(2025, time.March, 11, pruneHour, 0, 0, 0, loc),
		nextPruneTime(now))

	// Month boundary rolls over cleanly.
	now = time.Date(2025, time.March, 31, 23, 0, 0, 0, loc)
	assert.Equal(t,
		time.Date(2025, time.April, 1, pruneHour, 0, 0, 0, loc),
		nextPruneTime(now))
}

func TestSweepGFD_CancelsOnlyGoodForDay(t *testing.T) {
	clock := fixedClock{now: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)}
	book := NewOrderbook(WithClock(clock))
	t.Cleanup(func() {
		assert.NoError(t, book.Close())
	})

	orders := []common.Order{
		{ID: 1, Type: common.GTC, Side: common.Buy, LimitPrice: 100, Remaining: 10},
		{ID: 2, Type: common.GFD, Side: common.Buy, LimitPrice: 99, Remaining: 10},
		{ID: 3, Type: common.GFD, Side: common.Sell, LimitPrice: 105, Remaining: 10},
		{ID: 4, Type: common.GTC, Side: common.Sell, LimitPrice: 106, Remaining: 10},
	}
	for _, o := range orders {
		_, err := book.Add(o)
		require.NoError(t, err)
	}

	book.sweepGFD()

	assert.True(t, book.Contains(1))
	assert.False(t, book.Contains(2))
	assert.False(t, book.Contains(3))
	assert.True(t, book.Contains(4))
	assert.Equal(t, 2, book.OrderCount())
}

func TestSweepGFD_EmptyBookNoOp(t *testing.T) {
	book := testBook(t)
	book.sweepGFD()
	assert.Equal(t, 0, book.OrderCount())
}

func TestClose_StopsPruner(t *testing.T) {
	book := NewOrderbook()

	done := make(chan error, 1)
	go func() {
		done <- book.Close()
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pruner did not stop")
	}
}
