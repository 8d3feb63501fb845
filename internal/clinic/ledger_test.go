package clinic

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapFlags is an in-memory SlotFlags.
type mapFlags struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMapFlags() *mapFlags {
	return &mapFlags{keys: make(map[string]bool)}
}

func (f *mapFlags) Claim(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *mapFlags) Free(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

func (f *mapFlags) Claimed(_ context.Context, keys []string) ([]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(keys))
	for i, k := range keys {
		out[i] = f.keys[k]
	}
	return out, nil
}

func isFree(t *testing.T, l *Ledger, doctorID string, at time.Time) bool {
	t.Helper()
	ok, err := l.IsAvailable(context.Background(), doctorID, at)
	require.NoError(t, err)
	return ok
}

func TestLedgerReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	l.AddSlot("D001", nine)

	assert.True(t, isFree(t, l, "D001", nine))
	require.NoError(t, l.Reserve(ctx, "D001", nine))
	assert.False(t, isFree(t, l, "D001", nine))

	assert.ErrorIs(t, l.Reserve(ctx, "D001", nine), ErrSlotUnavailable)

	require.NoError(t, l.Release(ctx, "D001", nine))
	assert.True(t, isFree(t, l, "D001", nine))

	// releasing a free slot is a no-op
	require.NoError(t, l.Release(ctx, "D001", nine))
	assert.True(t, isFree(t, l, "D001", nine))
	require.NoError(t, l.Reserve(ctx, "D001", nine))
}

func TestLedgerUnknownDoctorAndSlot(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	l.AddSlot("D001", nine)

	assert.ErrorIs(t, l.Reserve(ctx, "D999", nine), ErrUnknownDoctor)
	assert.ErrorIs(t, l.Reserve(ctx, "D001", eleven), ErrSlotUnavailable)
	assert.False(t, isFree(t, l, "D999", nine))
	assert.False(t, isFree(t, l, "D001", eleven))

	require.NoError(t, l.Release(ctx, "D999", nine))
	require.NoError(t, l.Release(ctx, "D001", eleven))
	assert.False(t, isFree(t, l, "D001", eleven))

	_, err := l.FreeSlots(ctx, "D999")
	assert.ErrorIs(t, err, ErrUnknownDoctor)
}

func TestLedgerMatchesInstantAcrossZones(t *testing.T) {
	l := NewLedger()
	l.AddSlot("D001", nine)

	quito := time.FixedZone("ECT", -5*60*60)
	require.NoError(t, l.Reserve(context.Background(), "D001", nine.In(quito)))
	assert.False(t, isFree(t, l, "D001", nine))
}

func TestLedgerAddSlotKeepsBookedFlag(t *testing.T) {
	l := NewLedger()
	l.AddSlot("D001", nine)
	require.NoError(t, l.Reserve(context.Background(), "D001", nine))

	l.AddSlot("D001", nine)
	assert.False(t, isFree(t, l, "D001", nine))
}

func TestLedgerFreeSlotsSorted(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	l.AddSlot("D001", eleven)
	l.AddSlot("D001", nine)
	l.AddSlot("D001", day.Add(13*time.Hour))
	require.NoError(t, l.Reserve(ctx, "D001", eleven))

	free, err := l.FreeSlots(ctx, "D001")
	require.NoError(t, err)
	require.Len(t, free, 2)
	assert.True(t, free[0].Equal(nine))
	assert.True(t, free[1].Equal(day.Add(13*time.Hour)))

	l.AddDoctor("D002")
	free, err = l.FreeSlots(ctx, "D002")
	require.NoError(t, err)
	assert.Empty(t, free)
}

func TestLedgerSlotsFarFromToday(t *testing.T) {
	ctx := context.Background()
	far := time.Date(2300, time.January, 1, 9, 0, 0, 0, time.UTC)
	early := time.Date(1500, time.June, 1, 9, 0, 0, 0, time.UTC)

	l := NewLedger()
	l.AddSlot("D001", nine)
	l.AddSlot("D001", far)
	l.AddSlot("D001", early)

	free, err := l.FreeSlots(ctx, "D001")
	require.NoError(t, err)
	assert.Equal(t, []time.Time{early, nine, far}, free)

	require.NoError(t, l.Reserve(ctx, "D001", far))
	assert.False(t, isFree(t, l, "D001", far))
	assert.True(t, isFree(t, l, "D001", early))
	assert.True(t, isFree(t, l, "D001", nine))

	assert.NotEqual(t, slotName("D001", far), slotName("D001", early))
}

func TestSharedLedgersSeeEachOthersBookings(t *testing.T) {
	ctx := context.Background()
	flags := newMapFlags()

	a, b := NewSharedLedger(flags), NewSharedLedger(flags)
	for _, l := range []*Ledger{a, b} {
		l.AddSlot("D001", nine)
		l.AddSlot("D001", eleven)
	}

	require.NoError(t, a.Reserve(ctx, "D001", nine))
	assert.ErrorIs(t, b.Reserve(ctx, "D001", nine), ErrSlotUnavailable)
	assert.False(t, isFree(t, b, "D001", nine))

	free, err := b.FreeSlots(ctx, "D001")
	require.NoError(t, err)
	assert.Equal(t, []time.Time{eleven}, free)

	require.NoError(t, b.Release(ctx, "D001", nine))
	assert.True(t, isFree(t, a, "D001", nine))

	// a slot this replica does not offer is never claimed
	assert.ErrorIs(t, a.Reserve(ctx, "D001", day.Add(13*time.Hour)), ErrSlotUnavailable)
	assert.Empty(t, flags.keys)
}

func TestLedgerConcurrentReserveSingleWinner(t *testing.T) {
	for name, l := range map[string]*Ledger{"local": NewLedger(), "shared": NewSharedLedger(newMapFlags())} {
		t.Run(name, func(t *testing.T) {
			l.AddSlot("D001", nine)

			const n = 64
			var wins, losses atomic.Int32
			var wg sync.WaitGroup
			start := make(chan struct{})
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					if err := l.Reserve(context.Background(), "D001", nine); err != nil {
						assert.ErrorIs(t, err, ErrSlotUnavailable)
						losses.Add(1)
						return
					}
					wins.Add(1)
				}()
			}
			close(start)
			wg.Wait()

			assert.Equal(t, int32(1), wins.Load())
			assert.Equal(t, int32(n-1), losses.Load())
		})
	}
}
