package clinic

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// SlotFlags keeps booked flags outside the process so every replica sees the
// same bookings. Claim must be an atomic set-if-absent.
type SlotFlags interface {
	Claim(ctx context.Context, key string) (bool, error)
	Free(ctx context.Context, key string) error
	Claimed(ctx context.Context, keys []string) ([]bool, error)
}

// Ledger tracks which slots of each doctor are free. Reservations on one doctor
// never wait on another doctor's lock.
//
// Without shared flags the booked state lives in the ledger itself. With shared
// flags the ledger only knows which slots exist and the flags decide the rest.
type Ledger struct {
	mu      sync.RWMutex
	doctors map[string]*doctorSlots
	shared  SlotFlags
}

type doctorSlots struct {
	mu     sync.Mutex
	booked map[time.Time]bool // false means free
}

func NewLedger() *Ledger {
	return &Ledger{doctors: make(map[string]*doctorSlots)}
}

// NewSharedLedger returns a ledger whose booked flags live in flags.
func NewSharedLedger(flags SlotFlags) *Ledger {
	l := NewLedger()
	l.shared = flags
	return l
}

func normalize(t time.Time) time.Time {
	return t.Round(0)
}

// slotKey identifies a slot by instant. UTC with the monotonic reading
// stripped makes equal instants equal map keys for any year.
func slotKey(t time.Time) time.Time {
	return t.UTC().Round(0)
}

// slotName names a slot for shared flags and slot locks.
func slotName(doctorID string, at time.Time) string {
	return fmt.Sprintf("%s:%s", doctorID, slotKey(at).Format(time.RFC3339Nano))
}

func (l *Ledger) doctor(doctorID string) (*doctorSlots, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.doctors[doctorID]
	return d, ok
}

// AddDoctor registers a doctor with no slots. Existing doctors are left as they are.
func (l *Ledger) AddDoctor(doctorID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.doctors[doctorID]; !ok {
		l.doctors[doctorID] = &doctorSlots{booked: make(map[time.Time]bool)}
	}
}

// AddSlot offers a new free slot. Re-adding a known slot keeps its booked flag.
func (l *Ledger) AddSlot(doctorID string, at time.Time) {
	l.AddDoctor(doctorID)
	d, _ := l.doctor(doctorID)

	d.mu.Lock()
	defer d.mu.Unlock()
	k := slotKey(at)
	if _, ok := d.booked[k]; !ok {
		d.booked[k] = false
	}
}

func (d *doctorSlots) has(k time.Time) (booked, exists bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	booked, exists = d.booked[k]
	return booked, exists
}

func (l *Ledger) IsAvailable(ctx context.Context, doctorID string, at time.Time) (bool, error) {
	d, ok := l.doctor(doctorID)
	if !ok {
		return false, nil
	}

	booked, exists := d.has(slotKey(at))
	if !exists {
		return false, nil
	}
	if l.shared == nil {
		return !booked, nil
	}

	claimed, err := l.shared.Claimed(ctx, []string{slotName(doctorID, at)})
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return !claimed[0], nil
}

// Reserve marks the slot booked if it exists and is free.
func (l *Ledger) Reserve(ctx context.Context, doctorID string, at time.Time) error {
	d, ok := l.doctor(doctorID)
	if !ok {
		return ErrUnknownDoctor
	}
	k := slotKey(at)

	if l.shared != nil {
		if _, exists := d.has(k); !exists {
			return ErrSlotUnavailable
		}
		claimed, err := l.shared.Claim(ctx, slotName(doctorID, at))
		if err != nil {
			return fmt.Errorf("reserve slot: %w", err)
		}
		if !claimed {
			return ErrSlotUnavailable
		}
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	booked, exists := d.booked[k]
	if !exists || booked {
		return ErrSlotUnavailable
	}
	d.booked[k] = true
	return nil
}

// Release frees a reserved slot. Releasing a free or unknown slot does nothing.
func (l *Ledger) Release(ctx context.Context, doctorID string, at time.Time) error {
	d, ok := l.doctor(doctorID)
	if !ok {
		return nil
	}
	k := slotKey(at)

	if l.shared != nil {
		if _, exists := d.has(k); !exists {
			return nil
		}
		if err := l.shared.Free(ctx, slotName(doctorID, at)); err != nil {
			return fmt.Errorf("release slot: %w", err)
		}
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.booked[k]; exists {
		d.booked[k] = false
	}
	return nil
}

// FreeSlots returns the doctor's free slots in time order, in UTC.
func (l *Ledger) FreeSlots(ctx context.Context, doctorID string) ([]time.Time, error) {
	d, ok := l.doctor(doctorID)
	if !ok {
		return nil, ErrUnknownDoctor
	}

	d.mu.Lock()
	slots := make([]time.Time, 0, len(d.booked))
	for at, booked := range d.booked {
		if l.shared != nil || !booked {
			slots = append(slots, at)
		}
	}
	d.mu.Unlock()

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })

	if l.shared == nil || len(slots) == 0 {
		return slots, nil
	}

	keys := make([]string, len(slots))
	for i, at := range slots {
		keys[i] = slotName(doctorID, at)
	}
	claimed, err := l.shared.Claimed(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("list free slots: %w", err)
	}

	free := slots[:0]
	for i, at := range slots {
		if !claimed[i] {
			free = append(free, at)
		}
	}
	return free, nil
}
