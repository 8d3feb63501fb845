package clinic

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Counter is a shared sequence. Incr returns the next value, starting at 1.
type Counter interface {
	Incr(ctx context.Context) (int64, error)
}

// Registry issues appointment identifiers. The zero value counts in process;
// NewSharedRegistry draws numbers from a sequence shared by every replica.
type Registry struct {
	lastAppointment atomic.Uint64
	shared          Counter
}

func NewSharedRegistry(c Counter) *Registry {
	return &Registry{shared: c}
}

// NextAppointmentID returns T0001, T0002, ... Identifiers are never reused.
func (r *Registry) NextAppointmentID(ctx context.Context) (string, error) {
	if r.shared == nil {
		return fmt.Sprintf("T%04d", r.lastAppointment.Add(1)), nil
	}

	n, err := r.shared.Incr(ctx)
	if err != nil {
		return "", fmt.Errorf("next appointment id: %w", err)
	}
	return fmt.Sprintf("T%04d", n), nil
}
