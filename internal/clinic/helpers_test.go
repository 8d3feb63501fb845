package clinic

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	day     = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	nine    = day.Add(9 * time.Hour)
	eleven  = day.Add(11 * time.Hour)
	fixedAt = day.Add(-24 * time.Hour)
)

type memorySink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (m *memorySink) RecordEvent(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *memorySink) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Type
	}
	return out
}

// newTestScheduler returns a clinic with doctor D001 (09:00 and 11:00) and patients P1, P2.
func newTestScheduler(t *testing.T, opts ...Option) *Scheduler {
	t.Helper()

	dir := NewMemoryDirectory()
	require.NoError(t, dir.AddDoctor(Doctor{ID: "D001", FirstName: "Carlos", LastName: "Mendoza", Specialty: "Cardiología", Slots: []time.Time{nine, eleven}}))
	require.NoError(t, dir.AddPatient(Patient{ID: "P1", FirstName: "María", LastName: "Pérez", Age: 35}))
	require.NoError(t, dir.AddPatient(Patient{ID: "P2", FirstName: "Juan", LastName: "López", Age: 42}))

	opts = append([]Option{WithClock(func() time.Time { return fixedAt })}, opts...)
	return NewScheduler(dir, opts...)
}

func available(t *testing.T, s *Scheduler, doctorID string, at time.Time) bool {
	t.Helper()
	ok, err := s.IsAvailable(context.Background(), doctorID, at)
	require.NoError(t, err)
	return ok
}
