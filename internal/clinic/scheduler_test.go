package clinic

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/hackgods/clinic-turnos/internal/redis"
)

func TestBookCancelRebookScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t)

	first, err := s.BookAppointment(ctx, "P1", "D001", nine, "checkup")
	require.NoError(t, err)
	assert.Equal(t, "T0001", first.ID)
	assert.Equal(t, StatusPending, first.Status)
	assert.False(t, available(t, s, "D001", nine))

	_, err = s.BookAppointment(ctx, "P2", "D001", nine, "fever")
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	cancelled, err := s.CancelAppointment(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.True(t, available(t, s, "D001", nine))

	second, err := s.BookAppointment(ctx, "P2", "D001", nine, "fever")
	require.NoError(t, err)
	assert.Equal(t, "T0002", second.ID)
	assert.Equal(t, StatusPending, second.Status)
}

func TestListHistoryKeepsBookingOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t)

	late, err := s.BookAppointment(ctx, "P1", "D001", eleven, "follow up")
	require.NoError(t, err)
	early, err := s.BookAppointment(ctx, "P1", "D001", nine, "checkup")
	require.NoError(t, err)

	history, err := s.ListHistory(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, late.ID, history[0].ID)
	assert.Equal(t, early.ID, history[1].ID)

	empty, err := s.ListHistory(ctx, "P2")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.ListHistory(ctx, "P404")
	assert.ErrorIs(t, err, ErrUnknownPatient)
}

func TestFailedBookingHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t)

	_, err := s.BookAppointment(ctx, "P404", "D001", nine, "checkup")
	assert.ErrorIs(t, err, ErrUnknownPatient)

	_, err = s.BookAppointment(ctx, "P1", "D404", nine, "checkup")
	assert.ErrorIs(t, err, ErrUnknownDoctor)

	_, err = s.BookAppointment(ctx, "P1", "D001", day.Add(10*time.Hour), "no such slot")
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	assert.True(t, available(t, s, "D001", nine))
	history, err := s.ListHistory(ctx, "P1")
	require.NoError(t, err)
	assert.Empty(t, history)

	all, err := s.ListAppointments(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	// no identifier was spent on the failures
	appt, err := s.BookAppointment(ctx, "P1", "D001", nine, "checkup")
	require.NoError(t, err)
	assert.Equal(t, "T0001", appt.ID)
}

func TestCancelTwiceReleasesOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t)

	appt, err := s.BookAppointment(ctx, "P1", "D001", nine, "checkup")
	require.NoError(t, err)

	_, err = s.CancelAppointment(ctx, appt.ID)
	require.NoError(t, err)

	// someone else takes the freed slot
	other, err := s.BookAppointment(ctx, "P2", "D001", nine, "fever")
	require.NoError(t, err)

	_, err = s.CancelAppointment(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	// the second cancel must not have freed the other patient's slot
	assert.False(t, available(t, s, "D001", nine))
	got, err := s.GetAppointment(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestCancelUnknownAppointment(t *testing.T) {
	s := newTestScheduler(t)

	_, err := s.CancelAppointment(context.Background(), "T9999")
	assert.ErrorIs(t, err, ErrUnknownAppointment)
}

func TestChangeStatusThroughLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t)

	appt, err := s.BookAppointment(ctx, "P1", "D001", nine, "checkup")
	require.NoError(t, err)

	_, err = s.ChangeStatus(ctx, appt.ID, "attended")
	assert.ErrorIs(t, err, ErrIllegalTransition)

	updated, err := s.ChangeStatus(ctx, appt.ID, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)

	updated, err = s.ChangeStatus(ctx, appt.ID, "ATTENDED")
	require.NoError(t, err)
	assert.Equal(t, StatusAttended, updated.Status)

	// attended keeps the slot: the visit happened
	assert.False(t, available(t, s, "D001", nine))

	for _, status := range Statuses {
		_, err := s.ChangeStatus(ctx, appt.ID, string(status))
		assert.ErrorIs(t, err, ErrIllegalTransition, "from ATTENDED to %s", status)
	}
}

func TestChangeStatusErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t)

	_, err := s.ChangeStatus(ctx, "T9999", "bogus")
	assert.ErrorIs(t, err, ErrUnknownAppointment)

	appt, err := s.BookAppointment(ctx, "P1", "D001", nine, "checkup")
	require.NoError(t, err)

	_, err = s.ChangeStatus(ctx, appt.ID, "NO_SHOW")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	got, err := s.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestChangeStatusToCancelledReleasesSlot(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t)

	appt, err := s.BookAppointment(ctx, "P1", "D001", nine, "checkup")
	require.NoError(t, err)
	_, err = s.ChangeStatus(ctx, appt.ID, "CONFIRMED")
	require.NoError(t, err)

	_, err = s.ChangeStatus(ctx, appt.ID, "cancelled")
	require.NoError(t, err)
	assert.True(t, available(t, s, "D001", nine))
}

func TestSetNote(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t)

	_, err := s.SetNote(ctx, "T0001", "x")
	assert.ErrorIs(t, err, ErrUnknownAppointment)

	appt, err := s.BookAppointment(ctx, "P1", "D001", nine, "checkup")
	require.NoError(t, err)
	_, err = s.CancelAppointment(ctx, appt.ID)
	require.NoError(t, err)

	updated, err := s.SetNote(ctx, appt.ID, "patient called to cancel")
	require.NoError(t, err)
	assert.Equal(t, "patient called to cancel", updated.Note)
	assert.Equal(t, StatusCancelled, updated.Status)
}

func TestReturnedAppointmentsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t)

	appt, err := s.BookAppointment(ctx, "P1", "D001", nine, "checkup")
	require.NoError(t, err)
	appt.Status = StatusAttended

	history, err := s.ListHistory(ctx, "P1")
	require.NoError(t, err)
	history[0].Note = "tampered"

	got, err := s.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Empty(t, got.Note)
}

func TestListAppointmentsFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t)
	require.NoError(t, s.AddDoctor(ctx, Doctor{ID: "D002", FirstName: "Ana", LastName: "García", Slots: []time.Time{nine}}))

	a, err := s.BookAppointment(ctx, "P1", "D001", nine, "checkup")
	require.NoError(t, err)
	b, err := s.BookAppointment(ctx, "P2", "D002", nine, "fever")
	require.NoError(t, err)
	_, err = s.ChangeStatus(ctx, b.ID, "CONFIRMED")
	require.NoError(t, err)

	pending, err := s.ListAppointments(ctx, Filter{Status: StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].ID)

	byDoctor, err := s.ListByDoctor(ctx, "D002")
	require.NoError(t, err)
	require.Len(t, byDoctor, 1)
	assert.Equal(t, b.ID, byDoctor[0].ID)

	_, err = s.ListByDoctor(ctx, "D404")
	assert.ErrorIs(t, err, ErrUnknownDoctor)

	_, err = s.ListAppointments(ctx, Filter{Status: "LATE"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAddDoctorAndSlot(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t)

	assert.ErrorIs(t, s.AddDoctor(ctx, Doctor{ID: "D001"}), ErrDoctorExists)
	assert.ErrorIs(t, s.AddPatient(ctx, Patient{ID: "P1"}), ErrPatientExists)
	assert.ErrorIs(t, s.AddSlot(ctx, "D404", nine), ErrUnknownDoctor)

	thirteen := day.Add(13 * time.Hour)
	require.NoError(t, s.AddSlot(ctx, "D001", thirteen))
	free, err := s.FreeSlots(ctx, "D001")
	require.NoError(t, err)
	require.Len(t, free, 3)
	assert.True(t, free[2].Equal(thirteen))

	_, err = s.BookAppointment(ctx, "P1", "D001", thirteen, "late visit")
	require.NoError(t, err)
	free, err = s.FreeSlots(ctx, "D001")
	require.NoError(t, err)
	assert.Len(t, free, 2)
}

func TestConcurrentBookingSameSlot(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t)

	const n = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		patient := "P1"
		if i%2 == 1 {
			patient = "P2"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := s.BookAppointment(ctx, patient, "D001", nine, "race"); err != nil {
				errs <- err
				return
			}
			wins.Add(1)
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	assert.Equal(t, int32(1), wins.Load())
	for err := range errs {
		assert.ErrorIs(t, err, ErrSlotUnavailable)
	}

	all, err := s.ListAppointments(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConcurrentBookAndCancelNeverDoubleBooks(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 200; i++ {
				at := nine
				if rng.Intn(2) == 0 {
					at = eleven
				}
				appt, err := s.BookAppointment(ctx, "P1", "D001", at, "load")
				if err != nil {
					continue
				}
				if rng.Intn(3) > 0 {
					_, _ = s.CancelAppointment(ctx, appt.ID)
				}
			}
		}(int64(w))
	}
	wg.Wait()

	all, err := s.ListAppointments(ctx, Filter{})
	require.NoError(t, err)

	active := map[int64]int{}
	for _, a := range all {
		assert.True(t, a.Status.IsValid())
		if a.Status != StatusCancelled {
			active[a.Time.UnixNano()]++
		}
	}
	for _, at := range []time.Time{nine, eleven} {
		n := active[at.UnixNano()]
		assert.LessOrEqual(t, n, 1)
		assert.Equal(t, n == 0, available(t, s, "D001", at))
	}
}

func TestEventsRecordedForEachChange(t *testing.T) {
	ctx := context.Background()
	sink := &memorySink{}
	s := newTestScheduler(t, WithEventSink(sink))

	appt, err := s.BookAppointment(ctx, "P1", "D001", nine, "checkup")
	require.NoError(t, err)
	_, err = s.ChangeStatus(ctx, appt.ID, "CONFIRMED")
	require.NoError(t, err)
	_, err = s.SetNote(ctx, appt.ID, "bring results")
	require.NoError(t, err)
	_, err = s.CancelAppointment(ctx, appt.ID)
	require.NoError(t, err)
	_, err = s.CancelAppointment(ctx, appt.ID)
	require.Error(t, err)

	assert.Equal(t, []string{
		EventAppointmentBooked,
		EventAppointmentStatusChanged,
		EventAppointmentNoteSet,
		EventAppointmentCancelled,
	}, sink.types())
	assert.Equal(t, appt.ID, sink.events[0].AppointmentID)
	assert.Equal(t, "D001", sink.events[0].Payload["doctor_id"])
}

func TestEventSinkFailureDoesNotUndoBooking(t *testing.T) {
	ctx := context.Background()
	sink := &memorySink{err: errors.New("db down")}
	s := newTestScheduler(t, WithEventSink(sink))

	appt, err := s.BookAppointment(ctx, "P1", "D001", nine, "checkup")
	require.NoError(t, err)
	assert.False(t, available(t, s, "D001", nine))

	got, err := s.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

type contendedLocker struct{}

func (contendedLocker) WithSlotLock(context.Context, string, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

type swappableLocker struct {
	inner Locker
}

func (l *swappableLocker) WithSlotLock(ctx context.Context, key string, fn func(context.Context) error) error {
	return l.inner.WithSlotLock(ctx, key, fn)
}

func TestLockContentionMapping(t *testing.T) {
	ctx := context.Background()
	locker := &swappableLocker{inner: NewLocalLocker()}
	s := newTestScheduler(t, WithLocker(locker))

	appt, err := s.BookAppointment(ctx, "P1", "D001", nine, "checkup")
	require.NoError(t, err)

	locker.inner = contendedLocker{}

	_, err = s.BookAppointment(ctx, "P2", "D001", eleven, "fever")
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.True(t, available(t, s, "D001", eleven))

	_, err = s.CancelAppointment(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrSlotBusy)

	got, err := s.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.False(t, available(t, s, "D001", nine))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t)

	a, err := s.BookAppointment(ctx, "P1", "D001", nine, "checkup")
	require.NoError(t, err)
	_, err = s.BookAppointment(ctx, "P2", "D001", eleven, "fever")
	require.NoError(t, err)
	_, err = s.CancelAppointment(ctx, a.ID)
	require.NoError(t, err)

	st := s.Stats(ctx)
	assert.Equal(t, 2, st.Patients)
	assert.Equal(t, 1, st.Doctors)
	assert.Equal(t, 2, st.Appointments)
	assert.Equal(t, map[Status]int{
		StatusPending:   1,
		StatusConfirmed: 0,
		StatusCancelled: 1,
		StatusAttended:  0,
	}, st.ByStatus)
	assert.Equal(t, map[string]int{"D001": 2}, st.ByDoctor)
}
