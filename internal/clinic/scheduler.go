package clinic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	redisclient "github.com/hackgods/clinic-turnos/internal/redis"
)

// Scheduler is the single entry point for booking and changing appointments.
// It owns the slot ledger and the appointment records; patients and doctors
// come from the Directory.
type Scheduler struct {
	dir     Directory
	catalog Catalog
	ledger  *Ledger
	ids     *Registry
	locker  Locker
	events  EventSink
	log     zerolog.Logger
	now     func() time.Time

	mu           sync.RWMutex
	appointments map[string]*Appointment
	order        []string
	history      map[string][]string
}

type Option func(*Scheduler)

func WithLocker(l Locker) Option {
	return func(s *Scheduler) { s.locker = l }
}

func WithEventSink(sink EventSink) Option {
	return func(s *Scheduler) { s.events = sink }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithSharedState keeps booked flags and the appointment counter outside the
// process so replicas sharing them never double book a slot or reuse an id.
func WithSharedState(flags SlotFlags, counter Counter) Option {
	return func(s *Scheduler) {
		s.ledger = NewSharedLedger(flags)
		s.ids = NewSharedRegistry(counter)
	}
}

// WithCatalog writes patients, doctors and slots added at runtime to c
// before they reach the directory.
func WithCatalog(c Catalog) Option {
	return func(s *Scheduler) { s.catalog = c }
}

// NewScheduler builds a scheduler whose ledger starts with every slot
// currently listed on the directory's doctors.
func NewScheduler(dir Directory, opts ...Option) *Scheduler {
	s := &Scheduler{
		dir:          dir,
		ledger:       NewLedger(),
		ids:          &Registry{},
		locker:       NewLocalLocker(),
		log:          zerolog.Nop(),
		now:          time.Now,
		appointments: make(map[string]*Appointment),
		history:      make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, d := range dir.Doctors() {
		s.ledger.AddDoctor(d.ID)
		for _, at := range d.Slots {
			s.ledger.AddSlot(d.ID, at)
		}
	}

	return s
}

// BookAppointment reserves the doctor's slot and records a PENDING appointment
// in the patient's history. When the slot cannot be reserved nothing is recorded.
func (s *Scheduler) BookAppointment(ctx context.Context, patientID, doctorID string, at time.Time, reason string) (Appointment, error) {
	if _, err := s.dir.FindPatient(patientID); err != nil {
		return Appointment{}, err
	}
	if _, err := s.dir.FindDoctor(doctorID); err != nil {
		return Appointment{}, err
	}

	at = normalize(at)
	var booked Appointment

	err := s.locker.WithSlotLock(ctx, slotName(doctorID, at), func(ctx context.Context) error {
		if err := s.ledger.Reserve(ctx, doctorID, at); err != nil {
			return err
		}

		id, err := s.ids.NextAppointmentID(ctx)
		if err != nil {
			return errors.Join(err, s.ledger.Release(ctx, doctorID, at))
		}

		appt := NewAppointment(id, patientID, doctorID, at, reason, s.now())

		s.mu.Lock()
		s.appointments[appt.ID] = &appt
		s.order = append(s.order, appt.ID)
		s.history[patientID] = append(s.history[patientID], appt.ID)
		s.mu.Unlock()

		booked = appt
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotUnavailable), errors.Is(err, ErrUnknownDoctor):
			return Appointment{}, err
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			return Appointment{}, fmt.Errorf("%w: %w", ErrSlotUnavailable, err)
		default:
			return Appointment{}, fmt.Errorf("book appointment: %w", err)
		}
	}

	s.log.Info().
		Str("appointment_id", booked.ID).
		Str("patient_id", patientID).
		Str("doctor_id", doctorID).
		Time("time", at).
		Msg("appointment booked")

	s.recordEvent(ctx, EventAppointmentBooked, booked.ID, map[string]any{
		"patient_id": patientID,
		"doctor_id":  doctorID,
		"time":       at,
		"reason":     reason,
	})

	return booked, nil
}

// CancelAppointment cancels the appointment and frees its slot.
// Cancelling a terminal appointment fails with ErrIllegalTransition and frees nothing.
func (s *Scheduler) CancelAppointment(ctx context.Context, id string) (Appointment, error) {
	return s.transition(ctx, id, StatusCancelled, nil)
}

// ChangeStatus applies a status given in any casing. A change to CANCELLED
// releases the slot exactly like CancelAppointment.
func (s *Scheduler) ChangeStatus(ctx context.Context, id, status string) (Appointment, error) {
	return s.changeStatus(ctx, id, status, nil)
}

// ChangeStatusWithNote applies the status and replaces the note in one step.
// Readers see either neither change or both.
func (s *Scheduler) ChangeStatusWithNote(ctx context.Context, id, status, note string) (Appointment, error) {
	return s.changeStatus(ctx, id, status, &note)
}

func (s *Scheduler) changeStatus(ctx context.Context, id, status string, note *string) (Appointment, error) {
	if _, err := s.GetAppointment(ctx, id); err != nil {
		return Appointment{}, err
	}
	to, err := ParseStatus(status)
	if err != nil {
		return Appointment{}, err
	}
	return s.transition(ctx, id, to, note)
}

// transition runs under the slot lock. Only transitions change Status and they
// all hold that lock, so the check on a copy stays valid until the commit.
func (s *Scheduler) transition(ctx context.Context, id string, to Status, note *string) (Appointment, error) {
	s.mu.RLock()
	appt, ok := s.appointments[id]
	s.mu.RUnlock()
	if !ok {
		return Appointment{}, ErrUnknownAppointment
	}

	// DoctorID and Time never change after booking.
	doctorID, at := appt.DoctorID, appt.Time

	var (
		from    Status
		updated Appointment
	)
	err := s.locker.WithSlotLock(ctx, slotName(doctorID, at), func(ctx context.Context) error {
		now := s.now()

		s.mu.RLock()
		next := *appt
		s.mu.RUnlock()
		from = next.Status
		if err := ChangeStatus(&next, to, now); err != nil {
			return err
		}

		if to == StatusCancelled {
			if err := s.ledger.Release(ctx, doctorID, at); err != nil {
				return err
			}
		}

		s.mu.Lock()
		appt.Status = next.Status
		appt.UpdatedAt = next.UpdatedAt
		if note != nil {
			SetNote(appt, *note, now)
		}
		updated = *appt
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrInvalidStatus):
			return Appointment{}, err
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			return Appointment{}, fmt.Errorf("%w: %w", ErrSlotBusy, err)
		default:
			return Appointment{}, fmt.Errorf("change appointment status: %w", err)
		}
	}

	s.log.Info().
		Str("appointment_id", id).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("appointment status changed")

	eventType := EventAppointmentStatusChanged
	if to == StatusCancelled {
		eventType = EventAppointmentCancelled
	}
	payload := map[string]any{
		"from": string(from),
		"to":   string(to),
	}
	if note != nil {
		payload["note"] = *note
	}
	s.recordEvent(ctx, eventType, id, payload)

	return updated, nil
}

// SetNote replaces the appointment's free-text note regardless of its status.
func (s *Scheduler) SetNote(ctx context.Context, id, text string) (Appointment, error) {
	s.mu.Lock()
	appt, ok := s.appointments[id]
	if !ok {
		s.mu.Unlock()
		return Appointment{}, ErrUnknownAppointment
	}
	SetNote(appt, text, s.now())
	updated := *appt
	s.mu.Unlock()

	s.recordEvent(ctx, EventAppointmentNoteSet, id, map[string]any{"note": text})
	return updated, nil
}

func (s *Scheduler) GetAppointment(_ context.Context, id string) (Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.appointments[id]
	if !ok {
		return Appointment{}, ErrUnknownAppointment
	}
	return *appt, nil
}

// ListHistory returns the patient's appointments in the order they were booked.
func (s *Scheduler) ListHistory(_ context.Context, patientID string) ([]Appointment, error) {
	if _, err := s.dir.FindPatient(patientID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.history[patientID]
	out := make([]Appointment, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.appointments[id])
	}
	return out, nil
}

// Filter narrows ListAppointments. Zero fields match everything.
type Filter struct {
	Status   Status
	DoctorID string
}

func (f Filter) matches(a *Appointment) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.DoctorID != "" && a.DoctorID != f.DoctorID {
		return false
	}
	return true
}

// ListAppointments returns matching appointments in booking order.
func (s *Scheduler) ListAppointments(_ context.Context, f Filter) ([]Appointment, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, string(f.Status))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Appointment, 0)
	for _, id := range s.order {
		if a := s.appointments[id]; f.matches(a) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *Scheduler) ListByDoctor(ctx context.Context, doctorID string) ([]Appointment, error) {
	if _, err := s.dir.FindDoctor(doctorID); err != nil {
		return nil, err
	}
	return s.ListAppointments(ctx, Filter{DoctorID: doctorID})
}

func (s *Scheduler) IsAvailable(ctx context.Context, doctorID string, at time.Time) (bool, error) {
	return s.ledger.IsAvailable(ctx, doctorID, at)
}

func (s *Scheduler) FreeSlots(ctx context.Context, doctorID string) ([]time.Time, error) {
	if _, err := s.dir.FindDoctor(doctorID); err != nil {
		return nil, err
	}
	return s.ledger.FreeSlots(ctx, doctorID)
}

func (s *Scheduler) AddPatient(ctx context.Context, p Patient) error {
	if _, err := s.dir.FindPatient(p.ID); err == nil {
		return ErrPatientExists
	}
	if s.catalog != nil {
		if err := s.catalog.SavePatient(ctx, p); err != nil {
			return err
		}
	}
	return s.dir.AddPatient(p)
}

// AddDoctor registers the doctor and offers all of its slots.
func (s *Scheduler) AddDoctor(ctx context.Context, d Doctor) error {
	if _, err := s.dir.FindDoctor(d.ID); err == nil {
		return ErrDoctorExists
	}
	if s.catalog != nil {
		if err := s.catalog.SaveDoctor(ctx, d); err != nil {
			return err
		}
	}
	if err := s.dir.AddDoctor(d); err != nil {
		return err
	}
	s.ledger.AddDoctor(d.ID)
	for _, at := range d.Slots {
		s.ledger.AddSlot(d.ID, at)
	}
	return nil
}

// AddSlot offers one more bookable time for a known doctor.
func (s *Scheduler) AddSlot(ctx context.Context, doctorID string, at time.Time) error {
	if _, err := s.dir.FindDoctor(doctorID); err != nil {
		return err
	}
	if s.catalog != nil {
		if err := s.catalog.SaveSlot(ctx, doctorID, at); err != nil {
			return err
		}
	}
	s.ledger.AddSlot(doctorID, at)
	return nil
}

func (s *Scheduler) Patients() []Patient {
	return s.dir.Patients()
}

func (s *Scheduler) Doctors() []Doctor {
	return s.dir.Doctors()
}

func (s *Scheduler) recordEvent(ctx context.Context, eventType, appointmentID string, payload map[string]any) {
	if s.events == nil {
		return
	}

	ev := Event{
		Type:          eventType,
		AppointmentID: appointmentID,
		Payload:       payload,
		CreatedAt:     s.now(),
	}
	if err := s.events.RecordEvent(ctx, ev); err != nil {
		s.log.Warn().
			Err(err).
			Str("event", eventType).
			Str("appointment_id", appointmentID).
			Msg("failed to record event")
	}
}
