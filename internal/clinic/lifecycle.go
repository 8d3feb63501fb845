package clinic

import (
	"fmt"
	"strings"
	"time"
)

// State transitions:
//
//	PENDING → CONFIRMED → ATTENDED
//	PENDING → CANCELLED
//	CONFIRMED → CANCELLED
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusAttended},
	StatusCancelled: {},
	StatusAttended:  {},
}

func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseStatus accepts any casing and surrounding whitespace.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

func NewAppointment(id, patientID, doctorID string, at time.Time, reason string, now time.Time) Appointment {
	return Appointment{
		ID:        id,
		PatientID: patientID,
		DoctorID:  doctorID,
		Time:      normalize(at),
		Reason:    reason,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ChangeStatus moves a to the given status if the lifecycle allows it.
// On error a is left untouched.
func ChangeStatus(a *Appointment, to Status, now time.Time) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(to))
	}
	if !a.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.Status, to)
	}
	a.Status = to
	a.UpdatedAt = now
	return nil
}

func SetNote(a *Appointment, text string, now time.Time) {
	a.Note = text
	a.UpdatedAt = now
}
