package clinic

import "context"

const (
	EventAppointmentBooked        = "APPOINTMENT_BOOKED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	EventAppointmentCancelled     = "APPOINTMENT_CANCELLED"
	EventAppointmentNoteSet       = "APPOINTMENT_NOTE_SET"
)

// EventSink receives a record of every successful state change.
// Failures are logged by the scheduler and never undo the change.
type EventSink interface {
	RecordEvent(ctx context.Context, ev Event) error
}
