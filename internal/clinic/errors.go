package clinic

import "errors"

var (
	ErrUnknownPatient     = errors.New("patient not found")
	ErrUnknownDoctor      = errors.New("doctor not found")
	ErrUnknownAppointment = errors.New("appointment not found")
	ErrSlotUnavailable    = errors.New("slot is not available")
	ErrInvalidStatus      = errors.New("invalid appointment status")
	ErrIllegalTransition  = errors.New("illegal status transition")

	ErrPatientExists = errors.New("patient already exists")
	ErrDoctorExists  = errors.New("doctor already exists")
	ErrSlotBusy      = errors.New("slot is currently being modified, please retry")
)
