package clinic

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusAttended  Status = "ATTENDED"
)

// Statuses lists every recognized status in lifecycle order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusAttended}

type Patient struct {
	ID        string
	FirstName string
	LastName  string
	Age       int
	Phone     string
	Email     string
}

func (p Patient) FullName() string {
	return fmt.Sprintf("%s %s", p.FirstName, p.LastName)
}

type Doctor struct {
	ID        string
	FirstName string
	LastName  string
	Specialty string
	Phone     string
	Slots     []time.Time
}

func (d Doctor) FullName() string {
	return fmt.Sprintf("Dr. %s %s", d.FirstName, d.LastName)
}

// Appointment is a booked turn between one patient and one doctor.
// PatientID and DoctorID are lookup keys into the Directory.
type Appointment struct {
	ID        string
	PatientID string
	DoctorID  string
	Time      time.Time
	Reason    string
	Status    Status
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Event struct {
	Type          string
	AppointmentID string
	Payload       map[string]any
	CreatedAt     time.Time
}
