package api

import (
	"time"

	"github.com/hackgods/clinic-turnos/internal/clinic"
)

type CreatePatientRequest struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

type PatientResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Age      int    `json:"age"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

type CreateDoctorRequest struct {
	ID        string      `json:"id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Specialty string      `json:"specialty"`
	Phone     string      `json:"phone"`
	Slots     []time.Time `json:"slots"`
}

type DoctorResponse struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Specialty string `json:"specialty"`
	Phone     string `json:"phone,omitempty"`
}

type AddSlotRequest struct {
	Time time.Time `json:"time"`
}

type SlotsResponse struct {
	DoctorID string      `json:"doctor_id"`
	Free     []time.Time `json:"free"`
}

type CreateAppointmentRequest struct {
	PatientID string    `json:"patient_id"`
	DoctorID  string    `json:"doctor_id"`
	Time      time.Time `json:"time"`
	Reason    string    `json:"reason"`
}

type ChangeStatusRequest struct {
	Status string  `json:"status"`
	Note   *string `json:"note,omitempty"`
}

type SetNoteRequest struct {
	Note string `json:"note"`
}

type AppointmentResponse struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	DoctorID  string    `json:"doctor_id"`
	Time      time.Time `json:"time"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StatsResponse struct {
	Patients     int            `json:"patients"`
	Doctors      int            `json:"doctors"`
	Appointments int            `json:"appointments"`
	ByStatus     map[string]int `json:"by_status"`
	ByDoctor     map[string]int `json:"by_doctor"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a clinic.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		Time:      a.Time,
		Reason:    a.Reason,
		Status:    string(a.Status),
		Note:      a.Note,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toAppointmentResponses(appts []clinic.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, len(appts))
	for i, a := range appts {
		out[i] = toAppointmentResponse(a)
	}
	return out
}

func toPatientResponse(p clinic.Patient) PatientResponse {
	return PatientResponse{
		ID:       p.ID,
		FullName: p.FullName(),
		Age:      p.Age,
		Phone:    p.Phone,
		Email:    p.Email,
	}
}

func toDoctorResponse(d clinic.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:        d.ID,
		FullName:  d.FullName(),
		Specialty: d.Specialty,
		Phone:     d.Phone,
	}
}
