package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-turnos/internal/clinic"
)

func createPatientHandler(svc *clinic.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if strings.TrimSpace(req.ID) == "" {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id is required")
			return
		}
		if req.Age < 0 {
			writeError(w, http.StatusBadRequest, "invalid_age", "age must be a non-negative number")
			return
		}

		p := clinic.Patient{
			ID:        req.ID,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Age:       req.Age,
			Phone:     req.Phone,
			Email:     req.Email,
		}
		if err := svc.AddPatient(r.Context(), p); err != nil {
			handleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toPatientResponse(p))
	}
}

func listPatientsHandler(svc *clinic.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patients := svc.Patients()
		resp := make([]PatientResponse, len(patients))
		for i, p := range patients {
			resp[i] = toPatientResponse(p)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func patientHistoryHandler(svc *clinic.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := svc.ListHistory(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(history))
	}
}

func createDoctorHandler(svc *clinic.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDoctorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if strings.TrimSpace(req.ID) == "" {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id is required")
			return
		}

		d := clinic.Doctor{
			ID:        req.ID,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Specialty: req.Specialty,
			Phone:     req.Phone,
			Slots:     req.Slots,
		}
		if err := svc.AddDoctor(r.Context(), d); err != nil {
			handleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toDoctorResponse(d))
	}
}

func listDoctorsHandler(svc *clinic.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors := svc.Doctors()
		resp := make([]DoctorResponse, len(doctors))
		for i, d := range doctors {
			resp[i] = toDoctorResponse(d)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func freeSlotsHandler(svc *clinic.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID := chi.URLParam(r, "id")
		free, err := svc.FreeSlots(r.Context(), doctorID)
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SlotsResponse{DoctorID: doctorID, Free: free})
	}
}

func addSlotHandler(svc *clinic.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Time.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid_time", "time must be an RFC3339 timestamp")
			return
		}

		doctorID := chi.URLParam(r, "id")
		if err := svc.AddSlot(r.Context(), doctorID, req.Time); err != nil {
			handleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func doctorAppointmentsHandler(svc *clinic.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.ListByDoctor(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func createAppointmentHandler(svc *clinic.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.PatientID == "" || req.DoctorID == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "patient_id and doctor_id are required")
			return
		}
		if req.Time.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid_time", "time must be an RFC3339 timestamp")
			return
		}

		appt, err := svc.BookAppointment(r.Context(), req.PatientID, req.DoctorID, req.Time, req.Reason)
		if err != nil {
			handleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *clinic.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f clinic.Filter
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := clinic.ParseStatus(raw)
			if err != nil {
				handleError(w, err)
				return
			}
			f.Status = status
		}
		f.DoctorID = r.URL.Query().Get("doctor_id")

		appts, err := svc.ListAppointments(r.Context(), f)
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func getAppointmentHandler(svc *clinic.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.GetAppointment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *clinic.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.CancelAppointment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// changeStatusHandler also stores the note when one is sent, the way the front
// desk records observations on ATTENDED.
func changeStatusHandler(svc *clinic.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChangeStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		id := chi.URLParam(r, "id")
		var (
			appt clinic.Appointment
			err  error
		)
		if req.Note != nil {
			appt, err = svc.ChangeStatusWithNote(r.Context(), id, req.Status, *req.Note)
		} else {
			appt, err = svc.ChangeStatus(r.Context(), id, req.Status)
		}
		if err != nil {
			handleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func setNoteHandler(svc *clinic.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetNoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.SetNote(r.Context(), chi.URLParam(r, "id"), req.Note)
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func statsHandler(svc *clinic.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := svc.Stats(r.Context())

		byStatus := make(map[string]int, len(st.ByStatus))
		for status, n := range st.ByStatus {
			byStatus[string(status)] = n
		}

		writeJSON(w, http.StatusOK, StatsResponse{
			Patients:     st.Patients,
			Doctors:      st.Doctors,
			Appointments: st.Appointments,
			ByStatus:     byStatus,
			ByDoctor:     st.ByDoctor,
		})
	}
}

func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinic.ErrUnknownPatient):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, clinic.ErrUnknownDoctor):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, clinic.ErrUnknownAppointment):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, clinic.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, clinic.ErrSlotBusy):
		writeError(w, http.StatusConflict, "slot_busy", "slot is currently being modified, please retry shortly")
	case errors.Is(err, clinic.ErrIllegalTransition):
		writeError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, clinic.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, clinic.ErrPatientExists):
		writeError(w, http.StatusConflict, "patient_exists", err.Error())
	case errors.Is(err, clinic.ErrDoctorExists):
		writeError(w, http.StatusConflict, "doctor_exists", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
