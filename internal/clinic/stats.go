package clinic

import "context"

type Stats struct {
	Patients     int
	Doctors      int
	Appointments int
	ByStatus     map[Status]int
	ByDoctor     map[string]int
}

// Stats summarizes the clinic. Every status and every doctor appears, even with a zero count.
func (s *Scheduler) Stats(_ context.Context) Stats {
	doctors := s.dir.Doctors()
	st := Stats{
		Patients: len(s.dir.Patients()),
		Doctors:  len(doctors),
		ByStatus: make(map[Status]int, len(Statuses)),
		ByDoctor: make(map[string]int, len(doctors)),
	}
	for _, status := range Statuses {
		st.ByStatus[status] = 0
	}
	for _, d := range doctors {
		st.ByDoctor[d.ID] = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	st.Appointments = len(s.order)
	for _, a := range s.appointments {
		st.ByStatus[a.Status]++
		st.ByDoctor[a.DoctorID]++
	}
	return st
}
