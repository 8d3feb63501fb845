package clinic

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Directory is the patient/doctor lookup the scheduler depends on.
type Directory interface {
	FindPatient(id string) (Patient, error)
	FindDoctor(id string) (Doctor, error)
	AddPatient(p Patient) error
	AddDoctor(d Doctor) error
	Patients() []Patient
	Doctors() []Doctor
}

// Catalog stores directory records durably. Duplicates are reported as
// ErrPatientExists or ErrDoctorExists; saving a known slot is not an error.
type Catalog interface {
	SavePatient(ctx context.Context, p Patient) error
	SaveDoctor(ctx context.Context, d Doctor) error
	SaveSlot(ctx context.Context, doctorID string, at time.Time) error
}

// MemoryDirectory keeps records in maps and lists them in registration order.
type MemoryDirectory struct {
	mu           sync.RWMutex
	patients     map[string]Patient
	doctors      map[string]Doctor
	patientOrder []string
	doctorOrder  []string
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		patients: make(map[string]Patient),
		doctors:  make(map[string]Doctor),
	}
}

func (d *MemoryDirectory) FindPatient(id string) (Patient, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.patients[id]
	if !ok {
		return Patient{}, ErrUnknownPatient
	}
	return p, nil
}

func (d *MemoryDirectory) FindDoctor(id string) (Doctor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.doctors[id]
	if !ok {
		return Doctor{}, ErrUnknownDoctor
	}
	return cloneDoctor(doc), nil
}

func (d *MemoryDirectory) AddPatient(p Patient) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.patients[p.ID]; ok {
		return ErrPatientExists
	}
	d.patients[p.ID] = p
	d.patientOrder = append(d.patientOrder, p.ID)
	return nil
}

func (d *MemoryDirectory) AddDoctor(doc Doctor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.doctors[doc.ID]; ok {
		return ErrDoctorExists
	}
	d.doctors[doc.ID] = cloneDoctor(doc)
	d.doctorOrder = append(d.doctorOrder, doc.ID)
	return nil
}

func (d *MemoryDirectory) Patients() []Patient {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Patient, 0, len(d.patientOrder))
	for _, id := range d.patientOrder {
		out = append(out, d.patients[id])
	}
	return out
}

func (d *MemoryDirectory) Doctors() []Doctor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Doctor, 0, len(d.doctorOrder))
	for _, id := range d.doctorOrder {
		out = append(out, cloneDoctor(d.doctors[id]))
	}
	return out
}

func cloneDoctor(doc Doctor) Doctor {
	slots := make([]time.Time, len(doc.Slots))
	copy(slots, doc.Slots)
	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	doc.Slots = slots
	return doc
}
