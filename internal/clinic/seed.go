package clinic

import (
	"fmt"
	"time"
)

const (
	demoDays        = 5
	demoSlotsPerDay = 4
	demoSlotGap     = 2 * time.Hour
	demoFirstHour   = 9
)

// SeedDemo fills dir with the clinic's sample doctors and patients. Each doctor
// gets four slots a day, two hours apart from 09:00, for five days starting on now's date.
func SeedDemo(dir Directory, now time.Time) error {
	base := time.Date(now.Year(), now.Month(), now.Day(), demoFirstHour, 0, 0, 0, now.Location())

	var slots []time.Time
	for day := 0; day < demoDays; day++ {
		for i := 0; i < demoSlotsPerDay; i++ {
			slots = append(slots, base.AddDate(0, 0, day).Add(time.Duration(i)*demoSlotGap))
		}
	}

	doctors := []Doctor{
		{FirstName: "Carlos", LastName: "Mendoza", Specialty: "Cardiología", Phone: "0991234567"},
		{FirstName: "Ana", LastName: "García", Specialty: "Pediatría", Phone: "0992345678"},
		{FirstName: "Luis", LastName: "Rodríguez", Specialty: "Dermatología", Phone: "0993456789"},
	}
	for i, d := range doctors {
		d.ID = fmt.Sprintf("D%03d", i+1)
		d.Slots = slots
		if err := dir.AddDoctor(d); err != nil {
			return fmt.Errorf("seed doctor %s: %w", d.ID, err)
		}
	}

	patients := []Patient{
		{ID: "1723456789", FirstName: "María", LastName: "Pérez", Age: 35, Phone: "0991112233", Email: "maria@email.com"},
		{ID: "1724567890", FirstName: "Juan", LastName: "López", Age: 42, Phone: "0992223344", Email: "juan@email.com"},
		{ID: "1725678901", FirstName: "Carmen", LastName: "Vega", Age: 28, Phone: "0993334455", Email: "carmen@email.com"},
	}
	for _, p := range patients {
		if err := dir.AddPatient(p); err != nil {
			return fmt.Errorf("seed patient %s: %w", p.ID, err)
		}
	}

	return nil
}
