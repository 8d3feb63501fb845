package clinic

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Helpers

func scanPatient(row pgx.Row) (Patient, error) {
	var p Patient
	var phone, email *string

	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Age, &phone, &email); err != nil {
		return Patient{}, err
	}

	if phone != nil {
		p.Phone = *phone
	}
	if email != nil {
		p.Email = *email
	}
	return p, nil
}

func scanDoctor(row pgx.Row) (Doctor, error) {
	var d Doctor
	var specialty, phone *string

	if err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &specialty, &phone); err != nil {
		return Doctor{}, err
	}

	if specialty != nil {
		d.Specialty = *specialty
	}
	if phone != nil {
		d.Phone = *phone
	}
	return d, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// LoadDirectory reads patients, doctors and their open slots into a MemoryDirectory.
// Slots in the past relative to now are skipped.
func LoadDirectory(ctx context.Context, pool *pgxpool.Pool, now time.Time) (*MemoryDirectory, error) {
	dir := NewMemoryDirectory()

	rows, err := pool.Query(ctx, `
		SELECT id, first_name, last_name, age, phone, email
		FROM patients
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	patients, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Patient, error) {
		return scanPatient(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan patients: %w", err)
	}

	slots, err := loadSlots(ctx, pool, now)
	if err != nil {
		return nil, err
	}

	rows, err = pool.Query(ctx, `
		SELECT id, first_name, last_name, specialty, phone
		FROM doctors
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	doctors, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Doctor, error) {
		return scanDoctor(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan doctors: %w", err)
	}

	for _, p := range patients {
		if err := dir.AddPatient(p); err != nil {
			return nil, fmt.Errorf("add patient %s: %w", p.ID, err)
		}
	}
	for _, d := range doctors {
		d.Slots = slots[d.ID]
		if err := dir.AddDoctor(d); err != nil {
			return nil, fmt.Errorf("add doctor %s: %w", d.ID, err)
		}
	}

	return dir, nil
}

func loadSlots(ctx context.Context, pool *pgxpool.Pool, now time.Time) (map[string][]time.Time, error) {
	rows, err := pool.Query(ctx, `
		SELECT doctor_id, start_time
		FROM doctor_slots
		WHERE start_time >= $1
		ORDER BY doctor_id, start_time
	`, now)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	defer rows.Close()

	slots := make(map[string][]time.Time)
	for rows.Next() {
		var doctorID string
		var at time.Time
		if err := rows.Scan(&doctorID, &at); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots[doctorID] = append(slots[doctorID], at)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return slots, nil
}
