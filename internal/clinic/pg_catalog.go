package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PgCatalog writes runtime directory changes to the tables LoadDirectory reads.
type PgCatalog struct {
	pool *pgxpool.Pool
}

func NewPgCatalog(pool *pgxpool.Pool) *PgCatalog {
	return &PgCatalog{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (c *PgCatalog) SavePatient(ctx context.Context, p Patient) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO patients (id, first_name, last_name, age, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.FirstName, p.LastName, p.Age, nullableString(p.Phone), nullableString(p.Email))
	if isUniqueViolation(err) {
		return ErrPatientExists
	}
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

// SaveDoctor inserts the doctor and its slots in one transaction.
func (c *PgCatalog) SaveDoctor(ctx context.Context, d Doctor) error {
	err := pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, first_name, last_name, specialty, phone)
			VALUES ($1, $2, $3, $4, $5)
		`, d.ID, d.FirstName, d.LastName, nullableString(d.Specialty), nullableString(d.Phone))
		if err != nil || len(d.Slots) == 0 {
			return err
		}

		batch := &pgx.Batch{}
		for _, at := range d.Slots {
			batch.Queue(insertSlotSQL, d.ID, at)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if isUniqueViolation(err) {
		return ErrDoctorExists
	}
	if err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}
	return nil
}

const insertSlotSQL = `
	INSERT INTO doctor_slots (doctor_id, start_time)
	VALUES ($1, $2)
	ON CONFLICT (doctor_id, start_time) DO NOTHING
`

func (c *PgCatalog) SaveSlot(ctx context.Context, doctorID string, at time.Time) error {
	if _, err := c.pool.Exec(ctx, insertSlotSQL, doctorID, at); err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}
