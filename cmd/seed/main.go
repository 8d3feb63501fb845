package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-turnos/internal/db"
	"github.com/hackgods/clinic-turnos/internal/logger"
)

var specialties = []string{
	"Cardiología",
	"Pediatría",
	"Dermatología",
	"Medicina General",
	"Traumatología",
	"Endocrinología",
	"Neurología",
	"Psiquiatría",
	"Oftalmología",
	"Otorrinolaringología",
}

func main() {
	log := logger.New(getEnv("APP_ENV", "dev"), getEnv("LOG_LEVEL", "info"))
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	doctors := getInt("SEED_DOCTORS", 20)
	patients := getInt("SEED_PATIENTS", 2000)
	days := getInt("SEED_DAYS", 5)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDoctors(ctx, log, pool, doctors, days, time.Now()); err != nil {
		log.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedPatients(ctx, log, pool, patients); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}

	log.Info().Msg("seed complete")
}

// seedDoctors inserts doctors D001.. with four slots a day, two hours apart from 09:00.
func seedDoctors(ctx context.Context, log zerolog.Logger, pool *pgxpool.Pool, count, days int, now time.Time) error {
	log.Info().Int("count", count).Msg("seeding doctors")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	base := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location())

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("D%03d", i+1)
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, first_name, last_name, specialty, phone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (id) DO NOTHING
		`, id, gofakeit.FirstName(), gofakeit.LastName(), spec, gofakeit.Phone())
		if err != nil {
			return err
		}

		for day := 0; day < days; day++ {
			for j := 0; j < 4; j++ {
				at := base.AddDate(0, 0, day).Add(time.Duration(j*2) * time.Hour)
				_, err := tx.Exec(ctx, `
					INSERT INTO doctor_slots (doctor_id, start_time)
					VALUES ($1, $2)
					ON CONFLICT DO NOTHING
				`, id, at)
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Info().Msg("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, log zerolog.Logger, pool *pgxpool.Pool, count int) error {
	log.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			// Ten digit national id, like the clinic's cédula numbers.
			id := gofakeit.Numerify("17########")

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, first_name, last_name, age, phone, email, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, now(), now())
				ON CONFLICT (id) DO NOTHING
			`, id, gofakeit.FirstName(), gofakeit.LastName(), gofakeit.Number(0, 95), gofakeit.Phone(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
