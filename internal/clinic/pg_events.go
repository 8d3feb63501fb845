package clinic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgEventLog appends scheduler events to the event_logs table.
type PgEventLog struct {
	pool *pgxpool.Pool
}

func NewPgEventLog(pool *pgxpool.Pool) *PgEventLog {
	return &PgEventLog{pool: pool}
}

func (l *PgEventLog) RecordEvent(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = l.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.Type, ev.AppointmentID, payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}
