package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/bedalloc/internal/domain/allocation"
	"github.com/ehr/bedalloc/internal/platform/db"
)

const eventTable = "allocation_event"

// PGRecorder appends events to the allocation_event table of one schema.
type PGRecorder struct {
	pool  *pgxpool.Pool
	query string
}

// NewPGRecorder writes into schema.allocation_event, the table created by
// the migrator for the same schema. An empty schema means public.
func NewPGRecorder(pool *pgxpool.Pool, schema string) *PGRecorder {
	return &PGRecorder{pool: pool, query: insertEventSQL(schema)}
}

func insertEventSQL(schema string) string {
	return fmt.Sprintf(`
	INSERT INTO %s (
		id, event_type, patient_id, ward_id, severity, position, detail, recorded_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`, db.Table(schema, eventTable))
}

func (r *PGRecorder) Record(ctx context.Context, evt allocation.Event) error {
	if _, err := r.pool.Exec(ctx, r.query, eventArgs(evt)...); err != nil {
		return fmt.Errorf("insert allocation event %s: %w", evt.Type, err)
	}
	return nil
}

func eventArgs(evt allocation.Event) []any {
	var detail *string
	if evt.Detail != "" {
		detail = &evt.Detail
	}
	return []any{
		evt.ID, evt.Type, evt.PatientID, evt.WardID, evt.Severity, evt.Position, detail, evt.RecordedAt,
	}
}
