// Package audit persists allocation events. Recorders are append-only: the
// trail is never read back to rebuild allocation state.
package audit

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/ehr/bedalloc/internal/domain/allocation"
)

// LogRecorder writes each event as a structured zerolog line.
type LogRecorder struct {
	logger zerolog.Logger
}

func NewLogRecorder(logger zerolog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger.With().Str("component", "audit").Logger()}
}

func (r *LogRecorder) Record(_ context.Context, evt allocation.Event) error {
	l := r.logger.Info().
		Str("event_id", evt.ID.String()).
		Str("event", evt.Type).
		Time("recorded_at", evt.RecordedAt)
	if evt.PatientID != nil {
		l = l.Int("patient_id", *evt.PatientID)
	}
	if evt.WardID != nil {
		l = l.Int("ward_id", *evt.WardID)
	}
	if evt.Severity != nil {
		l = l.Int("severity", *evt.Severity)
	}
	if evt.Position != nil {
		l = l.Int("position", *evt.Position)
	}
	if evt.Detail != "" {
		l = l.Str("detail", evt.Detail)
	}
	l.Msg("allocation event")
	return nil
}

// Multi fans an event out to several recorders. Every recorder is called;
// their errors are joined.
type Multi []allocation.Recorder

func (m Multi) Record(ctx context.Context, evt allocation.Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
