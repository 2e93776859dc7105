package allocation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/bedalloc/internal/domain/patient"
	"github.com/ehr/bedalloc/internal/domain/waitlist"
	"github.com/ehr/bedalloc/internal/domain/ward"
)

// Recorder receives every state transition after it has been applied.
type Recorder interface {
	Record(ctx context.Context, evt Event) error
}

// DefaultWards are registered by SeedDefaultWards.
var DefaultWards = []ward.Ward{
	{ID: 1, Department: "General", Capacity: 5},
	{ID: 2, Department: "ICU", Capacity: 2},
	{ID: 3, Department: "Pediatrics", Capacity: 3},
}

// Engine owns all allocation state. A single mutex serializes operations so
// an admission or discharge, including its waiting-list cascade, settles
// before the next one starts.
type Engine struct {
	mu       sync.Mutex
	wards    *ward.Registry
	patients *patient.Directory
	waiting  *waitlist.List
	logger   zerolog.Logger
	rec      Recorder
	now      func() time.Time
}

func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{
		wards:    ward.NewRegistry(),
		patients: patient.NewDirectory(),
		waiting:  waitlist.New(),
		logger:   logger.With().Str("component", "allocation").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetRecorder attaches an optional event recorder.
func (e *Engine) SetRecorder(r Recorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rec = r
}

func (e *Engine) SeedDefaultWards(ctx context.Context) error {
	for _, w := range DefaultWards {
		if err := e.AddWard(ctx, w.ID, w.Department, w.Capacity); err != nil {
			return err
		}
	}
	return nil
}

// AddWard registers a ward. Duplicate ids are accepted; later lookups by
// that id resolve to the first registered ward.
func (e *Engine) AddWard(ctx context.Context, id int, department string, capacity int) error {
	department = strings.TrimSpace(department)
	if department == "" {
		return fmt.Errorf("%w: department is required", ErrInvalidInput)
	}
	if capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidInput, capacity)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.wards.Has(id) {
		e.logger.Warn().Int("ward_id", id).Msg("duplicate ward id registered; lookups resolve to the first ward")
	}
	w := e.wards.Add(id, department, capacity)
	e.logger.Debug().Int("ward_id", w.ID).Str("department", w.Department).Int("capacity", w.Capacity).Msg("ward added")
	e.emit(ctx, Event{Type: EventWardAdded, WardID: intPtr(w.ID), Detail: w.Department})
	return nil
}

func (e *Engine) ListWards(_ context.Context) []ward.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]ward.Summary, 0, e.wards.Len())
	for s := range e.wards.All() {
		out = append(out, s)
	}
	return out
}

// Admit creates a patient and places it in the ward with the largest
// vacancy, or waitlists it by severity when every ward is full.
func (e *Engine) Admit(ctx context.Context, name string, age, severity int) (*Admission, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.patients.Create(name, age, severity)
	if err != nil {
		if errors.Is(err, patient.ErrExhausted) {
			return nil, fmt.Errorf("%w: %w", ErrExhausted, err)
		}
		return nil, err
	}

	if e.place(p) {
		e.logger.Debug().Int("patient_id", p.ID).Int("ward_id", *p.WardID).Int("severity", p.Severity).Msg("patient admitted")
		e.emit(ctx, Event{Type: EventAdmitted, PatientID: intPtr(p.ID), WardID: intPtr(*p.WardID), Severity: intPtr(p.Severity)})
		return &Admission{Patient: *p, Outcome: OutcomePlaced, WardID: intPtr(*p.WardID)}, nil
	}

	pos := e.waiting.Insert(p)
	e.logger.Debug().Int("patient_id", p.ID).Int("severity", p.Severity).Int("position", pos).Msg("no beds available, patient waitlisted")
	e.emit(ctx, Event{Type: EventWaitlisted, PatientID: intPtr(p.ID), Severity: intPtr(p.Severity), Position: intPtr(pos)})
	return &Admission{Patient: *p, Outcome: OutcomeWaitlisted, Position: intPtr(pos)}, nil
}

// Discharge removes a patient. Freeing a bed triggers a retry of the
// waiting list from the front.
func (e *Engine) Discharge(ctx context.Context, id int) (*Discharge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.patients.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	if !p.Placed() {
		e.waiting.Remove(p)
		if _, err := e.patients.Remove(p.ID); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		e.logger.Debug().Int("patient_id", p.ID).Msg("patient removed from waiting list")
		e.emit(ctx, Event{Type: EventWaitlistRemoved, PatientID: intPtr(p.ID), Severity: intPtr(p.Severity)})
		return &Discharge{Patient: *p, FromWaitlist: true, Reassigned: []Placement{}}, nil
	}

	wardID := *p.WardID
	if err := e.wards.Decrement(wardID); err != nil {
		e.logger.Warn().Err(err).Int("patient_id", p.ID).Msg("discharged patient references unknown ward")
	}
	if _, err := e.patients.Remove(p.ID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	e.logger.Debug().Int("patient_id", p.ID).Int("ward_id", wardID).Msg("patient discharged")
	e.emit(ctx, Event{Type: EventDischarged, PatientID: intPtr(p.ID), WardID: intPtr(wardID), Severity: intPtr(p.Severity)})

	return &Discharge{
		Patient:    *p,
		WardID:     intPtr(wardID),
		Reassigned: e.retryWaiting(ctx),
	}, nil
}

// retryWaiting walks the waiting list from the highest severity down. A
// placed entry is removed, so the same index is examined again.
func (e *Engine) retryWaiting(ctx context.Context) []Placement {
	placed := []Placement{}
	for i := 0; i < e.waiting.Len(); {
		p := e.waiting.At(i)
		if !e.place(p) {
			i++
			continue
		}
		e.waiting.RemoveAt(i)
		placed = append(placed, Placement{Patient: *p, WardID: *p.WardID})
		e.logger.Debug().Int("patient_id", p.ID).Int("ward_id", *p.WardID).Msg("waiting patient allocated")
		e.emit(ctx, Event{Type: EventReassigned, PatientID: intPtr(p.ID), WardID: intPtr(*p.WardID), Severity: intPtr(p.Severity)})
	}
	return placed
}

// place applies the largest-vacancy policy. The caller holds e.mu.
func (e *Engine) place(p *patient.Patient) bool {
	idx := e.wards.PickLargestVacancy()
	if idx < 0 {
		return false
	}
	w := e.wards.IncrementAt(idx)
	p.Assign(w.ID)
	return true
}

func (e *Engine) ListPatients(_ context.Context) *Roster {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := &Roster{
		Patients: make([]patient.Patient, 0, e.patients.Len()),
		Waiting:  make([]WaitingEntry, 0, e.waiting.Len()),
	}
	for p := range e.patients.All() {
		r.Patients = append(r.Patients, *p)
	}
	for i, p := range e.waiting.All() {
		r.Waiting = append(r.Waiting, WaitingEntry{Position: i, Patient: *p})
	}
	return r
}

func (e *Engine) Report(_ context.Context) *Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := &Report{
		Totals:  e.wards.Totals(),
		Wards:   make([]ward.Summary, 0, e.wards.Len()),
		Waiting: e.waiting.Len(),
	}
	for s := range e.wards.All() {
		r.Wards = append(r.Wards, s)
	}
	return r
}

// Shutdown releases all wards and patients. The identifier counter is kept
// so ids stay unique for the life of the process.
func (e *Engine) Shutdown(_ context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Info().
		Int("wards", e.wards.Len()).
		Int("patients", e.patients.Len()).
		Int("waiting", e.waiting.Len()).
		Msg("releasing allocation state")
	e.waiting.Reset()
	e.patients.Reset()
	e.wards.Reset()
}

// Verify checks the allocation invariants: occupancy per ward id matches the
// placed patients referencing it, every unplaced patient is waitlisted
// exactly once, and the waiting list is in non-increasing severity order.
func (e *Engine) Verify() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	occupancy := map[int]int{}
	for s := range e.wards.All() {
		if s.Occupancy < 0 || s.Occupancy > s.Capacity {
			return fmt.Errorf("ward %d occupancy %d outside [0,%d]", s.ID, s.Occupancy, s.Capacity)
		}
		occupancy[s.ID] += s.Occupancy
	}

	referencing := map[int]int{}
	unplaced := 0
	for p := range e.patients.All() {
		if p.Placed() {
			referencing[*p.WardID]++
			if e.waiting.Position(p.ID) >= 0 {
				return fmt.Errorf("patient %d is both placed and waitlisted", p.ID)
			}
			continue
		}
		unplaced++
		if e.waiting.Position(p.ID) < 0 {
			return fmt.Errorf("patient %d is neither placed nor waitlisted", p.ID)
		}
	}
	for id, n := range occupancy {
		if referencing[id] != n {
			return fmt.Errorf("ward %d occupancy %d but %d patients reference it", id, n, referencing[id])
		}
	}
	for id, n := range referencing {
		if _, ok := occupancy[id]; !ok {
			return fmt.Errorf("%d patients reference unknown ward %d", n, id)
		}
	}
	if unplaced != e.waiting.Len() {
		return fmt.Errorf("waiting list holds %d entries, %d patients unplaced", e.waiting.Len(), unplaced)
	}

	prev := patient.MaxSeverity
	for _, p := range e.waiting.All() {
		if p.Severity > prev {
			return fmt.Errorf("waiting list out of order at patient %d", p.ID)
		}
		prev = p.Severity
	}
	return nil
}

// emit forwards evt to the recorder. Failures are logged; the transition has
// already been applied. The caller holds e.mu.
func (e *Engine) emit(ctx context.Context, evt Event) {
	if e.rec == nil {
		return
	}
	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}
	if evt.RecordedAt.IsZero() {
		evt.RecordedAt = e.now()
	}
	if err := e.rec.Record(ctx, evt); err != nil {
		e.logger.Error().Err(err).Str("event", evt.Type).Msg("failed to record allocation event")
	}
}
