package allocation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/bedalloc/internal/domain/patient"
)

// -- Mock Recorder --

type mockRecorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (m *mockRecorder) Record(_ context.Context, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return m.err
}

func (m *mockRecorder) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(zerolog.Nop())
	if err := e.SeedDefaultWards(context.Background()); err != nil {
		t.Fatalf("seed wards: %v", err)
	}
	return e
}

func mustVerify(t *testing.T, e *Engine) {
	t.Helper()
	if err := e.Verify(); err != nil {
		t.Fatalf("invariant violated: %v", err)
	}
}

func admitN(t *testing.T, e *Engine, n, severity int) []*Admission {
	t.Helper()
	var out []*Admission
	for i := 0; i < n; i++ {
		a, err := e.Admit(context.Background(), fmt.Sprintf("patient-%d", i), 40, severity)
		if err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
		mustVerify(t, e)
		out = append(out, a)
	}
	return out
}

func TestEngine_SeedDefaultWards(t *testing.T) {
	e := newTestEngine(t)
	wards := e.ListWards(context.Background())
	if len(wards) != 3 {
		t.Fatalf("expected 3 wards, got %d", len(wards))
	}
	if wards[0].Department != "General" || wards[1].Capacity != 2 || wards[2].ID != 3 {
		t.Errorf("unexpected seed: %+v", wards)
	}
}

// Scenario A: five admissions all placed by largest vacancy.
func TestEngine_Admit_LargestVacancyPlacement(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	var got []int
	for i, sev := range []int{3, 9, 1, 7, 5} {
		a, err := e.Admit(ctx, fmt.Sprintf("p%d", i), 30, sev)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !a.Placed() || a.WardID == nil {
			t.Fatalf("expected patient %d to be placed", i)
		}
		got = append(got, *a.WardID)
		mustVerify(t, e)
	}

	want := []int{1, 1, 1, 3, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("placements = %v, want %v", got, want)
	}

	r := e.Report(ctx)
	if r.Occupied != 5 || r.Vacant != 5 || r.Waiting != 0 {
		t.Errorf("unexpected report: %+v", r)
	}
}

func TestEngine_Admit_AssignsSequentialIDs(t *testing.T) {
	e := newTestEngine(t)
	a := admitN(t, e, 2, 5)
	if a[0].Patient.ID != 1000 || a[1].Patient.ID != 1001 {
		t.Errorf("expected ids 1000/1001, got %d/%d", a[0].Patient.ID, a[1].Patient.ID)
	}
}

// Scenario B: once all ten beds are taken the next patient is waitlisted.
func TestEngine_Admit_WaitlistsWhenFull(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	admitN(t, e, 10, 3)

	a, err := e.Admit(ctx, "late", 50, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Placed() {
		t.Fatal("expected patient to be waitlisted")
	}
	if a.Outcome != OutcomeWaitlisted || a.Position == nil || *a.Position != 0 || a.Patient.Severity != 8 {
		t.Errorf("unexpected admission: %+v", a)
	}
	if a.Patient.WardID != nil {
		t.Error("waitlisted patient must not reference a ward")
	}
	mustVerify(t, e)
}

// Scenario C: a discharge frees a bed that the waiting patient takes.
func TestEngine_Discharge_ReassignsWaitingPatient(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	placed := admitN(t, e, 10, 3)
	waiting, _ := e.Admit(ctx, "late", 50, 8)

	before := e.Report(ctx)
	victim := placed[7]

	d, err := e.Discharge(ctx, victim.Patient.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustVerify(t, e)

	if d.FromWaitlist {
		t.Error("expected discharge from a ward")
	}
	if len(d.Reassigned) != 1 {
		t.Fatalf("expected 1 reassignment, got %d", len(d.Reassigned))
	}
	if d.Reassigned[0].Patient.ID != waiting.Patient.ID {
		t.Errorf("expected %d reassigned, got %d", waiting.Patient.ID, d.Reassigned[0].Patient.ID)
	}
	if d.Reassigned[0].WardID != *victim.WardID {
		t.Errorf("expected reassignment to freed ward %d, got %d", *victim.WardID, d.Reassigned[0].WardID)
	}

	after := e.Report(ctx)
	if after.Waiting != 0 {
		t.Errorf("expected empty waiting list, got %d", after.Waiting)
	}
	if after.Occupied != before.Occupied {
		t.Errorf("expected occupancy unchanged at %d, got %d", before.Occupied, after.Occupied)
	}
}

// Scenario D: unknown id leaves state untouched.
func TestEngine_Discharge_NotFound(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	admitN(t, e, 3, 4)
	before := e.Report(ctx)
	beforeRoster := e.ListPatients(ctx)

	_, err := e.Discharge(ctx, 9999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !reflect.DeepEqual(before, e.Report(ctx)) {
		t.Error("report changed after failed discharge")
	}
	if !reflect.DeepEqual(beforeRoster, e.ListPatients(ctx)) {
		t.Error("roster changed after failed discharge")
	}
}

// Scenario E: severity is clamped into [1,10].
func TestEngine_Admit_ClampsSeverity(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	hi, _ := e.Admit(ctx, "hi", 20, 15)
	lo, _ := e.Admit(ctx, "lo", 20, -3)
	if hi.Patient.Severity != 10 {
		t.Errorf("expected 10, got %d", hi.Patient.Severity)
	}
	if lo.Patient.Severity != 1 {
		t.Errorf("expected 1, got %d", lo.Patient.Severity)
	}
}

func TestEngine_Admit_EmptyName(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Admit(context.Background(), "  ", 20, 5)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if n := len(e.ListPatients(context.Background()).Patients); n != 0 {
		t.Errorf("expected no patients, got %d", n)
	}
}

func TestEngine_Admit_ExhaustedIDs(t *testing.T) {
	e := newTestEngine(t)
	e.patients = patient.NewBoundedDirectory(patient.FirstID)
	admitN(t, e, 1, 5)

	_, err := e.Admit(context.Background(), "overflow", 20, 5)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestEngine_Discharge_CascadesBySeverity(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	placed := admitN(t, e, 10, 2)

	low, _ := e.Admit(ctx, "low", 30, 3)
	high, _ := e.Admit(ctx, "high", 30, 9)
	mid, _ := e.Admit(ctx, "mid", 30, 5)

	roster := e.ListPatients(ctx)
	var order []int
	for _, w := range roster.Waiting {
		order = append(order, w.Patient.ID)
	}
	if want := []int{high.Patient.ID, mid.Patient.ID, low.Patient.ID}; !reflect.DeepEqual(order, want) {
		t.Fatalf("waiting order = %v, want %v", order, want)
	}

	d, _ := e.Discharge(ctx, placed[0].Patient.ID)
	if len(d.Reassigned) != 1 || d.Reassigned[0].Patient.ID != high.Patient.ID {
		t.Fatalf("expected highest severity placed first, got %+v", d.Reassigned)
	}
	d, _ = e.Discharge(ctx, placed[1].Patient.ID)
	if len(d.Reassigned) != 1 || d.Reassigned[0].Patient.ID != mid.Patient.ID {
		t.Fatalf("expected mid severity next, got %+v", d.Reassigned)
	}
	mustVerify(t, e)
}

func TestEngine_Discharge_FIFOWithinSeverity(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	placed := admitN(t, e, 10, 2)

	first, _ := e.Admit(ctx, "first", 30, 6)
	second, _ := e.Admit(ctx, "second", 30, 6)
	if *first.Position != 0 || *second.Position != 1 {
		t.Fatalf("expected positions 0/1, got %d/%d", *first.Position, *second.Position)
	}

	d, _ := e.Discharge(ctx, placed[4].Patient.ID)
	if len(d.Reassigned) != 1 || d.Reassigned[0].Patient.ID != first.Patient.ID {
		t.Errorf("expected earlier arrival placed first, got %+v", d.Reassigned)
	}
}

func TestEngine_Discharge_CascadeFillsNewWard(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	placed := admitN(t, e, 10, 2)
	admitN(t, e, 3, 7)

	// A new ward does not trigger a retry by itself.
	if err := e.AddWard(ctx, 4, "Overflow", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.Report(ctx).Waiting; got != 3 {
		t.Fatalf("expected 3 waiting after AddWard, got %d", got)
	}

	d, err := e.Discharge(ctx, placed[0].Patient.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.Reassigned) != 3 {
		t.Fatalf("expected all 3 waiting patients placed, got %d", len(d.Reassigned))
	}
	if r := e.Report(ctx); r.Waiting != 0 || r.Vacant != 0 {
		t.Errorf("unexpected report after cascade: %+v", r)
	}
	mustVerify(t, e)
}

func TestEngine_Discharge_FromWaitlist(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	admitN(t, e, 10, 2)
	w, _ := e.Admit(ctx, "waiting", 30, 6)

	d, err := e.Discharge(ctx, w.Patient.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.FromWaitlist || d.WardID != nil || len(d.Reassigned) != 0 {
		t.Errorf("unexpected discharge: %+v", d)
	}
	r := e.Report(ctx)
	if r.Waiting != 0 || r.Occupied != 10 {
		t.Errorf("unexpected report: %+v", r)
	}
	if _, err := e.Discharge(ctx, w.Patient.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected second discharge to fail with ErrNotFound, got %v", err)
	}
	mustVerify(t, e)
}

func TestEngine_AddWard_Validation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		dept     string
		capacity int
	}{
		{"zero capacity", "Ortho", 0},
		{"negative capacity", "Ortho", -2},
		{"empty department", "", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.AddWard(ctx, 9, tt.dept, tt.capacity)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	if n := len(e.ListWards(ctx)); n != 3 {
		t.Errorf("expected ward list unchanged, got %d", n)
	}
}

func TestEngine_AddWard_DuplicateIDAccepted(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if err := e.AddWard(ctx, 1, "Annex", 4); err != nil {
		t.Fatalf("expected duplicate id to be accepted, got %v", err)
	}
	wards := e.ListWards(ctx)
	if len(wards) != 4 || wards[3].ID != 1 || wards[3].Department != "Annex" {
		t.Errorf("unexpected wards: %+v", wards)
	}
}

func TestEngine_Report_Idempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	admitN(t, e, 4, 5)

	first := e.Report(ctx)
	second := e.Report(ctx)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("reports differ: %+v vs %+v", first, second)
	}
	if first.Capacity != 10 || first.Occupied != 4 || first.Vacant != 6 {
		t.Errorf("unexpected totals: %+v", first.Totals)
	}
}

func TestEngine_ListPatients_RosterOrder(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	admitN(t, e, 10, 2)
	a, _ := e.Admit(ctx, "a", 30, 2)
	b, _ := e.Admit(ctx, "b", 30, 9)

	r := e.ListPatients(ctx)
	if len(r.Patients) != 12 {
		t.Fatalf("expected 12 patients, got %d", len(r.Patients))
	}
	if r.Patients[10].ID != a.Patient.ID || r.Patients[11].ID != b.Patient.ID {
		t.Error("expected roster in admission order")
	}
	if len(r.Waiting) != 2 || r.Waiting[0].Patient.ID != b.Patient.ID || r.Waiting[1].Position != 1 {
		t.Errorf("unexpected waiting list: %+v", r.Waiting)
	}
}

func TestEngine_Shutdown_ReleasesState(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	admitN(t, e, 12, 5)

	e.Shutdown(ctx)
	r := e.Report(ctx)
	if len(r.Wards) != 0 || r.Waiting != 0 || r.Capacity != 0 {
		t.Errorf("expected empty state, got %+v", r)
	}
	if n := len(e.ListPatients(ctx).Patients); n != 0 {
		t.Errorf("expected no patients, got %d", n)
	}
	mustVerify(t, e)
}

func TestEngine_Recorder_ReceivesEvents(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	rec := &mockRecorder{}
	e.SetRecorder(rec)
	ctx := context.Background()

	e.AddWard(ctx, 1, "Solo", 1)
	a, _ := e.Admit(ctx, "a", 30, 5)
	b, _ := e.Admit(ctx, "b", 30, 5)
	c, _ := e.Admit(ctx, "c", 30, 5)
	e.Discharge(ctx, c.Patient.ID)
	e.Discharge(ctx, a.Patient.ID)
	_ = b

	want := []string{
		EventWardAdded,
		EventAdmitted,
		EventWaitlisted,
		EventWaitlisted,
		EventWaitlistRemoved,
		EventDischarged,
		EventReassigned,
	}
	if got := rec.types(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for _, evt := range rec.events {
		if evt.RecordedAt.IsZero() || evt.ID == uuid.Nil {
			t.Errorf("event %s missing id or timestamp", evt.Type)
		}
	}
	last := rec.events[len(rec.events)-1]
	if *last.PatientID != b.Patient.ID || *last.WardID != 1 {
		t.Errorf("unexpected reassignment event: %+v", last)
	}
}

func TestEngine_Recorder_FailureDoesNotRollBack(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	e.SetRecorder(&mockRecorder{err: errors.New("db down")})
	ctx := context.Background()
	e.AddWard(ctx, 1, "Solo", 1)

	a, err := e.Admit(ctx, "a", 30, 5)
	if err != nil {
		t.Fatalf("recorder failure must not fail admission: %v", err)
	}
	if !a.Placed() {
		t.Error("expected patient placed")
	}
	mustVerify(t, e)
}

func TestEngine_ConcurrentAdmitAndDischarge(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan int, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := e.Admit(ctx, fmt.Sprintf("c%d", i), 30, i%10+1)
			if err == nil {
				ids <- a.Patient.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	n := 0
	for id := range ids {
		if n%2 == 0 {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				e.Discharge(ctx, id)
			}(id)
		}
		n++
	}
	wg.Wait()
	mustVerify(t, e)

	r := e.Report(ctx)
	if r.Occupied != 10 || r.Waiting != 10 {
		t.Errorf("expected 10 placed and 10 waiting, got %+v", r)
	}
}
