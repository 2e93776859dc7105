package ward

import (
	"errors"
	"strings"
	"testing"
)

func seeded() *Registry {
	r := NewRegistry()
	r.Add(1, "General", 5)
	r.Add(2, "ICU", 2)
	r.Add(3, "Pediatrics", 3)
	return r
}

func TestRegistry_AddAndFind(t *testing.T) {
	r := seeded()
	if r.Len() != 3 {
		t.Fatalf("expected 3 wards, got %d", r.Len())
	}
	w, err := r.FindByID(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Department != "ICU" || w.Capacity != 2 || w.Occupancy != 0 {
		t.Errorf("unexpected ward: %+v", w)
	}
}

func TestRegistry_FindByID_NotFound(t *testing.T) {
	r := seeded()
	_, err := r.FindByID(42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistry_DuplicateIDResolvesToFirst(t *testing.T) {
	r := NewRegistry()
	r.Add(7, "East", 1)
	r.Add(7, "West", 4)
	if r.Len() != 2 {
		t.Fatalf("expected duplicate to be stored, got %d wards", r.Len())
	}
	w, _ := r.FindByID(7)
	if w.Department != "East" {
		t.Errorf("expected first match East, got %s", w.Department)
	}
}

func TestRegistry_TruncatesDepartment(t *testing.T) {
	r := NewRegistry()
	w := r.Add(1, strings.Repeat("x", 50), 1)
	if len(w.Department) != MaxDepartmentLen {
		t.Errorf("expected %d chars, got %d", MaxDepartmentLen, len(w.Department))
	}
}

func TestRegistry_AllIsRestartable(t *testing.T) {
	r := seeded()
	var first, second []int
	for s := range r.All() {
		first = append(first, s.ID)
	}
	for s := range r.All() {
		second = append(second, s.ID)
	}
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 summaries per pass, got %d and %d", len(first), len(second))
	}
	for i, id := range []int{1, 2, 3} {
		if first[i] != id || second[i] != id {
			t.Errorf("pass order mismatch at %d: %v %v", i, first, second)
		}
	}
}

func TestRegistry_AllStopsEarly(t *testing.T) {
	r := seeded()
	n := 0
	for range r.All() {
		n++
		break
	}
	if n != 1 {
		t.Errorf("expected early stop after 1, got %d", n)
	}
}

func TestRegistry_SummaryVacancy(t *testing.T) {
	r := seeded()
	r.Increment(1)
	r.Increment(1)
	for s := range r.All() {
		if s.ID == 1 && s.Vacancy != 3 {
			t.Errorf("expected vacancy 3, got %d", s.Vacancy)
		}
	}
}

func TestRegistry_PickLargestVacancy(t *testing.T) {
	r := seeded()
	if got := r.PickLargestVacancy(); got != 0 {
		t.Fatalf("expected General (index 0), got %d", got)
	}

	// General 5->2 free, ICU 2 free: tie goes to the earlier ward.
	r.Increment(1)
	r.Increment(1)
	r.Increment(1)
	r.Increment(3)
	if got := r.PickLargestVacancy(); got != 0 {
		t.Errorf("expected tie to resolve to index 0, got %d", got)
	}

	r.Increment(1)
	if got := r.PickLargestVacancy(); got != 1 {
		t.Errorf("expected ICU (index 1), got %d", got)
	}
}

func TestRegistry_PickLargestVacancy_AllFull(t *testing.T) {
	r := NewRegistry()
	r.Add(1, "Solo", 1)
	r.IncrementAt(0)
	if got := r.PickLargestVacancy(); got != -1 {
		t.Errorf("expected -1 when full, got %d", got)
	}
}

func TestRegistry_DecrementFloorsAtZero(t *testing.T) {
	r := seeded()
	if err := r.Decrement(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w, _ := r.FindByID(2)
	if w.Occupancy != 0 {
		t.Errorf("expected occupancy 0, got %d", w.Occupancy)
	}
	if err := r.Decrement(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistry_Totals(t *testing.T) {
	r := seeded()
	r.Increment(1)
	r.Increment(2)
	tot := r.Totals()
	if tot.Capacity != 10 || tot.Occupied != 2 || tot.Vacant != 8 {
		t.Errorf("unexpected totals: %+v", tot)
	}
}

func TestRegistry_Reset(t *testing.T) {
	r := seeded()
	r.Reset()
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
}
