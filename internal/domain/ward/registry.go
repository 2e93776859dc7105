package ward

import (
	"fmt"
	"iter"
)

// Registry holds wards in registration order. Ids are caller-assigned and
// not checked for uniqueness: lookups by id resolve to the first match.
type Registry struct {
	wards []*Ward
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a ward with zero occupancy. Capacity must already be validated
// as positive by the caller.
func (r *Registry) Add(id int, department string, capacity int) *Ward {
	w := &Ward{
		ID:         id,
		Department: truncate(department, MaxDepartmentLen),
		Capacity:   capacity,
	}
	r.wards = append(r.wards, w)
	return w
}

// Has reports whether any ward is registered under id.
func (r *Registry) Has(id int) bool {
	_, err := r.FindByID(id)
	return err == nil
}

func (r *Registry) FindByID(id int) (*Ward, error) {
	for _, w := range r.wards {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, fmt.Errorf("ward %d: %w", id, ErrNotFound)
}

func (r *Registry) Len() int { return len(r.wards) }

// All yields ward summaries in registration order.
func (r *Registry) All() iter.Seq[Summary] {
	return func(yield func(Summary) bool) {
		for _, w := range r.wards {
			if !yield(w.Summary()) {
				return
			}
		}
	}
}

// PickLargestVacancy returns the index of the ward with the most free beds,
// or -1 when every ward is full. Ties go to the earliest registered ward.
func (r *Registry) PickLargestVacancy() int {
	pick, best := -1, 0
	for i, w := range r.wards {
		if vac := w.Vacancy(); vac > 0 && (pick == -1 || vac > best) {
			pick, best = i, vac
		}
	}
	return pick
}

// IncrementAt occupies one bed in the ward at index idx and returns it.
func (r *Registry) IncrementAt(idx int) *Ward {
	w := r.wards[idx]
	w.Occupancy++
	return w
}

func (r *Registry) Increment(id int) error {
	w, err := r.FindByID(id)
	if err != nil {
		return err
	}
	w.Occupancy++
	return nil
}

// Decrement frees one bed in the first ward matching id. Occupancy never
// drops below zero.
func (r *Registry) Decrement(id int) error {
	w, err := r.FindByID(id)
	if err != nil {
		return err
	}
	if w.Occupancy > 0 {
		w.Occupancy--
	}
	return nil
}

func (r *Registry) Totals() Totals {
	var t Totals
	for _, w := range r.wards {
		t.Capacity += w.Capacity
		t.Occupied += w.Occupancy
	}
	t.Vacant = t.Capacity - t.Occupied
	return t
}

// Reset drops every ward.
func (r *Registry) Reset() {
	r.wards = nil
}
