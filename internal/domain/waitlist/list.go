// Package waitlist keeps unplaced patients ordered by descending severity.
// Patients of equal severity stay in arrival order.
package waitlist

import (
	"iter"
	"slices"

	"github.com/ehr/bedalloc/internal/domain/patient"
)

type List struct {
	entries []*patient.Patient
}

func New() *List {
	return &List{}
}

// Insert places p before the first entry with strictly lower severity and
// returns the position it landed at.
func (l *List) Insert(p *patient.Patient) int {
	pos := len(l.entries)
	for i, e := range l.entries {
		if p.Severity > e.Severity {
			pos = i
			break
		}
	}
	l.entries = slices.Insert(l.entries, pos, p)
	return pos
}

// RemoveAt deletes the entry at i. Out-of-range indexes are ignored.
func (l *List) RemoveAt(i int) {
	if i < 0 || i >= len(l.entries) {
		return
	}
	l.entries = slices.Delete(l.entries, i, i+1)
}

// Remove deletes p if present.
func (l *List) Remove(p *patient.Patient) bool {
	i := slices.Index(l.entries, p)
	if i < 0 {
		return false
	}
	l.RemoveAt(i)
	return true
}

// Position returns the index of the patient with the given id, or -1.
func (l *List) Position(id int) int {
	return slices.IndexFunc(l.entries, func(p *patient.Patient) bool { return p.ID == id })
}

func (l *List) At(i int) *patient.Patient { return l.entries[i] }

func (l *List) Len() int { return len(l.entries) }

// All yields entries top to bottom with their position.
func (l *List) All() iter.Seq2[int, *patient.Patient] {
	return func(yield func(int, *patient.Patient) bool) {
		for i, p := range l.entries {
			if !yield(i, p) {
				return
			}
		}
	}
}

func (l *List) Reset() {
	l.entries = nil
}
