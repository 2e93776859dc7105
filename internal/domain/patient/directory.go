package patient

import (
	"fmt"
	"iter"
	"math"
	"slices"
)

// Directory holds every admitted patient in admission order and issues
// identifiers. Identifiers are never reused, even after discharge or Reset.
type Directory struct {
	patients []*Patient
	nextID   int
	maxID    int
}

func NewDirectory() *Directory {
	return NewBoundedDirectory(math.MaxInt32)
}

// NewBoundedDirectory issues identifiers up to and including maxID.
func NewBoundedDirectory(maxID int) *Directory {
	return &Directory{nextID: FirstID, maxID: maxID}
}

// Create registers a new unplaced patient. The name must already be checked
// as non-empty; severity is clamped.
func (d *Directory) Create(name string, age, severity int) (*Patient, error) {
	if d.nextID > d.maxID {
		return nil, fmt.Errorf("create patient %q: %w", name, ErrExhausted)
	}
	p := &Patient{
		ID:       d.nextID,
		Name:     truncate(name, MaxNameLen),
		Age:      age,
		Severity: ClampSeverity(severity),
	}
	d.nextID++
	d.patients = append(d.patients, p)
	return p, nil
}

func (d *Directory) Get(id int) (*Patient, error) {
	for _, p := range d.patients {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("patient %d: %w", id, ErrNotFound)
}

// Remove deletes the patient and returns it.
func (d *Directory) Remove(id int) (*Patient, error) {
	for i, p := range d.patients {
		if p.ID == id {
			d.patients = slices.Delete(d.patients, i, i+1)
			return p, nil
		}
	}
	return nil, fmt.Errorf("patient %d: %w", id, ErrNotFound)
}

func (d *Directory) Len() int { return len(d.patients) }

// All yields patients in admission order.
func (d *Directory) All() iter.Seq[*Patient] {
	return func(yield func(*Patient) bool) {
		for _, p := range d.patients {
			if !yield(p) {
				return
			}
		}
	}
}

// Reset drops every patient but keeps the identifier counter.
func (d *Directory) Reset() {
	d.patients = nil
}
