package ward

import "errors"

// MaxDepartmentLen is the longest department name a ward keeps; longer
// names are truncated on registration.
const MaxDepartmentLen = 31

var ErrNotFound = errors.New("ward not found")

// Ward is a capacity-bounded pool of beds.
type Ward struct {
	ID         int    `json:"id"`
	Department string `json:"department"`
	Capacity   int    `json:"capacity"`
	Occupancy  int    `json:"occupancy"`
}

// Vacancy returns the number of free beds.
func (w *Ward) Vacancy() int { return w.Capacity - w.Occupancy }

// Summary is a read-only view of a ward.
type Summary struct {
	ID         int    `json:"id"`
	Department string `json:"department"`
	Capacity   int    `json:"capacity"`
	Occupancy  int    `json:"occupancy"`
	Vacancy    int    `json:"vacancy"`
}

func (w *Ward) Summary() Summary {
	return Summary{
		ID:         w.ID,
		Department: w.Department,
		Capacity:   w.Capacity,
		Occupancy:  w.Occupancy,
		Vacancy:    w.Vacancy(),
	}
}

// Totals aggregates capacity across every registered ward.
type Totals struct {
	Capacity int `json:"total_capacity"`
	Occupied int `json:"total_occupied"`
	Vacant   int `json:"total_vacant"`
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
