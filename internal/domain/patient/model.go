package patient

import "errors"

const (
	MinSeverity = 1
	MaxSeverity = 10

	// MaxNameLen is the longest patient name kept; longer names are truncated.
	MaxNameLen = 63

	// FirstID is the identifier handed to the first patient of a process.
	FirstID = 1000
)

var (
	ErrNotFound = errors.New("patient not found")

	// ErrExhausted is returned when no further identifiers can be issued.
	ErrExhausted = errors.New("patient identifiers exhausted")
)

// Patient is an admitted person, either holding a bed or waiting for one.
type Patient struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Severity int    `json:"severity"`
	WardID   *int   `json:"ward_id,omitempty"`
}

// Placed reports whether the patient holds a ward assignment.
func (p *Patient) Placed() bool { return p.WardID != nil }

// Assign records the ward the patient was placed into.
func (p *Patient) Assign(wardID int) {
	id := wardID
	p.WardID = &id
}

// Status is "placed" or "waiting".
func (p *Patient) Status() string {
	if p.Placed() {
		return "placed"
	}
	return "waiting"
}

// ClampSeverity forces s into [MinSeverity, MaxSeverity].
func ClampSeverity(s int) int {
	if s < MinSeverity {
		return MinSeverity
	}
	if s > MaxSeverity {
		return MaxSeverity
	}
	return s
}

// ValidSeverity reports whether s is already inside the accepted range.
func ValidSeverity(s int) bool {
	return s >= MinSeverity && s <= MaxSeverity
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
