package allocation

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/bedalloc/internal/domain/patient"
	"github.com/ehr/bedalloc/internal/domain/ward"
)

var (
	// ErrInvalidInput marks a rejected field; state is unchanged.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks an unknown ward or patient id; state is unchanged.
	ErrNotFound = errors.New("not found")
	// ErrExhausted marks a resource limit hit while creating a record.
	ErrExhausted = errors.New("resource exhausted")
)

// Outcome of an admission decision.
const (
	OutcomePlaced     = "placed"
	OutcomeWaitlisted = "waitlisted"
)

// Admission is the result of Engine.Admit.
type Admission struct {
	Patient patient.Patient `json:"patient"`
	Outcome string          `json:"outcome"`
	// WardID is set when the patient got a bed.
	WardID *int `json:"ward_id,omitempty"`
	// Position is the waiting list index, set only when the patient was
	// waitlisted.
	Position *int `json:"position,omitempty"`
}

func (a *Admission) Placed() bool { return a.Outcome == OutcomePlaced }

// Placement records a waiting patient that was moved into a ward.
type Placement struct {
	Patient patient.Patient `json:"patient"`
	WardID  int             `json:"ward_id"`
}

// Discharge is the result of Engine.Discharge.
type Discharge struct {
	Patient patient.Patient `json:"patient"`
	// FromWaitlist is true when the patient never held a bed.
	FromWaitlist bool `json:"from_waitlist"`
	// WardID is the ward the bed was freed in.
	WardID *int `json:"ward_id,omitempty"`
	// Reassigned lists waiting patients placed by the retry, in placement order.
	Reassigned []Placement `json:"reassigned"`
}

// WaitingEntry is one row of the waiting list.
type WaitingEntry struct {
	Position int             `json:"position"`
	Patient  patient.Patient `json:"patient"`
}

// Roster lists every admitted patient in admission order alongside the
// waiting list in priority order.
type Roster struct {
	Patients []patient.Patient `json:"patients"`
	Waiting  []WaitingEntry    `json:"waiting"`
}

// Report aggregates ward capacity. It is computed without mutating state.
type Report struct {
	ward.Totals
	Wards   []ward.Summary `json:"wards"`
	Waiting int            `json:"waiting"`
}

// Event types emitted to a Recorder.
const (
	EventWardAdded       = "ward_added"
	EventAdmitted        = "admitted"
	EventWaitlisted      = "waitlisted"
	EventReassigned      = "reassigned"
	EventDischarged      = "discharged"
	EventWaitlistRemoved = "waitlist_removed"
)

// Event describes a single allocation state transition.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	PatientID  *int      `json:"patient_id,omitempty"`
	WardID     *int      `json:"ward_id,omitempty"`
	Severity   *int      `json:"severity,omitempty"`
	Position   *int      `json:"position,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func intPtr(v int) *int { return &v }
