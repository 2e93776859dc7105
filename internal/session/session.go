// Package session runs the numbered-menu terminal interface over an
// allocation engine. Every command settles fully before the next prompt.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/bedalloc/internal/domain/allocation"
	"github.com/ehr/bedalloc/internal/domain/patient"
)

const menu = `
--- Hospital Bed & Resource Allocation ---
1) List wards
2) Add ward
3) Admit patient
4) Discharge patient
5) List patients & waiting list
6) Reports
7) Exit
Choose option: `

var errInvalidNumber = errors.New("invalid number")

type Session struct {
	engine *allocation.Engine
	in     *bufio.Scanner
	out    io.Writer
	logger zerolog.Logger
}

func New(engine *allocation.Engine, in io.Reader, out io.Writer, logger zerolog.Logger) *Session {
	return &Session{
		engine: engine,
		in:     bufio.NewScanner(in),
		out:    out,
		logger: logger.With().Str("component", "session").Logger(),
	}
}

// Run serves commands until the exit option or end of input. Both release
// the engine state and return nil. A read failure also releases the state
// and is returned.
func (s *Session) Run(ctx context.Context) error {
	for {
		s.printf("%s", menu)
		line, err := s.readLine()
		if errors.Is(err, io.EOF) {
			s.println("")
			return s.exit(ctx)
		}
		if err != nil {
			s.engine.Shutdown(ctx)
			return fmt.Errorf("read input: %w", err)
		}
		if line == "" {
			continue
		}

		switch menuChoice(line) {
		case 1:
			s.listWards(ctx)
		case 2:
			s.addWard(ctx)
		case 3:
			s.admit(ctx)
		case 4:
			s.discharge(ctx)
		case 5:
			s.listPatients(ctx)
		case 6:
			s.report(ctx)
		case 7:
			return s.exit(ctx)
		default:
			s.println("Invalid choice.")
		}
	}
}

// menuChoice reads the leading integer of line, so "1abc" selects option 1
// and a line without leading digits selects nothing.
func menuChoice(line string) int {
	end := 0
	if end < len(line) && (line[end] == '+' || line[end] == '-') {
		end++
	}
	for end < len(line) && line[end] >= '0' && line[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(line[:end])
	if err != nil {
		return 0
	}
	return n
}

func (s *Session) exit(ctx context.Context) error {
	s.engine.Shutdown(ctx)
	s.println("Exiting.")
	return nil
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Session) println(msg string) {
	fmt.Fprintln(s.out, msg)
}

// readLine returns the next trimmed line, or io.EOF once input is exhausted.
func (s *Session) readLine() (string, error) {
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.in.Text()), nil
}

func (s *Session) readInt(prompt string) (int, error) {
	s.printf("%s", prompt)
	line, err := s.readLine()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(line)
	if err != nil {
		return 0, errInvalidNumber
	}
	return v, nil
}

func (s *Session) listWards(ctx context.Context) {
	wards := s.engine.ListWards(ctx)
	if len(wards) == 0 {
		s.println("No wards defined yet.")
		return
	}
	s.println("Wards:")
	s.println("ID\tDept\t\tCapacity\tOccupied\tVacant")
	for _, w := range wards {
		s.printf("%d\t%-10s\t%d\t\t%d\t\t%d\n", w.ID, w.Department, w.Capacity, w.Occupancy, w.Vacancy)
	}
}

func (s *Session) addWard(ctx context.Context) {
	id, err := s.readInt("Enter new ward id: ")
	if err != nil {
		s.println("Invalid ward id.")
		return
	}
	s.printf("Enter department name (no spaces): ")
	dept, err := s.readLine()
	if err != nil || dept == "" {
		s.println("Invalid department.")
		return
	}
	capacity, err := s.readInt("Enter capacity: ")
	if err != nil {
		s.println("Invalid capacity.")
		return
	}
	if capacity <= 0 {
		s.println("Capacity must be positive.")
		return
	}
	if err := s.engine.AddWard(ctx, id, dept, capacity); err != nil {
		s.fail(err)
		return
	}
	s.println("Ward added.")
}

func (s *Session) admit(ctx context.Context) {
	s.printf("Enter patient name: ")
	name, err := s.readLine()
	if err != nil || name == "" {
		s.println("Name cannot be empty.")
		return
	}
	age, err := s.readInt("Enter age: ")
	if err != nil {
		s.println("Invalid age.")
		return
	}

	severity, ok := s.readSeverity()
	if !ok {
		s.println("Admission cancelled.")
		return
	}

	adm, err := s.engine.Admit(ctx, name, age, severity)
	if err != nil {
		s.fail(err)
		return
	}
	p := adm.Patient
	if adm.Placed() {
		s.printf("Patient %s (ID %d) admitted to ward %d.\n", p.Name, p.ID, *adm.WardID)
		return
	}
	s.printf("No beds available. Patient %s (ID %d) added to waiting list (severity %d).\n", p.Name, p.ID, p.Severity)
}

// readSeverity re-prompts until a value in range is entered. It reports
// false when input ends first.
func (s *Session) readSeverity() (int, bool) {
	for {
		v, err := s.readInt(fmt.Sprintf("Enter severity (%d-%d; %d most severe): ",
			patient.MinSeverity, patient.MaxSeverity, patient.MaxSeverity))
		switch {
		case errors.Is(err, errInvalidNumber):
			s.println("Invalid severity.")
		case err != nil:
			return 0, false
		case !patient.ValidSeverity(v):
			s.printf("Severity must be between %d and %d.\n", patient.MinSeverity, patient.MaxSeverity)
		default:
			return v, true
		}
	}
}

func (s *Session) discharge(ctx context.Context) {
	roster := s.engine.ListPatients(ctx)
	if len(roster.Patients) == 0 {
		s.println("No patients in system.")
		return
	}
	id, err := s.readInt("Enter patient ID to discharge: ")
	if err != nil {
		s.println("Invalid ID.")
		return
	}

	d, err := s.engine.Discharge(ctx, id)
	if errors.Is(err, allocation.ErrNotFound) {
		s.printf("Patient ID %d not found.\n", id)
		return
	}
	if err != nil {
		s.fail(err)
		return
	}

	p := d.Patient
	if d.FromWaitlist {
		s.printf("Patient %s (ID %d) removed from waiting list.\n", p.Name, p.ID)
		return
	}
	s.printf("Patient %s (ID %d) discharged from ward %d.\n", p.Name, p.ID, *d.WardID)
	for _, r := range d.Reassigned {
		s.printf("Allocated waiting patient %s (ID %d) to ward %d.\n", r.Patient.Name, r.Patient.ID, r.WardID)
	}
}

func (s *Session) listPatients(ctx context.Context) {
	roster := s.engine.ListPatients(ctx)
	if len(roster.Patients) == 0 {
		s.println("No patients in system.")
		return
	}

	s.println("Patients:")
	s.println("ID\tName\t\tAge\tSeverity\tWardAssigned")
	for _, p := range roster.Patients {
		s.printf("%d\t%-12s\t%d\t%d\t\t", p.ID, p.Name, p.Age, p.Severity)
		if p.WardID == nil {
			s.println("Waiting")
		} else {
			s.printf("%d\n", *p.WardID)
		}
	}

	if len(roster.Waiting) > 0 {
		s.println("\nWaiting list (by severity desc):")
		for _, w := range roster.Waiting {
			s.printf("%d) ID %d, Name: %s, Severity: %d\n", w.Position+1, w.Patient.ID, w.Patient.Name, w.Patient.Severity)
		}
	}
}

func (s *Session) report(ctx context.Context) {
	r := s.engine.Report(ctx)
	if len(r.Wards) == 0 {
		s.println("No wards defined.")
		return
	}
	s.printf("Total capacity: %d, Total occupied: %d, Total vacant: %d\n", r.Capacity, r.Occupied, r.Vacant)
	s.listWards(ctx)
	s.printf("Patients waiting: %d\n", r.Waiting)
}

func (s *Session) fail(err error) {
	s.logger.Debug().Err(err).Msg("command rejected")
	s.printf("Error: %v\n", err)
}
