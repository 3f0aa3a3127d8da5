package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist or,
	// for services, is no longer active.
	ErrNotFound = errors.New("not found")

	// ErrSlotTaken is returned by the booking committer when the requested
	// slot overlaps an existing non-cancelled appointment at commit time.
	ErrSlotTaken = errors.New("slot no longer available")

	// ErrAlreadyPaid is returned when starting payment for an appointment
	// that has already been paid.
	ErrAlreadyPaid = errors.New("appointment already paid")
)

// ValidationError reports malformed input with per-field detail so callers
// can highlight the offending fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return "invalid input: " + strings.Join(names, ", ")
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// StateTransitionError reports a status change the state machine forbids.
type StateTransitionError struct {
	From AppointmentStatus
	To   AppointmentStatus
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("cannot transition appointment from %s to %s", e.From, e.To)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrSlotTaken)
}
