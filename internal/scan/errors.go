package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEligibleSector is returned when a graph has no sector other than -1.
	ErrNoEligibleSector = errors.New("no eligible sector")

	// ErrGraphOutOfRange is returned for a graph index outside the data set.
	ErrGraphOutOfRange = errors.New("graph index out of range")

	// ErrInvalidConfig is returned by NewController for inconsistent inputs.
	ErrInvalidConfig = errors.New("invalid scan configuration")

	// ErrInvalidBudget is returned when a budget has neither a trial count nor a timeout.
	ErrInvalidBudget = errors.New("budget needs a trial count or a timeout")

	// ErrLabelCount is returned when an algorithm returns the wrong number of labels.
	ErrLabelCount = errors.New("algorithm returned wrong number of labels")
)

// NoEligibleSectorError names the graph whose sectors are all unassigned.
type NoEligibleSectorError struct {
	Graph int
}

func (e *NoEligibleSectorError) Error() string {
	return fmt.Sprintf("graph %d: %v", e.Graph, ErrNoEligibleSector)
}

func (e *NoEligibleSectorError) Unwrap() error { return ErrNoEligibleSector }
