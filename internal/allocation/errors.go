package allocation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownCard is matched by UnknownCardError.
	ErrUnknownCard = errors.New("unknown card")

	// ErrIncompleteCoverage is matched by IncompleteCoverageError.
	ErrIncompleteCoverage = errors.New("incomplete coverage")
)

// UnknownCardError lists every requested name with no catalog match.
type UnknownCardError struct {
	Names []string
}

func (e *UnknownCardError) Error() string {
	return fmt.Sprintf("unknown card(s): %s", strings.Join(e.Names, ", "))
}

func (e *UnknownCardError) Is(target error) bool {
	return target == ErrUnknownCard
}

// IncompleteCoverageError lists resolved cards with no owned copy anywhere.
type IncompleteCoverageError struct {
	Names []string
}

func (e *IncompleteCoverageError) Error() string {
	return fmt.Sprintf("no owned copies of: %s", strings.Join(e.Names, ", "))
}

func (e *IncompleteCoverageError) Is(target error) bool {
	return target == ErrIncompleteCoverage
}
