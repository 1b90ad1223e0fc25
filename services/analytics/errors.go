package analytics

import (
	"errors"
	"fmt"
)

// ErrStaleGeneration is returned when a newer request for the same dashboard
// started before this one finished.
var ErrStaleGeneration = errors.New("superseded by a newer request")

// ContractViolation reports a call the caller should never have made.
type ContractViolation struct {
	Op     string
	Reason string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func NewContractViolation(op, reason string) error {
	return &ContractViolation{Op: op, Reason: reason}
}

// DataFetchError wraps a failed read of one dashboard source.
type DataFetchError struct {
	Source string
	Err    error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Source, e.Err)
}

func (e *DataFetchError) Unwrap() error {
	return e.Err
}

// FetchErrors collects the per-source failures of one fan-out.
type FetchErrors []*DataFetchError

func (fe FetchErrors) Error() string {
	if len(fe) == 1 {
		return fe[0].Error()
	}
	return fmt.Sprintf("%d sources failed, first: %v", len(fe), fe[0])
}

// Failed reports whether the named source failed.
func (fe FetchErrors) Failed(source string) bool {
	for _, e := range fe {
		if e.Source == source {
			return true
		}
	}
	return false
}
