package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Pipeline stages named in DataError.
const (
	StageLoad      = "load"
	StageReturns   = "returns"
	StageAlign     = "align"
	StageWindow    = "window"
	StageWinsorize = "winsorize"
	StageSchema    = "schema"
)

// DataError reports input data that cannot produce a result. It is fatal for a run.
type DataError struct {
	Stage  string
	Asset  AssetID // empty when the failure is not asset specific
	Reason string
}

func (e *DataError) Error() string {
	if e.Asset != "" {
		return fmt.Sprintf("data error in %s for %s: %s", e.Stage, e.Asset, e.Reason)
	}
	return fmt.Sprintf("data error in %s: %s", e.Stage, e.Reason)
}

// SolverAttempt records one failed solver invocation.
type SolverAttempt struct {
	Solver string
	Err    error
}

// SolverError is returned when every configured QP solver failed.
type SolverError struct {
	Attempts []SolverAttempt
}

func (e *SolverError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Solver, a.Err))
	}
	return "static weight solve failed (" + strings.Join(parts, "; ") + ")"
}

// Unwrap exposes the individual attempt errors to errors.Is/As.
func (e *SolverError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// InsufficientDataError is returned when too few valid observations remain to compute metrics.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: have %d valid observations, need at least %d", e.Have, e.Need)
}

// IsDataError reports whether err wraps a *DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}
