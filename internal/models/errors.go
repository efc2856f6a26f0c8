package models

import "errors"

var (
	// ErrInfeasibleModel means no roster satisfies the constraints (budget,
	// formation, team cap, forced inclusions and exclusions).
	ErrInfeasibleModel = errors.New("infeasible model")
	// ErrDegenerateInput marks empty or all-zero inputs that cannot be normalized.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrInvalidTransferRequest is returned for malformed transfer requests.
	ErrInvalidTransferRequest = errors.New("invalid transfer request")
	// ErrSolverLimit means the solver stopped on a deadline or node limit before proving optimality.
	ErrSolverLimit           = errors.New("solver limit reached")
	ErrDuplicatePlayer       = errors.New("duplicate player id")
	ErrUnknownPlayerPosition = errors.New("unknown player position")
)
