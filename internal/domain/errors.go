package domain

import "errors"

// Error taxonomy of the backtest core. Submission-time errors surface
// synchronously to the caller; in-flight errors are captured on the task and
// observed via GetTask or the notifier, never by blocking the caller.
var (
	// ErrInvalidConfig marks a backtest config rejected at submission time.
	ErrInvalidConfig = errors.New("invalid backtest config")

	// ErrDuplicateTask is returned when a non-terminal task already exists
	// for the same backtest id.
	ErrDuplicateTask = errors.New("duplicate backtest task")

	// ErrTaskNotFound is returned by lookups and control actions for an
	// unknown task id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNoData means the market data provider has no bar for a symbol on a
	// given date. Recovered locally by the engine, never fatal.
	ErrNoData = errors.New("no bar data")

	// ErrExecutionRejected marks a signal that cannot be filled without
	// overdrawing cash. The signal is dropped, the run continues.
	ErrExecutionRejected = errors.New("execution rejected: insufficient cash")

	// ErrCancelled is the normal terminal outcome of a cancelled run. Not a
	// failure; it never triggers the retry policy.
	ErrCancelled = errors.New("backtest cancelled")

	// ErrStrategyNotFound means the strategy reference could not be resolved
	// to a signal generator.
	ErrStrategyNotFound = errors.New("strategy not found")

	// ErrInvalidAction is returned for a control action that is not valid in
	// the task's current state.
	ErrInvalidAction = errors.New("invalid task action")
)
