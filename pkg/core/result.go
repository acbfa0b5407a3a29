package core

import (
	"fmt"
	"strings"
)

// Diagnostic records one failed strategy attempt.
type Diagnostic struct {
	Strategy string
	Err      error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %v", d.Strategy, d.Err)
}

// Result is the outcome of resolving one intent. Operations never
// return Go errors; failure lives here, with every attempted strategy
// recorded.
type Result struct {
	Success     bool
	Strategy    string // winning strategy, empty on failure
	Message     string
	Diagnostics []Diagnostic
	Err         *ExecutionError // set on failure
}

// Record appends a failed strategy attempt.
func (r *Result) Record(strategy string, err error) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Strategy: strategy, Err: err})
}

// Succeed marks the result successful with the winning strategy.
func (r *Result) Succeed(strategy, message string) {
	r.Success = true
	r.Strategy = strategy
	r.Message = message
}

// Fail marks the result failed without clearing diagnostics.
func (r *Result) Fail(err *ExecutionError, message string) {
	r.Success = false
	r.Err = err
	r.Message = message
}

// DiagnosticSummary renders every recorded attempt, one per line.
func (r *Result) DiagnosticSummary() string {
	if len(r.Diagnostics) == 0 {
		return ""
	}
	lines := make([]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		lines = append(lines, d.String())
	}
	return strings.Join(lines, "\n")
}
