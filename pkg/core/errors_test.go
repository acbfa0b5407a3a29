package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestExecutionErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("socket closed")
	err := ErrDriverTransport.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
	if err.Error() != "driver communication failed: socket closed" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	// Predefined error must not be mutated.
	if ErrDriverTransport.Cause != nil {
		t.Error("WithCause mutated the predefined error")
	}
}

func TestExecutionErrorDetails(t *testing.T) {
	err := ErrTargetNotFound.WithDetails(map[string]interface{}{"target_id": 7})
	err = err.WithDetails(map[string]interface{}{"intent": "tap"})

	if err.Details["target_id"] != 7 || err.Details["intent"] != "tap" {
		t.Errorf("details not merged: %v", err.Details)
	}
	if len(ErrTargetNotFound.Details) != 0 {
		t.Error("WithDetails mutated the predefined error")
	}
}

func TestResultRecording(t *testing.T) {
	r := &Result{}
	r.Record("tap_by_key", fmt.Errorf("no such element"))
	r.Record("tap_by_text", fmt.Errorf("stale reference"))
	r.Fail(ErrExhausted, "all strategies failed")

	if r.Success {
		t.Error("failed result marked successful")
	}
	if len(r.Diagnostics) != 2 {
		t.Fatalf("diagnostics = %d, want 2", len(r.Diagnostics))
	}
	summary := r.DiagnosticSummary()
	if summary == "" {
		t.Error("expected non-empty summary")
	}

	r2 := &Result{}
	r2.Succeed("tap_by_key", "tapped")
	if !r2.Success || r2.Strategy != "tap_by_key" {
		t.Errorf("unexpected success result: %+v", r2)
	}
}
