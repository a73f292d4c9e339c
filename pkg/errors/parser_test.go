package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestEnhancedParseError(t *testing.T) {
	err := InvalidAmountError("/tmp/statement.csv", 7, "amount", "12,x")

	msg := err.Error()
	for _, want := range []string{"invalid amount", "statement.csv:7", "column 'amount'"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}

	if !HasCategory(err, CategoryValidation) {
		t.Error("parse errors should be validation errors")
	}
	if err.GetExitCode() != 3 {
		t.Errorf("exit code: got %d, want 3", err.GetExitCode())
	}

	var base *ReconcilerError
	if !stderrors.As(err, &base) || base.Code != CodeInvalidAmount {
		t.Errorf("expected errors.As to reach the ReconcilerError, got %v", base)
	}

	detail := err.GetDetailedError()
	for _, want := range []string{"Line: 7", "Value: '12,x'", "Examples:"} {
		if !strings.Contains(detail, want) {
			t.Errorf("detailed error missing %q:\n%s", want, detail)
		}
	}
}

func TestParseErrorCollector(t *testing.T) {
	tests := []struct {
		name      string
		maxErrors int
		add       int
		wantKept  int
		wantStop  bool
	}{
		{"unlimited", 0, 5, 5, false},
		{"stops at limit", 3, 5, 3, true},
		{"below limit", 10, 2, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewParseErrorCollector(tt.maxErrors)
			stopped := false
			for i := 0; i < tt.add; i++ {
				if !c.Add(EmptyValueError("s.csv", i+2, "amount")) {
					stopped = true
					break
				}
			}

			if len(c.GetErrors()) != tt.wantKept {
				t.Errorf("kept %d errors, want %d", len(c.GetErrors()), tt.wantKept)
			}
			if stopped != tt.wantStop {
				t.Errorf("stopped = %v, want %v", stopped, tt.wantStop)
			}
		})
	}
}

func TestParseErrorCollector_Err(t *testing.T) {
	c := NewParseErrorCollector(0)
	if c.Err() != nil {
		t.Fatal("empty collector should return nil")
	}

	first := InvalidDateError("s.csv", 2, "posted_at", "yesterday")
	c.Add(first)
	if c.Err() != error(first) {
		t.Errorf("single error should be returned as is")
	}

	c.Add(InvalidAmountError("s.csv", 3, "amount", "abc"))
	c.Add(InvalidAmountError("s.csv", 4, "amount", "def"))

	err := c.Err()
	if !strings.Contains(err.Error(), "3 rows failed to parse") {
		t.Errorf("unexpected summary: %v", err)
	}
	if !HasCategory(err, CategoryValidation) {
		t.Error("folded error should keep the validation category")
	}

	var parseErr *EnhancedParseError
	if !stderrors.As(err, &parseErr) || parseErr != first {
		t.Error("folded error should wrap the first row error")
	}

	counts := c.CountByCode()
	if counts[CodeInvalidAmount] != 2 || counts[CodeInvalidDate] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestFormatParseErrorsForUser(t *testing.T) {
	if got := FormatParseErrorsForUser(nil); got != "No parse errors" {
		t.Errorf("got %q", got)
	}

	var errs []*EnhancedParseError
	for i := 0; i < 5; i++ {
		errs = append(errs, EmptyValueError("s.csv", i+2, "amount"))
	}

	out := FormatParseErrorsForUser(errs)
	if !strings.Contains(out, "Found 5 parse errors") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "... and 2 more") {
		t.Errorf("missing truncation note:\n%s", out)
	}
}
