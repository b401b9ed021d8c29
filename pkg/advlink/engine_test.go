package advlink

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEvaluateEmptyString(t *testing.T) {
	eng := NewEngine(0)

	out, evalErrs, err := eng.Evaluate("", nil, nil)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if out == nil {
		t.Fatal("expected non-nil outputs")
	}
	if len(out) != 0 {
		t.Errorf("expected no outputs, got %v", out)
	}
}

func TestEvaluateWhitespaceOnly(t *testing.T) {
	eng := NewEngine(0)

	out, evalErrs, err := eng.Evaluate("   \n\t  \n  ", nil, nil)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if out == nil {
		t.Fatal("expected non-nil outputs")
	}
}

func TestEvaluateValidExpression(t *testing.T) {
	eng := NewEngine(0)

	out, evalErrs, err := eng.Evaluate("(+ 1 2)", nil, nil)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if len(out) != 0 {
		t.Errorf("expected no outputs, got %v", out)
	}
}

func TestEvaluateInputsAndOutputs(t *testing.T) {
	eng := NewEngine(0)

	source := `
(def area (* span chord))
(def half (/ span 2.0))
`
	inputs := []Binding{{Name: "span", Value: 10}, {Name: "chord", Value: 2.5}}
	out, evalErrs, err := eng.Evaluate(source, inputs, []string{"area", "half"})
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if out["area"] != 25 {
		t.Errorf("area = %v, want 25", out["area"])
	}
	if out["half"] != 5 {
		t.Errorf("half = %v, want 5", out["half"])
	}
}

func TestEvaluateIntegerOutput(t *testing.T) {
	eng := NewEngine(0)

	out, evalErrs, err := eng.Evaluate("(def n 7)", nil, []string{"n"})
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if out["n"] != 7 {
		t.Errorf("n = %v, want 7", out["n"])
	}
}

func TestEvaluateMissingOutput(t *testing.T) {
	eng := NewEngine(0)

	out, evalErrs, err := eng.Evaluate("(def a 1.0)", nil, []string{"b"})
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if out != nil {
		t.Fatal("expected nil outputs when an output is undefined")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected an eval error for the undefined output")
	}
}

func TestEvaluateNonNumericOutput(t *testing.T) {
	eng := NewEngine(0)

	_, evalErrs, err := eng.Evaluate(`(def s "wing")`, nil, []string{"s"})
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) != 1 {
		t.Fatalf("expected one eval error, got %v", evalErrs)
	}
	if !strings.Contains(evalErrs[0].Message, ErrBadOutput.Error()) {
		t.Errorf("message = %q, want containing %q", evalErrs[0].Message, ErrBadOutput)
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine(0)

	out, evalErrs, err := eng.Evaluate("(+ 1 2", nil, nil)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if out != nil {
		t.Fatal("expected nil outputs on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine(0)

	out, evalErrs, err := eng.Evaluate("(+ 1 undefined-symbol)", nil, nil)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if out != nil {
		t.Fatal("expected nil outputs on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Message: "no location"}
	if strings.Contains(e2.Error(), "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", e2.Error())
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine(0)

	for i := 0; i < 5; i++ {
		out, evalErrs, err := eng.Evaluate("(def y (* x 3.0))", []Binding{{Name: "x", Value: 2}}, []string{"y"})
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		if out["y"] != 6 {
			t.Errorf("iteration %d: y = %v, want 6", i, out["y"])
		}
	}
}

func TestEvaluateTimeout(t *testing.T) {
	// The plumbing is tested directly with a channel that never sends.
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult)

	_, _, err := waitWithTimeout(ch, 1, &mu, &gen, 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got: %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2)

	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	_, _, err := waitWithTimeout(ch, 1, &mu, &gen, time.Second)
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got: %v", err)
	}
}

func TestNewEngineDefaultTimeout(t *testing.T) {
	if got := NewEngine(0).Timeout(); got != EvalTimeout {
		t.Errorf("Timeout() = %v, want %v", got, EvalTimeout)
	}
	if got := NewEngine(time.Second).Timeout(); got != time.Second {
		t.Errorf("Timeout() = %v, want 1s", got)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "line format lowercase",
			msg:      "error on line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
		{
			name:     "short line format",
			msg:      "line 3: bad form",
			wantLine: 3,
			wantMsg:  "bad form",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

func TestShiftLines(t *testing.T) {
	source := "(def a 1.0)\n(def b 2.0)\n(def c 3.0)"
	tests := []struct {
		programLine int
		want        int
	}{
		{1, 0}, // prelude
		{2, 1},
		{4, 3},
		{6, 0}, // output epilogue
		{0, 0},
	}
	for _, tt := range tests {
		got := shiftLines([]EvalError{{Line: tt.programLine}}, source)[0].Line
		if got != tt.want {
			t.Errorf("shiftLines(%d) = %d, want %d", tt.programLine, got, tt.want)
		}
	}
}

func TestBuildPrelude(t *testing.T) {
	got := buildPrelude([]Binding{{Name: "a", Value: 3}, {Name: "b", Value: -0.25}})
	want := "(def a 3.0) (def b -0.25) \n"
	if got != want {
		t.Errorf("buildPrelude = %q, want %q", got, want)
	}
	if strings.Count(got, "\n") != 1 {
		t.Errorf("prelude must be a single line, got %q", got)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		0:       "0.0",
		10:      "10.0",
		1e6:     "1000000.0",
		-2.5:    "-2.5",
		math.Pi: "3.141592653589793",
	}
	for in, want := range tests {
		if got := formatNumber(in); got != want {
			t.Errorf("formatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestValidName(t *testing.T) {
	tests := map[string]bool{
		"span":    true,
		"_tmp":    true,
		"chord2":  true,
		"2chord":  false,
		"a-b":     false,
		"":        false,
		"def":     false,
		"sqrt":    false,
		"min":     false,
		"pi":      false,
		"clamp":   false,
		"wing_ar": true,
	}
	for name, want := range tests {
		if got := ValidName(name); got != want {
			t.Errorf("ValidName(%q) = %v, want %v", name, got, want)
		}
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
