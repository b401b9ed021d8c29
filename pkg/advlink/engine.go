// Package advlink evaluates scripted parameter links. An advanced link
// binds named input variables to parms, runs a small Lisp script in a
// fresh zygomys sandbox and writes the named output variables back to
// their parms. Every input change re-runs the script.
package advlink

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
}

// NewEngine creates an Engine with the given evaluation timeout. A
// non-positive timeout selects EvalTimeout.
func NewEngine(timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = EvalTimeout
	}
	return &Engine{timeout: timeout}
}

// Timeout returns the evaluation limit.
func (e *Engine) Timeout() time.Duration { return e.timeout }

// Evaluate runs source with inputs bound as variables and returns the
// values of the named outputs. Each call creates a fresh zygomys sandbox.
//
// Return semantics:
//   - On success: returns outputs + nil errors + nil error
//   - On parse/eval failure: returns nil outputs + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string, inputs []Binding, outputs []string) (map[string]float64, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		out, evalErrs, err := e.evaluate(source, inputs, outputs)
		ch <- evalResult{outputs: out, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
}

// Binding is one input variable.
type Binding struct {
	Name  string
	Value float64
}

// ErrBadOutput is reported when an output variable is not a number.
var ErrBadOutput = errors.New("output is not a number")

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string, inputs []Binding, outputs []string) (map[string]float64, []EvalError, error) {
	if strings.TrimSpace(source) == "" && len(outputs) == 0 {
		return map[string]float64{}, nil, nil
	}

	prelude := buildPrelude(inputs)
	program := prelude + preprocessSource(source)
	if len(outputs) > 0 {
		program += "\n[" + strings.Join(outputs, " ") + "]\n"
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env)

	err := env.LoadString(program)
	if err != nil {
		return nil, shiftLines(parseZygomysError(err), source), nil
	}

	res, err := env.Run()
	if err != nil {
		return nil, shiftLines(parseZygomysError(err), source), nil
	}

	out := make(map[string]float64, len(outputs))
	if len(outputs) == 0 {
		return out, nil, nil
	}
	arr, ok := res.(*zygo.SexpArray)
	if !ok || len(arr.Val) != len(outputs) {
		return nil, []EvalError{{Message: "script did not produce its outputs"}}, nil
	}
	var evalErrs []EvalError
	for i, name := range outputs {
		v, err := toFloat64(arr.Val[i])
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			evalErrs = append(evalErrs, EvalError{Message: fmt.Sprintf("%s: %v", name, ErrBadOutput)})
			continue
		}
		out[name] = v
	}
	if len(evalErrs) > 0 {
		return nil, evalErrs, nil
	}
	return out, nil, nil
}

// buildPrelude defines every input on a single line so that script line
// numbers shift by exactly one.
func buildPrelude(inputs []Binding) string {
	var b strings.Builder
	for _, in := range inputs {
		fmt.Fprintf(&b, "(def %s %s) ", in.Name, formatNumber(in.Value))
	}
	b.WriteString("\n")
	return b.String()
}

// formatNumber always writes a float literal, so that inputs never turn
// into zygomys integers.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// shiftLines maps program line numbers back onto the user's source.
// Errors located in the prelude or the output epilogue lose their line.
func shiftLines(errs []EvalError, source string) []EvalError {
	last := strings.Count(source, "\n") + 1
	for i := range errs {
		line := errs[i].Line - 1
		if line < 1 || line > last {
			line = 0
		}
		errs[i].Line = line
	}
	return errs
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}

	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether name can be bound as a script variable.
func ValidName(name string) bool {
	if !identPattern.MatchString(name) {
		return false
	}
	if _, ok := reservedNames[name]; ok {
		return false
	}
	_, u := unary[name]
	_, b := binary[name]
	_, r := reducers[name]
	return !u && !b && !r && name != "pi" && name != "clamp"
}

var reservedNames = map[string]struct{}{
	"def": {}, "set": {}, "defn": {}, "fn": {}, "if": {}, "cond": {}, "let": {},
	"for": {}, "and": {}, "or": {}, "not": {}, "true": {}, "false": {}, "nil": {},
	"quote": {}, "begin": {}, "return": {}, "break": {}, "continue": {},
}
