package advlink

import (
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(clamp x :lower 0)`,
			expect: `(clamp x "__kw_lower" 0)`,
		},
		{
			name:   "multiple keywords",
			input:  `(clamp x :lower 0 :upper 1)`,
			expect: `(clamp x "__kw_lower" 0 "__kw_upper" 1)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def aspect-ratio 8)`,
			expect: `(def aspect_ratio 8)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:tip-chord`,
			expect: `"__kw_tip-chord"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Math builtins
// ---------------------------------------------------------------------------

func evalOne(t *testing.T, source string, inputs ...Binding) float64 {
	t.Helper()
	out, evalErrs, err := NewEngine(0).Evaluate(source, inputs, []string{"y"})
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	return out["y"]
}

func TestMathBuiltins(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   float64
	}{
		{"sqrt", `(def y (sqrt 16.0))`, 4},
		{"sqrt of int", `(def y (sqrt 9))`, 3},
		{"abs", `(def y (abs -2.5))`, 2.5},
		{"pow", `(def y (pow 2.0 10.0))`, 1024},
		{"hypot", `(def y (hypot 3.0 4.0))`, 5},
		{"pi", `(def y (pi))`, math.Pi},
		{"deg", `(def y (deg (pi)))`, 180},
		{"rad", `(def y (rad 180.0))`, math.Pi},
		{"min varargs", `(def y (min 3.0 1.0 2.0))`, 1},
		{"max array", `(def y (max [3.0 7.0 2.0]))`, 7},
		{"sum", `(def y (sum 1 2 3))`, 6},
		{"mean", `(def y (mean [2.0 4.0]))`, 3},
		{"clamp upper", `(def y (clamp 5.0 :lower 0 :upper 1))`, 1},
		{"clamp lower", `(def y (clamp -5.0 :lower 0))`, 0},
		{"clamp inside", `(def y (clamp 0.5 :lower 0 :upper 1))`, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalOne(t, tt.source)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("%s = %v, want %v", tt.source, got, tt.want)
			}
		})
	}
}

func TestBuiltinsWithInputs(t *testing.T) {
	got := evalOne(t, `(def y (* span (cos (rad sweep))))`,
		Binding{Name: "span", Value: 10}, Binding{Name: "sweep", Value: 60})
	if math.Abs(got-5) > 1e-12 {
		t.Errorf("projected span = %v, want 5", got)
	}
}

func TestBuiltinArityErrors(t *testing.T) {
	for _, src := range []string{
		`(def y (sqrt 1.0 2.0))`,
		`(def y (pow 2.0))`,
		`(def y (min))`,
		`(def y (clamp))`,
		`(def y (sqrt "four"))`,
	} {
		_, evalErrs, err := NewEngine(0).Evaluate(src, nil, []string{"y"})
		if err != nil {
			t.Fatalf("%s: expected non-fatal eval error, got fatal: %v", src, err)
		}
		if len(evalErrs) == 0 {
			t.Errorf("%s: expected an eval error", src)
		}
	}
}
