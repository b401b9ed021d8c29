package parm

import "math"

// IntParm commits whole numbers. With SetMultShift it further restricts
// commits to values of the form shift + n*mult.
type IntParm struct {
	Parm
	mult  int
	shift int
}

// Init binds the parm and installs the rounding rule.
func (p *IntParm) Init(name, group string, owner Container, val, lower, upper int) {
	p.mult = 1
	p.rule = p.snap
	p.Parm.Init(name, group, owner, float64(val), float64(lower), float64(upper))
	p.Parm.load(p.val)
}

// SetMultShift restricts the parm to the grid shift + n*mult. The current
// value is moved onto the grid silently.
func (p *IntParm) SetMultShift(mult, shift int) {
	if mult < 1 {
		mult = 1
	}
	p.mult, p.shift = mult, shift
	p.Parm.load(p.val)
}

// GetInt returns the value as an int.
func (p *IntParm) GetInt() int {
	return int(math.Round(p.val))
}

func (p *IntParm) snap(v float64) (float64, bool) {
	m, s := float64(p.mult), float64(p.shift)
	n := math.Round((v - s) / m)
	out := s + n*m
	// Step back onto the grid inside the bounds.
	for out < p.lower && out+m <= p.upper {
		out += m
	}
	for out > p.upper && out-m >= p.lower {
		out -= m
	}
	if out < p.lower || out > p.upper {
		return p.val, false
	}
	return out, true
}

// BoolParm commits exactly 0 or 1.
type BoolParm struct {
	Parm
}

// Init binds the parm with bounds [0, 1].
func (p *BoolParm) Init(name, group string, owner Container, val bool) {
	p.rule = func(v float64) (float64, bool) {
		if v >= 0.5 {
			return 1, true
		}
		return 0, true
	}
	p.Parm.Init(name, group, owner, b2f(val), 0, 1)
}

// GetBool returns the value as a bool.
func (p *BoolParm) GetBool() bool {
	return p.val >= 0.5
}

// SetBool commits b as a programmatic edit.
func (p *BoolParm) SetBool(b bool) bool {
	return p.Set(b2f(b)) >= 0.5
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// FractionParm stores a ratio against a separately tracked reference value.
// Result is ratio * reference.
type FractionParm struct {
	Parm
	ref float64
}

// Init binds the parm. The reference defaults to 1.
func (p *FractionParm) Init(name, group string, owner Container, val, lower, upper float64) {
	p.ref = 1
	p.Parm.Init(name, group, owner, val, lower, upper)
}

// SetRefVal changes the reference without notification.
func (p *FractionParm) SetRefVal(ref float64) { p.ref = ref }

// RefVal returns the reference.
func (p *FractionParm) RefVal() float64 { return p.ref }

// Result returns value * reference.
func (p *FractionParm) Result() float64 { return p.val * p.ref }

// SetResult commits the ratio that yields r against the current reference.
// It returns the committed result, which may differ from r after clamping.
func (p *FractionParm) SetResult(r float64) float64 {
	if p.ref == 0 {
		return p.Result()
	}
	p.Set(r / p.ref)
	return p.Result()
}

// NotEqParm keeps its value at least tol away from another parm's value.
type NotEqParm struct {
	Parm
	otherID ID
	tol     float64
}

// Init binds the parm.
func (p *NotEqParm) Init(name, group string, owner Container, val, lower, upper float64) {
	p.rule = p.exclude
	p.Parm.Init(name, group, owner, val, lower, upper)
}

// SetOther names the parm whose value is excluded and the exclusion
// half-width.
func (p *NotEqParm) SetOther(id ID, tol float64) {
	p.otherID = id
	p.tol = math.Abs(tol)
}

// OtherID returns the excluded parm's id.
func (p *NotEqParm) OtherID() ID { return p.otherID }

func (p *NotEqParm) exclude(v float64) (float64, bool) {
	if p.otherID == "" || p.owner == nil {
		return v, true
	}
	other := p.owner.Registry().Parm(p.otherID)
	if other == nil {
		return v, true
	}
	o := other.Get()
	if math.Abs(v-o) >= p.tol {
		return v, true
	}
	below, above := o-p.tol, o+p.tol
	first, second := below, above
	if v > o {
		first, second = above, below
	}
	if first >= p.lower && first <= p.upper {
		return first, true
	}
	if second >= p.lower && second <= p.upper {
		return second, true
	}
	return p.val, false
}
