package filter

import (
	"errors"
	"fmt"
)

// MaxValuesPerFilter is the maximum number of alternatives in one filter.
const MaxValuesPerFilter = 64

// Kind is the predicate type of a Filter.
type Kind uint8

const (
	// KindTerms matches a field equal to one of the values.
	KindTerms Kind = iota + 1
	// KindPrefix matches a field starting with one of the values.
	KindPrefix
	// KindRange matches a numeric field inside a range.
	KindRange
)

func (k Kind) String() string {
	switch k {
	case KindTerms:
		return "terms"
	case KindPrefix:
		return "prefix"
	case KindRange:
		return "range"
	default:
		return "unknown"
	}
}

// Filter is a single restriction on one field. Alternatives inside a filter
// are OR-ed; filters of a query are AND-ed.
type Filter struct {
	field  string
	kind   Kind
	values []string
	rng    *Range
}

// Terms creates a filter matching field = v for any v in values.
func Terms(field string, values ...string) (Filter, error) {
	return newValues(field, KindTerms, values)
}

// Prefix creates a filter matching fields that start with any of prefixes.
func Prefix(field string, prefixes ...string) (Filter, error) {
	return newValues(field, KindPrefix, prefixes)
}

// NewRange creates a numeric range filter.
func NewRange(field string, r Range) (Filter, error) {
	if field == "" {
		return Filter{}, fmt.Errorf("filter field is required")
	}
	return Filter{field: field, kind: KindRange, rng: &r}, nil
}

func newValues(field string, kind Kind, values []string) (Filter, error) {
	if field == "" {
		return Filter{}, fmt.Errorf("filter field is required")
	}
	if len(values) == 0 {
		return Filter{}, fmt.Errorf("%s filter on %q needs at least one value", kind, field)
	}
	if len(values) > MaxValuesPerFilter {
		return Filter{}, fmt.Errorf("too many values for %q (max %d)", field, MaxValuesPerFilter)
	}
	for _, v := range values {
		if v == "" {
			return Filter{}, fmt.Errorf("empty value in %s filter on %q", kind, field)
		}
	}
	vs := make([]string, len(values))
	copy(vs, values)
	return Filter{field: field, kind: kind, values: vs}, nil
}

// Field returns the filtered field name.
func (f Filter) Field() string { return f.field }

// Kind returns the predicate type.
func (f Filter) Kind() Kind { return f.kind }

// Values returns the alternatives of a terms or prefix filter.
func (f Filter) Values() []string { return f.values }

// Range returns the bounds of a range filter.
func (f Filter) Range() *Range { return f.rng }

// IsZero reports whether f was never initialized.
func (f Filter) IsZero() bool { return f.kind == 0 }

// Bound is one end of a Range.
type Bound struct {
	Value     float64
	Inclusive bool
}

// Range is a numeric interval. A nil end is unbounded; at least one end is set.
type Range struct {
	lower *Bound
	upper *Bound
}

// NewInterval creates a Range from explicit bounds.
func NewInterval(lower, upper *Bound) (Range, error) {
	if lower == nil && upper == nil {
		return Range{}, errors.New("at least one range bound is required")
	}
	if lower != nil && upper != nil {
		switch {
		case lower.Value > upper.Value:
			return Range{}, fmt.Errorf("range lower bound %g exceeds upper bound %g", lower.Value, upper.Value)
		case lower.Value == upper.Value && !(lower.Inclusive && upper.Inclusive):
			return Range{}, fmt.Errorf("range (%g, %g) is empty", lower.Value, upper.Value)
		}
	}
	r := Range{}
	if lower != nil {
		l := *lower
		r.lower = &l
	}
	if upper != nil {
		u := *upper
		r.upper = &u
	}
	return r, nil
}

// Between creates the inclusive range [from, to]. A nil end is open.
func Between(from, to *float64) (Range, error) {
	return NewInterval(inclusive(from), inclusive(to))
}

// Above creates the range (v, +inf).
func Above(v float64) Range {
	return Range{lower: &Bound{Value: v}}
}

// Below creates the range (-inf, v).
func Below(v float64) Range {
	return Range{upper: &Bound{Value: v}}
}

func inclusive(v *float64) *Bound {
	if v == nil {
		return nil
	}
	return &Bound{Value: *v, Inclusive: true}
}

// Lower returns the lower end and whether it is inclusive. The value is nil
// when the range is open below.
func (r Range) Lower() (*float64, bool) {
	if r.lower == nil {
		return nil, true
	}
	v := r.lower.Value
	return &v, r.lower.Inclusive
}

// Upper returns the upper end and whether it is inclusive. The value is nil
// when the range is open above.
func (r Range) Upper() (*float64, bool) {
	if r.upper == nil {
		return nil, true
	}
	v := r.upper.Value
	return &v, r.upper.Inclusive
}

// Contains reports whether v lies inside r.
func (r Range) Contains(v float64) bool {
	if l := r.lower; l != nil && (v < l.Value || (v == l.Value && !l.Inclusive)) {
		return false
	}
	if u := r.upper; u != nil && (v > u.Value || (v == u.Value && !u.Inclusive)) {
		return false
	}
	return true
}
