package filters

import "cmp"

// Range is a (min, max) pair kept ordered on every mutation.
//
// Out-of-order input is clamped, never rejected: SetMin caps the requested
// value at the current Max, SetMax raises it to the current Min. When the
// range was built with NewRange, values are also clamped into its bounds.
type Range[T cmp.Ordered] struct {
	Min T `json:"min"`
	Max T `json:"max"`

	lo, hi  T
	bounded bool
}

// NewRange returns the full range [lo, hi]; lo and hi also become the bounds
// every later mutation is clamped into. This full range is the filter's
// default and counts as inactive.
func NewRange[T cmp.Ordered](lo, hi T) Range[T] {
	if hi < lo {
		hi = lo
	}
	return Range[T]{Min: lo, Max: hi, lo: lo, hi: hi, bounded: true}
}

// Span returns an unbounded range, raising hi to lo if needed.
func Span[T cmp.Ordered](lo, hi T) Range[T] {
	return Range[T]{Min: lo, Max: lo}.SetMax(hi)
}

func (r Range[T]) clamp(v T) T {
	if !r.bounded {
		return v
	}
	return max(r.lo, min(v, r.hi))
}

// SetMin returns a copy with Min = min(v, Max). Max is left untouched.
func (r Range[T]) SetMin(v T) Range[T] {
	r.Min = min(r.clamp(v), r.Max)
	return r
}

// SetMax returns a copy with Max = max(v, Min). Min is left untouched.
func (r Range[T]) SetMax(v T) Range[T] {
	r.Max = max(r.clamp(v), r.Min)
	return r
}

// Between applies SetMin then SetMax, the order two independent UI controls
// fire in when both handles move.
func (r Range[T]) Between(lo, hi T) Range[T] {
	return r.SetMin(lo).SetMax(hi)
}

// Bounds reports the clamping bounds; ok is false for an unbounded range.
func (r Range[T]) Bounds() (lo, hi T, ok bool) {
	return r.lo, r.hi, r.bounded
}

// IsDefault is true when the range spans its full bounds.
func (r Range[T]) IsDefault() bool {
	return r.bounded && r.Min == r.lo && r.Max == r.hi
}

func (r Range[T]) Contains(v T) bool {
	return v >= r.Min && v <= r.Max
}

// Default ranges in canonical units.
func AgeRange() Range[int]      { return NewRange(18, 99) }
func HeightCmRange() Range[int] { return NewRange(120, 220) }
func WeightKgRange() Range[int] { return NewRange(35, 200) }
