package opt

import "math"

// Number is an Option over float64, the only numeric type the engine needs.
type Number = Option[float64]

// combine applies op when both sides are present. When only one side is
// present it is returned through single, which lets Sub negate a lone
// right-hand operand. Absence is an identity element, never zero.
func combine(a, b Number, op func(x, y float64) float64, single func(v float64, left bool) float64) Number {
	av, aok := a.Get()
	bv, bok := b.Get()
	switch {
	case aok && bok:
		return Some(op(av, bv))
	case aok:
		return Some(single(av, true))
	case bok:
		return Some(single(bv, false))
	default:
		return None[float64]()
	}
}

func keep(v float64, _ bool) float64 { return v }

// Add returns a+b, or whichever operand is present.
func Add(a, b Number) Number {
	return combine(a, b, func(x, y float64) float64 { return x + y }, keep)
}

// Sub returns a-b. A lone a is returned as is; a lone b is negated.
func Sub(a, b Number) Number {
	return combine(a, b, func(x, y float64) float64 { return x - y }, func(v float64, left bool) float64 {
		if left {
			return v
		}
		return -v
	})
}

// Min returns the smaller operand, or whichever is present.
func Min(a, b Number) Number {
	return combine(a, b, math.Min, keep)
}

// Max returns the larger operand, or whichever is present.
func Max(a, b Number) Number {
	return combine(a, b, math.Max, keep)
}

// Sum folds Add over values. Sum() is None.
func Sum(values ...Number) Number {
	total := None[float64]()
	for _, v := range values {
		total = Add(total, v)
	}
	return total
}

// Scale multiplies a present value by k.
func Scale(a Number, k float64) Number {
	return Map(a, func(v float64) float64 { return v * k })
}

// Less orders numbers with absence below every present value. It is the
// ordering used when sorting by profit.
func Less(a, b Number) bool {
	return a.UnwrapOr(math.Inf(-1)) < b.UnwrapOr(math.Inf(-1))
}
