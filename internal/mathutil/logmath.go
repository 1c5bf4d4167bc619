package mathutil

import "math"

// LogZero represents log(0), used as negative infinity in log-domain arithmetic.
// Values at or below it are treated as "no probability mass".
const LogZero = -math.MaxFloat64

// LogSumExp returns log(exp(a) + exp(b)) in a numerically stable way.
// If either operand is LogZero the other is returned unchanged, so the
// sentinel never reaches math.Exp.
func LogSumExp(a, b float64) float64 {
	if a <= LogZero {
		return b
	}
	if b <= LogZero {
		return a
	}
	if a > b {
		d := b - a
		if d < -36.0 {
			return a
		}
		return a + math.Log1p(math.Exp(d))
	}
	d := a - b
	if d < -36.0 {
		return b
	}
	return b + math.Log1p(math.Exp(d))
}

// SafeLog returns log(p), mapping p <= 0 to LogZero instead of -Inf.
func SafeLog(p float64) float64 {
	if p <= 0 {
		return LogZero
	}
	return math.Log(p)
}
