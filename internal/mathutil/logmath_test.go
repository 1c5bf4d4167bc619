package mathutil

import (
	"math"
	"testing"
)

func TestLogSumExp(t *testing.T) {
	// log(exp(log(2)) + exp(log(3))) = log(5)
	a := math.Log(2)
	b := math.Log(3)
	got := LogSumExp(a, b)
	want := math.Log(5)
	if math.Abs(got-want) > 1e-10 {
		t.Errorf("LogSumExp(log(2), log(3)) = %f, want %f", got, want)
	}
	if got2 := LogSumExp(b, a); math.Abs(got2-got) > 1e-12 {
		t.Errorf("LogSumExp not symmetric: %f vs %f", got, got2)
	}
}

func TestLogSumExpWithLogZero(t *testing.T) {
	a := math.Log(5)
	if got := LogSumExp(LogZero, a); got != a {
		t.Errorf("LogSumExp(LogZero, %f) = %f, want %f", a, got, a)
	}
	if got := LogSumExp(a, LogZero); got != a {
		t.Errorf("LogSumExp(%f, LogZero) = %f, want %f", a, got, a)
	}
	if got := LogSumExp(LogZero, LogZero); got != LogZero {
		t.Errorf("LogSumExp(LogZero, LogZero) = %g, want LogZero", got)
	}
}

func TestLogSumExpLargeGap(t *testing.T) {
	// The smaller operand is below float64 precision and must not perturb the result.
	if got := LogSumExp(0, -100); got != 0 {
		t.Errorf("LogSumExp(0, -100) = %g, want 0", got)
	}
}

func TestSafeLog(t *testing.T) {
	if got := SafeLog(0); got != LogZero {
		t.Errorf("SafeLog(0) = %g, want LogZero", got)
	}
	if got := SafeLog(-1); got != LogZero {
		t.Errorf("SafeLog(-1) = %g, want LogZero", got)
	}
	if got := SafeLog(math.E); math.Abs(got-1) > 1e-12 {
		t.Errorf("SafeLog(e) = %f, want 1", got)
	}
}
