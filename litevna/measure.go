package litevna

import (
	"math"
	"math/cmplx"
)

// SWRMax is the value SWR saturates at for reflections close to total.
const SWRMax = 100000

// SumSquare returns re² + im².
func SumSquare(v complex128) float64 {
	return real(v)*real(v) + imag(v)*imag(v)
}

// Linear returns the magnitude of v.
func Linear(v complex128) float64 {
	return math.Sqrt(SumSquare(v))
}

// LogMag returns the magnitude of v in dB, 0 for a zero magnitude.
func LogMag(v complex128) float64 {
	ss := SumSquare(v)
	if ss == 0 {
		return 0
	}

	return 10 * math.Log10(ss)
}

// Phase returns the angle of v in degrees.
func Phase(v complex128) float64 {
	return (180 / math.Pi) * cmplx.Phase(v)
}

// SWR returns the standing wave ratio of the reflection coefficient v,
// saturating at SWRMax once |v| exceeds (SWRMax-1)/(SWRMax+1).
func SWR(v complex128) float64 {
	x := Linear(v)
	if x > (SWRMax-1.0)/(SWRMax+1.0) {
		return SWRMax
	}

	return (1 + x) / (1 - x)
}
