package csvout

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders v the way the downstream notebooks expect floats in
// CSV: shortest round-trip digits at the source precision (bits is 32 or
// 64), always with a fractional part, scientific notation outside
// [1e-4, 1e16), and an empty cell for NaN.
func FormatFloat(v float64, bits int) string {
	if bits != 32 {
		bits = 64
	}
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(v, 'e', -1, bits)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return sci
	}

	s := strconv.FormatFloat(v, 'f', -1, bits)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
