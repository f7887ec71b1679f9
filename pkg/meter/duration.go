package meter

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// significantDigits is the precision of every rendered duration.
const significantDigits = 2

// Stopwatch holds a monotonic time reference taken by Start.
type Stopwatch struct {
	start time.Time
}

// Start captures the current instant. time.Now carries a monotonic reading, so
// Elapsed is not affected by wall-clock adjustments.
func Start() Stopwatch {
	return Stopwatch{start: time.Now()}
}

// Elapsed returns the time since Start as a DurationString, e.g. "12ms".
func (s Stopwatch) Elapsed() string {
	return FormatMilliseconds(time.Since(s.start))
}

// FormatMilliseconds renders d in milliseconds rounded to two significant
// digits followed by "ms". Values that need no exponent keep fixed notation:
// 0.01234ms -> "0.012ms", 5ms -> "5.0ms", 1234ms -> "1200ms".
func FormatMilliseconds(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)

	return formatSignificant(ms, significantDigits) + "ms"
}

func formatSignificant(v float64, digits int) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(0, 'f', digits-1, 64)
	}

	// the exponent form does the rounding, including carries like 9.96 -> 1.0e+01
	sci := strconv.FormatFloat(v, 'e', digits-1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil {
		return sci
	}
	rounded, err := strconv.ParseFloat(sci, 64)
	if err != nil {
		return sci
	}

	return strconv.FormatFloat(rounded, 'f', max(digits-1-exp, 0), 64)
}
