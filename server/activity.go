package geiger

import "math"

// ActivityRate estimates the observed activity from a pulse count and
// the elapsed seconds since the last reset, assuming pulse arrivals
// follow a Poisson process. The returned rate is pulses/second (Bq as
// seen by the tube) and rateErr is the standard error of that estimate,
// sqrt(N)/T. Zero elapsed time or a zero count yields 0, 0 so the
// caller never has to guard a division.
func ActivityRate(total int64, elapsed float64) (rate, rateErr float64) {
	if elapsed <= 0 || total <= 0 {
		return 0, 0
	}
	rate = float64(total) / elapsed
	rateErr = math.Sqrt(float64(total)) / elapsed
	return rate, rateErr
}
