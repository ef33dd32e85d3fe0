package progress

import "fmt"

// An ETA is an estimate of the remaining duration of a transfer, in seconds.
// The zero value means the estimate is not known yet, either because too few
// throughput samples have been collected or because the measured throughput
// is zero.
type ETA struct {
	known   bool
	seconds float64
}

// UnknownETA returns an ETA without an estimate.
func UnknownETA() ETA {
	return ETA{}
}

// ETAIn returns an ETA of the given number of seconds.
func ETAIn(seconds float64) ETA {
	return ETA{known: true, seconds: seconds}
}

// Known reports whether an estimate is available.
func (e ETA) Known() bool {
	return e.known
}

// Seconds returns the estimate. It is only meaningful if Known returns true.
func (e ETA) Seconds() float64 {
	return e.seconds
}

func (e ETA) String() string {
	if !e.known {
		return "unknown"
	}
	return fmt.Sprintf("%.0f sec", e.seconds)
}
