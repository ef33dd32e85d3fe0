package progress

import "time"

// speedWindow is the number of per-chunk throughput samples kept for
// smoothing. An ETA is not derived before the window is at least half full.
const speedWindow = 256

// A SpeedTracker smooths instantaneous per-chunk throughput samples over a
// bounded sliding window and derives an ETA from the smoothed average.
type SpeedTracker struct {
	samples [speedWindow]float64
	count   int
	next    int
	sum     float64
	last    time.Time
}

// NewSpeedTracker returns a tracker whose first sample is measured relative
// to start.
func NewSpeedTracker(start time.Time) *SpeedTracker {
	return &SpeedTracker{last: start}
}

// Observe records that n bytes were transferred since the previous
// observation (or since start for the first one).
func (t *SpeedTracker) Observe(n int, now time.Time) {
	elapsed := now.Sub(t.last).Seconds()
	t.last = now
	if elapsed <= 0 {
		return
	}

	speed := float64(n) / elapsed
	if t.count == speedWindow {
		t.sum -= t.samples[t.next]
	} else {
		t.count++
	}
	t.samples[t.next] = speed
	t.sum += speed
	t.next = (t.next + 1) % speedWindow
}

// Average returns the smoothed throughput in bytes per second, or zero if no
// samples were collected.
func (t *SpeedTracker) Average() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}

// ETA estimates how long transferring the remaining bytes will take. The
// estimate is unknown while the sample window is less than half full or while
// the average speed is (close to) zero.
func (t *SpeedTracker) ETA(remaining uint64) ETA {
	if t.count < speedWindow/2 {
		return UnknownETA()
	}
	avg := t.Average()
	if avg < 1 {
		return UnknownETA()
	}
	return ETAIn(float64(remaining) / avg)
}
