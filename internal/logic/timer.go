package logic

import "time"

// Millis returns the milliseconds elapsed from start to t as a wrapping
// 32-bit counter. It rolls over roughly every 49.7 days.
func Millis(start, t time.Time) uint32 {
	return uint32(t.Sub(start).Milliseconds())
}

// Elapsed reports whether deadline has been reached at now.
// The signed difference stays correct across counter wraparound as long as
// the two stamps are less than 2^31 ms apart.
func Elapsed(now, deadline uint32) bool {
	return int32(now-deadline) >= 0
}
