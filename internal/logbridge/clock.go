package logbridge

import "time"

// SystemClock is a Clock backed by the wall clock, truncated to seconds
// since the Unix epoch the way the LogEvent notification's 32-bit
// timestamp field demands.
type SystemClock struct{}

// Now returns the current Unix time in seconds.
func (SystemClock) Now() uint32 { return uint32(time.Now().Unix()) }
