//go:build linux

package sensor

import (
	"time"

	"golang.org/x/sys/unix"
)

var fallbackEpoch = time.Now()

// MonotonicMicros reads CLOCK_MONOTONIC in microseconds. This is the
// clock the kernel stamps GPIO line events with.
func MonotonicMicros() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return uint64(time.Since(fallbackEpoch).Microseconds())
	}
	return uint64(ts.Sec)*1_000_000 + uint64(ts.Nsec)/1_000
}
