//go:build !linux

package sensor

import "time"

var epoch = time.Now()

// MonotonicMicros returns microseconds since process start.
func MonotonicMicros() uint64 {
	return uint64(time.Since(epoch).Microseconds())
}
