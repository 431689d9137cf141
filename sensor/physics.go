package sensor

import "math"

// NoEchoPulseUs is the echo pulse width an HC-SR04 emits when nothing
// reflects the burst (~38ms). Anything this long is not a real echo.
const NoEchoPulseUs = 36_000

// SpeedOfSoundScaled returns the speed of sound in mm/µs scaled by 1e6
// for a temperature given in tenths of °C: 331.3 m/s + 0.606 m/s per °C.
func SpeedOfSoundScaled(temperatureCx10 int16) uint32 {
	return uint32((331_300_000 + 60_600*int64(temperatureCx10)) / 1000)
}

// DistanceMM converts an echo round trip into a one-way distance. The
// result saturates at the uint16 maximum.
func DistanceMM(roundTripUs uint64, temperatureCx10 int16) uint16 {
	mm := roundTripUs * uint64(SpeedOfSoundScaled(temperatureCx10)) / 2_000_000
	if mm > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(mm)
}

// RoundTripUs is the inverse of DistanceMM. It is used to synthesise echo
// pulses in simulation.
func RoundTripUs(distanceMM uint16, temperatureCx10 int16) uint64 {
	return uint64(distanceMM) * 2_000_000 / uint64(SpeedOfSoundScaled(temperatureCx10))
}
