package display

// Zone is the ideal sub range of the strip, both ends inclusive.
type Zone struct {
	Start int
	End   int
}

func (z Zone) Contains(pos int) bool {
	return pos >= z.Start && pos <= z.End
}

// ComputeZone places a zone of 10% of the strip (at least one LED)
// centred at 30% of its length.
func ComputeZone(ledCount int) Zone {
	size := max(ledCount*10/100, 1)
	center := ledCount * 30 / 100
	start := max(center-size/2, 0)
	return Zone{Start: start, End: start + size - 1}
}

// PositionFor maps a distance linearly onto [0, ledCount-1]. Distances
// outside [minMM, maxMM] are clamped to the strip ends.
func PositionFor(distanceMM, minMM, maxMM uint16, ledCount int) int {
	if ledCount <= 1 || distanceMM <= minMM || maxMM <= minMM {
		return 0
	}
	if distanceMM >= maxMM {
		return ledCount - 1
	}
	return int(distanceMM-minMM) * (ledCount - 1) / int(maxMM-minMM)
}
