package sensor

// Filter is an exponential moving average in integer arithmetic. The
// factor uses a 0..1000 scale, 1000 meaning no smoothing.
type Filter struct {
	initialized bool
	emaMM       uint32
}

// Update feeds one valid distance into the filter and returns the new
// average. The first sample is taken as is.
func (f *Filter) Update(distanceMM uint16, factor uint16) uint16 {
	if !f.initialized {
		f.emaMM = uint32(distanceMM)
		f.initialized = true
		return distanceMM
	}
	delta := int64(distanceMM) - int64(f.emaMM)
	f.emaMM = uint32(int64(f.emaMM) + int64(factor)*delta/1000)
	return uint16(f.emaMM)
}

// Value returns the current average and whether any sample was seen.
func (f *Filter) Value() (uint16, bool) {
	return uint16(f.emaMM), f.initialized
}

func (f *Filter) Reset() {
	f.initialized = false
	f.emaMM = 0
}
