package display

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	c "lautenbacher.net/parkleds/config"
	"lautenbacher.net/parkleds/sensor"
	u "lautenbacher.net/parkleds/util"
)

const ms = uint64(1000)

func testProvider(brightness int) c.Provider {
	conf := c.Default()
	conf.Sensor.DistanceMinMM = 100
	conf.Sensor.DistanceMaxMM = 4000
	conf.Display.LedCount = 40
	conf.Display.Brightness = brightness
	return c.NewStore(conf)
}

func ok(mm uint16) sensor.Measurement {
	return sensor.Measurement{DistanceMM: mm, Status: sensor.StatusOK}
}

// frameWith returns a dark 40 LED frame with the given pixels set.
func frameWith(pixels map[int]Led) []Led {
	f := make([]Led, 40)
	for i, l := range pixels {
		f[i] = l
	}
	return f
}

func TestLed(t *testing.T) {
	assert.True(t, Off.IsEmpty())
	assert.False(t, Orange.IsEmpty())
	assert.Equal(t, Led{Red: 127, Green: 82, Blue: 0}, Orange.Scale(127))
	assert.Equal(t, Red, Red.Scale(255))
	assert.True(t, Blue.Scale(0).IsEmpty())
}

func TestComputeZone(t *testing.T) {
	tests := []struct {
		leds int
		want Zone
	}{
		{40, Zone{Start: 10, End: 13}},
		{100, Zone{Start: 25, End: 34}},
		{10, Zone{Start: 3, End: 3}},
		{5, Zone{Start: 1, End: 1}},
		{3, Zone{Start: 0, End: 0}},
		{1, Zone{Start: 0, End: 0}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ComputeZone(tc.leds), "led count %d", tc.leds)
		assert.Equal(t, ComputeZone(tc.leds), ComputeZone(tc.leds), "ComputeZone must be deterministic")
	}
}

func TestPositionFor(t *testing.T) {
	assert.Equal(t, 19, PositionFor(2000, 100, 4000, 40))
	assert.Equal(t, 0, PositionFor(100, 100, 4000, 40))
	assert.Equal(t, 0, PositionFor(50, 100, 4000, 40))
	assert.Equal(t, 39, PositionFor(4000, 100, 4000, 40))
	assert.Equal(t, 39, PositionFor(9000, 100, 4000, 40))
	assert.Equal(t, 12, PositionFor(1300, 100, 4000, 40))
	assert.Equal(t, 0, PositionFor(2000, 100, 4000, 1))
}

func TestAnimation_Transitions(t *testing.T) {
	z := Zone{Start: 10, End: 13}
	var a Animation

	a.Update(19, z, 40)
	assert.Equal(t, Animation{Active: true, Forward: false, Position: 39, Start: 39, End: 13}, a)

	a.Advance()
	a.Advance()
	a.Update(25, z, 40)
	assert.Equal(t, 37, a.Position, "same direction must not restart the light")

	a.Update(2, z, 40)
	assert.Equal(t, Animation{Active: true, Forward: true, Position: 0, Start: 0, End: 10}, a)

	a.Update(11, z, 40)
	assert.False(t, a.Active, "inside the zone the light stops")

	a.Update(3, z, 40)
	assert.Equal(t, 0, a.Position, "leaving idle restarts the light")
}

func TestAnimation_AdvanceWraps(t *testing.T) {
	z := Zone{Start: 10, End: 13}

	var fwd Animation
	fwd.Update(0, z, 40)
	seen := []int{}
	for i := 0; i < 13; i++ {
		seen = append(seen, fwd.Position)
		fwd.Advance()
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 0, 1}, seen)

	var back Animation
	back.Update(30, z, 40)
	for i := 0; i < 26; i++ {
		back.Advance()
	}
	assert.Equal(t, 13, back.Position)
	back.Advance()
	assert.Equal(t, 39, back.Position, "backward light wraps to the strip end")

	var idle Animation
	idle.Advance()
	assert.Equal(t, Animation{}, idle)
}

func TestBlink(t *testing.T) {
	b := Blink{PeriodUs: 500 * ms}
	b.Restart(1000 * ms)
	assert.True(t, b.Tick(1100*ms))
	assert.True(t, b.Tick(1499*ms))
	assert.False(t, b.Tick(1500*ms))
	assert.False(t, b.Tick(1900*ms))
	assert.True(t, b.Tick(2000*ms))
	assert.True(t, b.Tick(10*ms), "a clock going backwards must not toggle")
}

func TestRenderer_TooFarRunsBackward(t *testing.T) {
	r := NewRenderer(testProvider(255), 500*time.Millisecond)
	r.Observe(ok(2000), 0)

	dimBlue := Blue.Scale(5)
	want := frameWith(map[int]Led{39: dimBlue, 19: Green})
	if diff := cmp.Diff(want, r.Tick(0)); diff != "" {
		t.Errorf("first frame mismatch (-want +got):\n%s", diff)
	}

	// the light runs down to the zone end and starts over
	for pos := 38; pos >= 13; pos-- {
		frame := r.Tick(0)
		assert.Equal(t, Green, frame[19], "position pixel stays on top")
		if pos != 19 {
			assert.Equal(t, dimBlue, frame[pos], "light should be at %d", pos)
		}
	}
	frame := r.Tick(0)
	assert.Equal(t, dimBlue, frame[39], "light should wrap to LED 39")
}

func TestRenderer_TooCloseToZoneRunsForward(t *testing.T) {
	r := NewRenderer(testProvider(255), 500*time.Millisecond)
	r.Observe(ok(500), 0)

	want := frameWith(map[int]Led{0: Orange.Scale(5), 4: Green})
	if diff := cmp.Diff(want, r.Tick(0)); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, r.Animation().Forward)
}

func TestRenderer_ZoneReached(t *testing.T) {
	r := NewRenderer(testProvider(200), 500*time.Millisecond)
	r.Observe(ok(2000), 0)
	r.Tick(0)

	r.Observe(ok(1300), 0)
	red := Red.Scale(200)
	want := frameWith(map[int]Led{10: red, 11: red, 12: red, 13: red})
	if diff := cmp.Diff(want, r.Tick(0)); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, r.Animation().Active)
}

func TestRenderer_EmergencyBlink(t *testing.T) {
	r := NewRenderer(testProvider(255), 500*time.Millisecond)
	r.Observe(ok(2000), 0)
	r.Tick(0)

	start := 10_000 * ms
	r.Observe(sensor.Measurement{DistanceMM: 50, Status: sensor.StatusOutOfRange}, start)

	on := frameWith(map[int]Led{0: Red, 10: Red, 20: Red, 30: Red})
	dark := frameWith(nil)

	steps := []struct {
		at   uint64
		want []Led
	}{
		{start, on},
		{start + 100*ms, on},
		{start + 500*ms, dark},
		{start + 900*ms, dark},
		{start + 1000*ms, on},
	}
	for _, s := range steps {
		if diff := cmp.Diff(s.want, r.Tick(s.at)); diff != "" {
			t.Errorf("frame at +%dms mismatch (-want +got):\n%s", (s.at-start)/ms, diff)
		}
	}

	// a repeated below minimum reading does not restart the blink phase
	r.Observe(sensor.Measurement{DistanceMM: 60, Status: sensor.StatusOutOfRange}, start+1100*ms)
	if diff := cmp.Diff(on, r.Tick(start+1200*ms)); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(dark, r.Tick(start+1500*ms)); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}

	// leaving the emergency restarts the running light
	r.Observe(ok(2000), start+1600*ms)
	frame := r.Tick(start + 1600*ms)
	assert.Equal(t, Blue.Scale(5), frame[39])
	assert.Equal(t, Green, frame[19])
}

func TestRenderer_TimeoutAndNoEchoAreTooFar(t *testing.T) {
	for _, st := range []sensor.Status{sensor.StatusTimeout, sensor.StatusNoEcho} {
		r := NewRenderer(testProvider(255), 500*time.Millisecond)
		r.Observe(sensor.Measurement{Status: st}, 0)
		want := frameWith(map[int]Led{39: Blue.Scale(5)})
		if diff := cmp.Diff(want, r.Tick(0)); diff != "" {
			t.Errorf("%s frame mismatch (-want +got):\n%s", st, diff)
		}
	}

	r := NewRenderer(testProvider(255), 500*time.Millisecond)
	r.Observe(sensor.Measurement{DistanceMM: 4500, Status: sensor.StatusOutOfRange}, 0)
	assert.Equal(t, Blue.Scale(5), r.Tick(0)[39], "above maximum is too far, not an emergency")
}

func TestRenderer_InvalidReadingKeepsState(t *testing.T) {
	r := NewRenderer(testProvider(255), 500*time.Millisecond)
	r.Observe(ok(2000), 0)
	r.Tick(0)
	before := r.Animation()

	r.Observe(sensor.Measurement{Status: sensor.StatusInvalidReading}, 0)
	assert.Equal(t, before, r.Animation())
	frame := r.Tick(0)
	assert.Equal(t, Green, frame[19])
	assert.Equal(t, Blue.Scale(5), frame[38])
}

func TestRenderer_NothingObservedIsDark(t *testing.T) {
	r := NewRenderer(testProvider(255), 500*time.Millisecond)
	if diff := cmp.Diff(frameWith(nil), r.Tick(0)); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderer_LowBrightnessKeepsLightVisible(t *testing.T) {
	r := NewRenderer(testProvider(10), 500*time.Millisecond)
	r.Observe(ok(2000), 0)
	frame := r.Tick(0)
	assert.False(t, frame[39].IsEmpty(), "the running light must not vanish at low brightness")
}

func TestDimmer(t *testing.T) {
	d := NewDimmer(49.5, 8.4, 200, 20)
	noon := time.Date(2024, time.June, 21, 12, 0, 0, 0, time.UTC)
	night := time.Date(2024, time.June, 21, 23, 30, 0, 0, time.UTC)
	early := time.Date(2024, time.June, 22, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, byte(200), d.Level(noon))
	assert.Equal(t, byte(20), d.Level(night))
	assert.Equal(t, byte(20), d.Level(early))

	// San Francisco: the June evening falls on the next UTC date.
	west := NewDimmer(37.77, -122.42, 200, 20)
	evening := time.Date(2024, time.June, 22, 2, 0, 0, 0, time.UTC)
	lateNight := time.Date(2024, time.June, 22, 8, 0, 0, 0, time.UTC)
	morning := time.Date(2024, time.June, 22, 16, 0, 0, 0, time.UTC)

	assert.Equal(t, byte(200), west.Level(evening))
	assert.Equal(t, byte(20), west.Level(lateNight))
	assert.Equal(t, byte(200), west.Level(morning))

	// Auckland: the morning falls on the previous UTC date.
	east := NewDimmer(-36.85, 174.76, 200, 20)
	assert.Equal(t, byte(200), east.Level(time.Date(2024, time.June, 21, 22, 0, 0, 0, time.UTC)))
	assert.Equal(t, byte(20), east.Level(time.Date(2024, time.June, 21, 8, 0, 0, 0, time.UTC)))
}

type recordingSink struct {
	mu     sync.Mutex
	frames [][]Led
}

func (s *recordingSink) DisplayLeds(leds []Led) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, leds)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func TestFrameClock_Tick(t *testing.T) {
	latest := u.NewLatest[sensor.Measurement]()
	sink := &recordingSink{}
	fc := NewFrameClock(NewRenderer(testProvider(255), 500*time.Millisecond), latest, sink, 100*time.Millisecond)
	now := uint64(0)
	fc.now = func() uint64 { return now }

	fc.Tick()
	require.Equal(t, 1, sink.count())
	assert.Equal(t, frameWith(nil), sink.frames[0])

	latest.Store(ok(2000))
	fc.Tick()
	now += 100 * ms
	fc.Tick()

	require.Equal(t, 3, sink.count())
	assert.Equal(t, Blue.Scale(5), sink.frames[1][39])
	assert.Equal(t, Blue.Scale(5), sink.frames[2][38], "the light advances without new measurements")
	assert.True(t, sink.frames[1][38].IsEmpty(), "submitted frames must not alias the render buffer")
	assert.False(t, latest.HasPending())
	assert.Equal(t, uint64(3), fc.Frames())
}

func TestFrameClock_Run(t *testing.T) {
	latest := u.NewLatest[sensor.Measurement]()
	sink := &recordingSink{}
	fc := NewFrameClock(NewRenderer(testProvider(255), 500*time.Millisecond), latest, sink, 10*time.Millisecond)
	fc.SetDimmer(NewDimmer(49.5, 8.4, 255, 20))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fc.Run(ctx) }()

	assert.Eventually(t, func() bool { return sink.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
