package platform

import (
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
	c "lautenbacher.net/parkleds/config"
	d "lautenbacher.net/parkleds/display"
)

func newTestTUI(t *testing.T) (*TUIPlatform, chan os.Signal) {
	t.Helper()
	sig := make(chan os.Signal, 1)
	p := NewTUIPlatform(c.Default(), sig)
	p.intro = tview.NewTextView()
	return p, sig
}

func TestScaledColor(t *testing.T) {
	assert.Equal(t, "[#000000]", scaledColor(d.Off))
	assert.Equal(t, "[#ff0000]", scaledColor(d.Led{Red: 2}))
	assert.Equal(t, "[#ffa500]", scaledColor(d.Orange))
	assert.Equal(t, "[#0080ff]", scaledColor(d.Led{Green: 1, Blue: 2}))
}

func TestZoneLine(t *testing.T) {
	line := zoneLine(d.ComputeZone(40), 40)
	assert.Len(t, line, 40)
	assert.Equal(t, strings.Repeat(" ", 10)+"^^^^"+strings.Repeat(" ", 26), line)
}

func TestRenderStrip(t *testing.T) {
	top, bot := renderStrip([]d.Led{d.Off, {Blue: 2}, {Red: 128}})

	assert.Equal(t, " [#0000ff] [-][#ff0000]▃[-]", top)
	assert.Equal(t, "·[#0000ff]▁[-][#ff0000]█[-]", bot)
}

func TestTUIPlatform_Keys(t *testing.T) {
	p, sig := newTestTUI(t)
	start := p.echo.Distance()
	assert.EqualValues(t, 2000, start)

	assert.True(t, p.handleRune('+'))
	assert.EqualValues(t, 2050, p.echo.Distance())
	assert.True(t, p.handleRune('<'))
	assert.EqualValues(t, 2045, p.echo.Distance())
	assert.Contains(t, p.intro.GetText(true), "2045mm")

	assert.True(t, p.handleRune('n'))
	assert.Greater(t, p.echo.Distance(), uint16(SimMaxRangeMM))
	assert.Contains(t, p.intro.GetText(true), "no echo")
	assert.True(t, p.handleRune('n'))
	assert.EqualValues(t, 2045, p.echo.Distance())

	assert.False(t, p.handleRune('x'))

	assert.True(t, p.handleRune('r'))
	assert.Equal(t, syscall.SIGHUP, <-sig)
	assert.True(t, p.handleRune('q'))
	assert.Equal(t, os.Interrupt, <-sig)
}

func TestTUIPlatform_SweepToggle(t *testing.T) {
	p, _ := newTestTUI(t)

	assert.True(t, p.handleRune('s'))
	assert.Contains(t, p.intro.GetText(true), "sweeping")
	assert.True(t, p.handleRune('s'))
	assert.NotContains(t, p.intro.GetText(true), "sweeping")

	p.handleRune('s')
	p.moveObstacle(50)
	p.sweepMutex.Lock()
	defer p.sweepMutex.Unlock()
	assert.Nil(t, p.sweepCancel, "moving the obstacle ends the sweep")
}
