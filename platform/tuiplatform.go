package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	c "lautenbacher.net/parkleds/config"
	d "lautenbacher.net/parkleds/display"
	"lautenbacher.net/parkleds/logging"
	"lautenbacher.net/parkleds/sensor"
)

const (
	sweepFromMM  = 50
	sweepToMM    = 600
	sweepStepMM  = 10
	sweepPeriod  = 100 * time.Millisecond
	coarseStepMM = 50
	fineStepMM   = 5
)

var levelGlyphs = []string{"▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

type TUIPlatform struct {
	*AbstractPlatform
	tviewapp     *tview.Application
	intro        *tview.TextView
	ledDisplay   *tview.TextView
	logView      *tview.TextView
	ossignalChan chan os.Signal
	echo         *SimEcho
	zone         d.Zone
	zoneline     string
	logFlushOnce sync.Once
	sweepMutex   sync.Mutex
	sweepCancel  context.CancelFunc
	parkedMM     uint16
}

func NewTUIPlatform(conf c.Config, ossignalchan chan os.Signal) *TUIPlatform {
	start := conf.Sensor.DistanceMaxMM / 2
	inst := &TUIPlatform{
		ossignalChan: ossignalchan,
		echo:         NewSimEcho(conf.Sensor.TemperatureCx10, start),
		zone:         d.ComputeZone(conf.Display.LedCount),
	}
	inst.AbstractPlatform = newAbstractPlatform(conf, inst.showLeds)
	inst.zoneline = zoneLine(inst.zone, conf.Display.LedCount)
	return inst
}

func (s *TUIPlatform) Echo() sensor.Echo {
	return s.echo
}

func (s *TUIPlatform) Start() error {
	s.initSimulationTUI()
	s.startDisplayDriver()
	return nil
}

func (s *TUIPlatform) Stop() {
	s.stopSweep()
	s.stopDisplayDriver()

	if s.tviewapp != nil {
		s.tviewapp.Stop()
	}
	logging.BufferOutput()
	s.echo.Close()
}

func (s *TUIPlatform) showLeds(leds []d.Led) {
	top, bot := renderStrip(leds)
	s.tviewapp.QueueUpdateDraw(func() {
		s.ledDisplay.SetText(" " + top + "\n " + bot + "\n [red]" + s.zoneline + "[-]")
	})
}

func (s *TUIPlatform) getIntroText() string {
	mm := s.echo.Distance()
	state := "[#00ff00]echo[white]"
	if mm > SimMaxRangeMM {
		state = "[#ff0000]no echo[white]"
	}
	s.sweepMutex.Lock()
	if s.sweepCancel != nil {
		state += " | [#ffff00]sweeping[white]"
	}
	s.sweepMutex.Unlock()

	line1 := fmt.Sprintf("Obstacle: [#ffff00]%4dmm[white] (%s) | Range %d-%dmm",
		mm, state, s.config.Sensor.DistanceMinMM, s.config.Sensor.DistanceMaxMM)
	line2 := "Hit [#ff0000]+[white]/[#ff0000]-[white] to move 50mm, [#ff0000]<[white]/[#ff0000]>[white] to move 5mm, " +
		"[#ff0000]s[white] to sweep, [#ff0000]n[white] for no echo"
	line3 := "Hit [#ff0000]q[-] to exit, [#ff0000]r[-] to reload, [#ff0000]Up/Down[-] to scroll logs"
	return fmt.Sprintf("%s\n%s\n%s", line1, line2, line3)
}

func (s *TUIPlatform) refreshIntro() {
	s.intro.SetText(s.getIntroText())
}

func (s *TUIPlatform) initSimulationTUI() {
	s.tviewapp = tview.NewApplication()

	s.intro = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	s.intro.SetText(s.getIntroText())
	s.intro.SetBorder(true).SetTitle(" PARKLEDS Simulation ").SetTitleColor(tcell.ColorLightBlue)
	s.intro.SetBackgroundColor(tcell.NewRGBColor(20, 20, 20))

	s.ledDisplay = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	s.ledDisplay.SetBorder(true)
	s.ledDisplay.SetBackgroundColor(tcell.NewRGBColor(30, 30, 30))

	s.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetChangedFunc(func() {
			s.logView.ScrollToEnd()
			s.tviewapp.Draw()
		})
	s.logView.SetBorder(true).SetTitle(" Logs ").SetTitleColor(tcell.ColorLightBlue)
	s.logView.SetBackgroundColor(tcell.NewRGBColor(40, 40, 40))

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(s.intro, 5, 0, false).
		AddItem(s.ledDisplay, 5, 0, false).
		AddItem(s.logView, 0, 1, true)

	s.tviewapp.SetAfterDrawFunc(func(screen tcell.Screen) {
		s.logFlushOnce.Do(func() {
			logging.SetOutput(tview.ANSIWriter(s.logView))
			close(s.readyChan)
		})
	})

	s.tviewapp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			s.ossignalChan <- os.Interrupt
			return nil
		case tcell.KeyRune:
			if s.handleRune(event.Rune()) {
				return nil
			}
		case tcell.KeyUp:
			row, col := s.logView.GetScrollOffset()
			s.logView.ScrollTo(row-1, col)
			return nil
		case tcell.KeyDown:
			row, col := s.logView.GetScrollOffset()
			s.logView.ScrollTo(row+1, col)
			return nil
		}
		return event
	})

	go func() {
		if err := s.tviewapp.SetRoot(layout, true).Run(); err != nil {
			slog.Error("Error running TUI", "error", err)
			s.ossignalChan <- os.Interrupt
		}
	}()
}

// handleRune runs on the TUI goroutine and reports whether the key was
// consumed.
func (s *TUIPlatform) handleRune(r rune) bool {
	switch r {
	case 'q', 'Q':
		s.ossignalChan <- os.Interrupt
	case 'r', 'R':
		s.ossignalChan <- syscall.SIGHUP
	case '+':
		s.moveObstacle(coarseStepMM)
	case '-':
		s.moveObstacle(-coarseStepMM)
	case '>':
		s.moveObstacle(fineStepMM)
	case '<':
		s.moveObstacle(-fineStepMM)
	case 's', 'S':
		s.toggleSweep()
	case 'n', 'N':
		s.toggleNoEcho()
	default:
		return false
	}
	s.refreshIntro()
	return true
}

func (s *TUIPlatform) moveObstacle(delta int) {
	s.stopSweep()
	mm := s.echo.Nudge(delta)
	slog.Debug("Moved obstacle", "distance", mm)
}

func (s *TUIPlatform) toggleNoEcho() {
	s.stopSweep()
	if s.echo.Distance() > SimMaxRangeMM {
		s.echo.SetDistance(s.parkedMM)
		slog.Debug("Echo restored", "distance", s.parkedMM)
		return
	}
	s.parkedMM = s.echo.Distance()
	s.echo.SetDistance(simLimitMM)
	slog.Debug("Echo suppressed")
}

func (s *TUIPlatform) toggleSweep() {
	s.sweepMutex.Lock()
	defer s.sweepMutex.Unlock()
	if s.sweepCancel != nil {
		s.sweepCancel()
		s.sweepCancel = nil
		slog.Info("Sweep stopped")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.sweepCancel = cancel
	go s.echo.Sweep(ctx, sweepFromMM, sweepToMM, sweepStepMM, sweepPeriod)
	slog.Info("Sweep started", "from", sweepFromMM, "to", sweepToMM)
}

func (s *TUIPlatform) stopSweep() {
	s.sweepMutex.Lock()
	defer s.sweepMutex.Unlock()
	if s.sweepCancel != nil {
		s.sweepCancel()
		s.sweepCancel = nil
	}
}

// renderStrip builds the two-line bar representation of a frame. Dim
// LEDs show as a low bar in their hue, bright ones fill both lines.
func renderStrip(leds []d.Led) (string, string) {
	var top, bot strings.Builder
	top.Grow(len(leds) * (len("[-][#000000]") + 3))
	bot.Grow(len(leds) * (len("[-][#000000]") + 3))

	for _, v := range leds {
		if v.IsEmpty() {
			top.WriteString(" ")
			bot.WriteString("·")
			continue
		}
		color := scaledColor(v)
		level := int(brightest(v))
		topChar, botChar := " ", levelGlyphs[min(level/8, len(levelGlyphs)-1)]
		if level >= 64 {
			topChar = levelGlyphs[min((level-64)/24, len(levelGlyphs)-1)]
		}
		top.WriteString(color + topChar + "[-]")
		bot.WriteString(color + botChar + "[-]")
	}
	return top.String(), bot.String()
}

// zoneLine marks the ideal parking span under the strip.
func zoneLine(z d.Zone, ledCount int) string {
	line := []rune(strings.Repeat(" ", ledCount))
	for i := z.Start; i <= z.End && i < ledCount; i++ {
		line[i] = '^'
	}
	return string(line)
}

func brightest(led d.Led) byte {
	return max(led.Red, led.Green, led.Blue)
}

func scaledColor(led d.Led) string {
	maxColor := brightest(led)
	if maxColor == 0 {
		return "[#000000]"
	}
	scale := func(v byte) byte {
		return byte((int(v)*255 + int(maxColor)/2) / int(maxColor))
	}
	return fmt.Sprintf("[#%02x%02x%02x]", scale(led.Red), scale(led.Green), scale(led.Blue))
}
