package platform

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"
	"sync"
	"syscall"

	"github.com/gammazero/deque"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	c "lautenbacher.net/parkleds/config"
	"lautenbacher.net/parkleds/sensor"
)

const (
	maxMeasurementHistory = 500
	viewerTitle           = " PARKLEDS Sensor Viewer "
)

var viewerStatuses = []sensor.Status{
	sensor.StatusOK,
	sensor.StatusTimeout,
	sensor.StatusOutOfRange,
	sensor.StatusNoEcho,
	sensor.StatusInvalidReading,
}

// MeasurementViewer is a TUI component showing live statistics of the
// distance measurements when running on real hardware.
type MeasurementViewer struct {
	tuiApp   *tview.Application
	view     *tview.TextView
	sensor   c.SensorConfig
	history  deque.Deque[int]
	counts   map[sensor.Status]int
	last     sensor.Measurement
	mu       sync.Mutex
	wg       sync.WaitGroup
	ossignal chan os.Signal
}

type sensorStats struct {
	min    int
	max    int
	mean   float64
	median float64
	stdDev float64
}

func NewMeasurementViewer(sc c.SensorConfig, ossignal chan os.Signal) *MeasurementViewer {
	mv := &MeasurementViewer{
		tuiApp:   tview.NewApplication(),
		sensor:   sc,
		counts:   make(map[sensor.Status]int, len(viewerStatuses)),
		ossignal: ossignal,
	}
	mv.history.Grow(maxMeasurementHistory)
	return mv
}

// Start runs the TUI in its own goroutine.
func (mv *MeasurementViewer) Start() {
	mv.setupUI()
	mv.wg.Add(1)
	go func() {
		defer mv.wg.Done()
		if err := mv.tuiApp.Run(); err != nil {
			slog.Error("Error running MeasurementViewer TUI", "error", err)
			mv.ossignal <- os.Interrupt
		}
		slog.Info("MeasurementViewer TUI has stopped.")
	}()
}

func (mv *MeasurementViewer) Stop() {
	slog.Info("Stopping MeasurementViewer TUI...")
	mv.tuiApp.Stop()
	mv.wg.Wait()
}

// Update records a measurement and schedules a redraw. Safe for
// concurrent use.
func (mv *MeasurementViewer) Update(m sensor.Measurement) {
	mv.mu.Lock()
	mv.record(m)
	text := mv.prepareDisplayText()
	mv.mu.Unlock()

	mv.tuiApp.QueueUpdateDraw(func() {
		mv.view.SetText(text)
	})
}

func (mv *MeasurementViewer) record(m sensor.Measurement) {
	mv.last = m
	mv.counts[m.Status]++
	if m.Status != sensor.StatusOK {
		return
	}
	if mv.history.Len() == maxMeasurementHistory {
		mv.history.PopFront()
	}
	mv.history.PushBack(int(m.DistanceMM))
}

func (mv *MeasurementViewer) setupUI() {
	mv.view = tview.NewTextView()
	mv.view.SetDynamicColors(true)
	mv.view.SetTextAlign(tview.AlignLeft)
	mv.view.SetBackgroundColor(tcell.ColorDarkSlateGray)
	mv.view.SetBorder(true).SetTitle(viewerTitle).SetTitleColor(tcell.ColorLightBlue)

	intro := tview.NewTextView()
	intro.SetBorder(true).SetTitle(" PARKLEDS ").SetTitleColor(tcell.ColorLightBlue)
	intro.SetText(fmt.Sprintf("Displaying real sensor values, range %d-%dmm.\n"+
		"Hit [#ff0000]q[-] to exit, [#ff0000]r[-] to reload config file and restart",
		mv.sensor.DistanceMinMM, mv.sensor.DistanceMaxMM))
	intro.SetTextAlign(tview.AlignCenter)
	intro.SetDynamicColors(true)
	intro.SetBackgroundColor(tcell.ColorDarkSlateGray)

	layout := tview.NewFlex().SetDirection(tview.FlexRow)
	layout.AddItem(intro, 4, 1, false)
	layout.AddItem(mv.view, 6, 1, true)

	mv.tuiApp.SetRoot(layout, true).SetFocus(mv.view)
	mv.tuiApp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'q', 'Q':
			mv.ossignal <- os.Interrupt
			return nil
		case 'r', 'R':
			mv.ossignal <- syscall.SIGHUP
			return nil
		}
		return event
	})
}

// prepareDisplayText must be called with the mutex held.
func (mv *MeasurementViewer) prepareDisplayText() string {
	data := make([]int, mv.history.Len())
	for i := range mv.history.Len() {
		data[i] = mv.history.At(i)
	}
	stats := calculateStats(data)

	var buf strings.Builder
	fmt.Fprintf(&buf, "[yellow] Last:[white]          %s\n", mv.last)
	fmt.Fprintf(&buf, "[yellow] [min|mean|max]:[white] [%4d|%4.0f|%4d] mm over %d samples\n",
		stats.min, math.Round(stats.mean), stats.max, len(data))
	fmt.Fprintf(&buf, "[yellow] Median/StdDev:[white]  %6.1f / %5.1f mm\n", stats.median, stats.stdDev)
	buf.WriteString("[yellow] Status:[white]       ")
	for _, st := range viewerStatuses {
		fmt.Fprintf(&buf, " [blue]%s:[-] %d", st, mv.counts[st])
	}
	return buf.String()
}

func calculateStats(data []int) sensorStats {
	if len(data) == 0 {
		return sensorStats{}
	}

	var sum int
	lo, hi := data[0], data[0]
	for _, v := range data {
		lo = min(lo, v)
		hi = max(hi, v)
		sum += v
	}
	mean := float64(sum) / float64(len(data))

	sorted := slices.Clone(data)
	slices.Sort(sorted)
	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = float64(sorted[mid-1]+sorted[mid]) / 2.0
	} else {
		median = float64(sorted[mid])
	}

	var sumOfSquares float64
	for _, v := range data {
		sumOfSquares += (float64(v) - mean) * (float64(v) - mean)
	}

	return sensorStats{
		min:    lo,
		max:    hi,
		mean:   mean,
		median: median,
		stdDev: math.Sqrt(sumOfSquares / float64(len(data))),
	}
}
