package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	c "lautenbacher.net/parkleds/config"
	d "lautenbacher.net/parkleds/display"
	"lautenbacher.net/parkleds/logging"
	pl "lautenbacher.net/parkleds/platform"
	"lautenbacher.net/parkleds/publish"
	"lautenbacher.net/parkleds/sensor"
	u "lautenbacher.net/parkleds/util"
)

const (
	monitorInterval = 10 * time.Second
	watchSettle     = 500 * time.Millisecond
)

type App struct {
	ossignal     chan os.Signal
	configFile   string
	realHW       bool
	showViewer   bool
	store        *c.Store
	platform     pl.Platform
	viewer       *pl.MeasurementViewer
	publisher    publish.Publisher
	timer        *sensor.EdgeTimer
	queue        *sensor.MeasurementQueue
	acquirer     *sensor.Acquirer
	frameClock   *d.FrameClock
	cancel       context.CancelFunc
	shutdownWg   sync.WaitGroup
	newPlatform  func(conf c.Config) pl.Platform
	newPublisher func(pc c.PublishConfig) (publish.Publisher, error)
}

func main() {
	cfile := flag.String("config", c.CONFILE, "Config file to use")
	realp := flag.Bool("real", false, "Run on real hardware instead of the TUI simulation")
	viewer := flag.Bool("viewer", false, "Show live sensor statistics when running on real hardware")
	flag.Parse()

	ossignal := make(chan os.Signal, 1)
	signal.Notify(ossignal, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	app := NewApp(ossignal)
	app.configFile = *cfile
	app.realHW = *realp
	app.showViewer = *viewer
	os.Exit(app.run())
}

func NewApp(ossignal chan os.Signal) *App {
	app := &App{
		ossignal:   ossignal,
		configFile: c.CONFILE,
	}
	app.newPlatform = app.defaultPlatform
	app.newPublisher = func(pc c.PublishConfig) (publish.Publisher, error) {
		return publish.NewMQTTPublisher(pc)
	}
	return app
}

// run starts the device and restarts it with a freshly read config on
// SIGHUP or a config file change. It returns the process exit code.
func (a *App) run() int {
	for {
		conf, readErr := c.ReadConfig(a.configFile)
		if readErr != nil {
			if a.store == nil {
				fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", a.configFile, readErr)
				return 1
			}
			conf = a.store.Snapshot()
		}
		conf.RealHW = a.realHW

		if err := a.initialise(conf); err != nil {
			slog.Error("Failed to start", "error", err)
			a.shutdown()
			return 1
		}
		if readErr != nil {
			slog.Error("Invalid config file, keeping previous config", "file", a.configFile, "error", readErr)
		}

		sig := <-a.ossignal
		slog.Info("Received signal", "signal", sig)
		a.shutdown()
		if sig != syscall.SIGHUP {
			return 0
		}
	}
}

func (a *App) defaultPlatform(conf c.Config) pl.Platform {
	if !conf.RealHW {
		return pl.NewTUIPlatform(conf, a.ossignal)
	}
	rpi := pl.NewRaspberryPiPlatform(conf)
	if a.showViewer {
		a.viewer = pl.NewMeasurementViewer(conf.Sensor, a.ossignal)
		rpi.SetMeasurementViewer(a.viewer)
	}
	return rpi
}

func (a *App) initialise(conf c.Config) error {
	lc := conf.Logging.TUI
	if conf.RealHW {
		lc = conf.Logging.HW
	}
	if err := logging.Init(!conf.RealHW, lc); err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}

	if a.store == nil {
		a.store = c.NewStore(conf)
	} else {
		a.store.Replace(conf)
	}

	a.viewer = nil
	a.platform = a.newPlatform(conf)
	if err := a.platform.Start(); err != nil {
		return fmt.Errorf("failed to start platform: %w", err)
	}
	<-a.platform.Ready()
	slog.Info("Starting parkleds", "config", a.configFile, "real", conf.RealHW,
		"leds", conf.Display.LedCount, "min_mm", conf.Sensor.DistanceMinMM, "max_mm", conf.Sensor.DistanceMaxMM)

	a.timer = sensor.NewEdgeTimer()
	a.queue = sensor.NewMeasurementQueue(sensor.ProcessedCapacity)
	acquirer, err := sensor.NewAcquirer(a.store, a.platform.Echo(), a.timer, a.queue,
		sensor.WithLogger(logging.For("acquisition")))
	if err != nil {
		return err
	}
	a.acquirer = acquirer

	latest := u.NewLatest[sensor.Measurement]()
	renderer := d.NewRenderer(a.store, conf.Display.BlinkInterval)
	a.frameClock = d.NewFrameClock(renderer, latest, a.platform, conf.Display.FrameInterval)
	if nd := conf.Display.NightDim; nd.Enabled {
		a.frameClock.SetDimmer(d.NewDimmer(nd.Latitude, nd.Longitude, a.store.LedBrightness(), byte(nd.Brightness)))
	}

	a.publisher = nil
	if conf.Publish.Enabled {
		p, err := a.newPublisher(conf.Publish)
		if err != nil {
			slog.Error("MQTT publishing disabled", "broker", conf.Publish.Broker, "error", err)
		} else {
			a.publisher = p
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.goRun(func() {
		if err := a.acquirer.Run(ctx); err != nil {
			slog.Error("Acquisition failed", "error", err)
		}
	})
	a.goRun(func() { a.dispatch(ctx, latest) })
	a.goRun(func() { a.frameClock.Run(ctx) })
	a.goRun(func() { newLossMonitor(a.queue, a.timer).run(ctx, monitorInterval) })
	a.goRun(func() {
		err := c.Watch(ctx, a.configFile, watchSettle, func() {
			slog.Info("Config file changed, restarting", "file", a.configFile)
			select {
			case a.ossignal <- syscall.SIGHUP:
			default:
			}
		})
		if err != nil {
			slog.Warn("Not watching config file", "file", a.configFile, "error", err)
		}
	})
	return nil
}

func (a *App) goRun(f func()) {
	a.shutdownWg.Add(1)
	go func() {
		defer a.shutdownWg.Done()
		f()
	}()
}

// dispatch is the only reader of the measurement queue. It feeds the
// frame clock's cache and the optional consumers.
func (a *App) dispatch(ctx context.Context, latest *u.Latest[sensor.Measurement]) {
	publishFailing := false
	for {
		m, err := a.queue.ReadLatest(ctx)
		if err != nil {
			return
		}
		latest.Store(m)

		if a.viewer != nil {
			a.viewer.Update(m)
		}
		if a.publisher != nil {
			err := a.publisher.Publish(m)
			switch {
			case err != nil && !publishFailing:
				slog.Warn("Failed to publish measurement", "error", err)
				publishFailing = true
			case err == nil && publishFailing:
				slog.Info("Publishing measurements again")
				publishFailing = false
			}
		}
	}
}

func (a *App) shutdown() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.shutdownWg.Wait()

	if a.acquirer != nil {
		st := a.acquirer.Stats()
		slog.Info("Acquisition statistics", "cycles", st.Cycles, "timeouts", st.Timeouts,
			"out_of_range", st.OutOfRange, "no_echo", st.NoEcho, "invalid", st.Invalid)
		a.acquirer = nil
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			slog.Error("Error closing publisher", "error", err)
		}
		a.publisher = nil
	}
	if a.platform != nil {
		a.platform.Stop()
		a.platform = nil
	}
	if err := logging.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing log: %v\n", err)
	}
}

// lossMonitor warns when measurements were lost since the last check,
// either to a full processed queue or a full edge event channel.
type lossMonitor struct {
	queue         *sensor.MeasurementQueue
	timer         *sensor.EdgeTimer
	lastOverflows uint64
	lastDropped   uint64
}

func newLossMonitor(queue *sensor.MeasurementQueue, timer *sensor.EdgeTimer) *lossMonitor {
	return &lossMonitor{queue: queue, timer: timer}
}

func (m *lossMonitor) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check()
		}
	}
}

// check returns how many measurements and edge events were lost since
// the previous call.
func (m *lossMonitor) check() (overflows, dropped uint64) {
	o, dr := m.queue.Overflows(), m.timer.Dropped()
	overflows, dropped = u.SatSub(o, m.lastOverflows), u.SatSub(dr, m.lastDropped)
	m.lastOverflows, m.lastDropped = o, dr

	if overflows > 0 {
		slog.Warn("Measurement queue overflowed", "lost", overflows, "total", o)
	}
	if dropped > 0 {
		slog.Warn("Edge events dropped", "lost", dropped, "total", dr)
	}
	return overflows, dropped
}
