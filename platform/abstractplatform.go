package platform

import (
	"log/slog"
	"sync"

	c "lautenbacher.net/parkleds/config"
	d "lautenbacher.net/parkleds/display"
	u "lautenbacher.net/parkleds/util"
)

type AbstractPlatform struct {
	config          c.Config
	frames          *u.Latest[[]d.Led]
	displayFunc     func([]d.Led)
	displayWg       sync.WaitGroup
	displayStopChan chan bool
	readyChan       chan bool
	shutdownMutex   sync.RWMutex
	isShuttingDown  bool
	written         uint64
}

func newAbstractPlatform(conf c.Config, displayFunc func([]d.Led)) *AbstractPlatform {
	return &AbstractPlatform{
		config:          conf,
		frames:          u.NewLatest[[]d.Led](),
		displayFunc:     displayFunc,
		displayStopChan: make(chan bool),
		readyChan:       make(chan bool),
	}
}

func (s *AbstractPlatform) Ready() <-chan bool {
	return s.readyChan
}

func (s *AbstractPlatform) DisplayLeds(leds []d.Led) {
	s.frames.Store(leds)
}

func (s *AbstractPlatform) GetLedCount() int {
	return s.config.Display.LedCount
}

func (s *AbstractPlatform) setInShutdown() {
	s.shutdownMutex.Lock()
	s.isShuttingDown = true
	s.shutdownMutex.Unlock()
}

func (s *AbstractPlatform) startDisplayDriver() {
	s.displayWg.Add(1)
	go s.displayDriver()
}

func (s *AbstractPlatform) stopDisplayDriver() {
	s.setInShutdown()
	close(s.displayStopChan)
	s.displayWg.Wait()
}

// displayDriver writes the newest frame whenever one is pending. Frames
// arriving while a write is in progress collapse into the latest.
func (s *AbstractPlatform) displayDriver() {
	defer s.displayWg.Done()
	for {
		select {
		case <-s.displayStopChan:
			slog.Info("Ending DisplayDriver go-routine...", "frames", s.written)
			return
		case <-s.frames.Updated():
			leds, _ := s.frames.Load()
			s.shutdownMutex.RLock()
			if !s.isShuttingDown {
				s.displayFunc(leds)
				s.written++
			}
			s.shutdownMutex.RUnlock()
		}
	}
}
