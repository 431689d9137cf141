package logging

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	c "lautenbacher.net/parkleds/config"
)

// teeWriter collects log output while no live target is attached (e.g.
// before the TUI log pane exists) and copies every line to an optional
// log file.
type teeWriter struct {
	mu      sync.Mutex
	pending bytes.Buffer
	live    io.Writer
	file    *os.File
	hold    bool
}

func (w *teeWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var werr error
	switch {
	case w.hold:
		w.pending.Write(p)
	case w.live != nil:
		_, werr = w.live.Write(p)
	}
	if w.file != nil {
		if _, err := w.file.Write(p); err != nil && werr == nil {
			werr = err
		}
	}
	return len(p), werr
}

var out *teeWriter

// ParseLevel maps a config level name to a slog level. Unknown names
// yield INFO.
func ParseLevel(name string) slog.Level {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs the default slog logger. With hold set, output is kept
// in memory until SetOutput is called.
func Init(hold bool, lc c.LogConfig) error {
	out = &teeWriter{hold: hold}
	if !hold {
		out.live = os.Stderr
	}

	if lc.File != "" {
		file, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		out.file = file
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(lc.Level)}
	var handler slog.Handler
	if strings.EqualFold(lc.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// For returns the default logger tagged with a component name.
func For(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// SetOutput flushes everything held so far into target and switches to
// live logging.
func SetOutput(target io.Writer) error {
	out.mu.Lock()
	defer out.mu.Unlock()

	if out.pending.Len() > 0 {
		if _, err := target.Write(out.pending.Bytes()); err != nil {
			return err
		}
		out.pending.Reset()
	}
	out.live = target
	out.hold = false
	return nil
}

// BufferOutput detaches the live target and holds output again.
func BufferOutput() {
	out.mu.Lock()
	defer out.mu.Unlock()

	out.live = nil
	out.hold = true
}

// Close closes the log file. Held output that was never shown goes to
// stderr unless the file already has it.
func Close() error {
	if out == nil {
		return nil
	}
	out.mu.Lock()
	defer out.mu.Unlock()

	var ferr error
	if out.file == nil && out.pending.Len() > 0 {
		if _, err := os.Stderr.Write(out.pending.Bytes()); err != nil {
			ferr = err
		}
	}
	out.pending.Reset()
	if out.file != nil {
		if err := out.file.Close(); err != nil && ferr == nil {
			ferr = err
		}
		out.file = nil
	}
	return ferr
}
