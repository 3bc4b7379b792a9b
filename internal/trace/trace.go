// Package trace implements the SpecTrace sink: a process-wide,
// mutex-guarded, append-only log used for conformance testing and phase
// debugging. If the sink file cannot be opened, tracing is silently
// disabled. Not on the hot path.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level orders trace verbosity: Off < Error < Phase < Detail < Debug.
type Level uint8

const (
	Off Level = iota
	Error
	Phase
	Detail
	Debug
)

// ParseLevel maps a flag value onto a Level, defaulting to Off.
func ParseLevel(s string) Level {
	switch s {
	case "error":
		return Error
	case "phase":
		return Phase
	case "detail":
		return Detail
	case "debug":
		return Debug
	default:
		return Off
	}
}

// Format selects textual or NDJSON records.
type Format uint8

const (
	Text Format = iota
	NDJSON
)

// Mode selects write-through, bounded in-memory ring, or both.
type Mode uint8

const (
	Stream Mode = iota
	Ring
	Both
)

// Record is one trace entry.
type Record struct {
	Time    time.Time `json:"time"`
	Session string    `json:"session"`
	Level   string    `json:"level"`
	Scope   string    `json:"scope"`
	Msg     string    `json:"msg"`
}

// Sink is the process-wide trace destination.
type Sink struct {
	mu      sync.Mutex
	level   Level
	format  Format
	mode    Mode
	file    *os.File
	ring    []Record
	ringCap int
	session string

	hbStop chan struct{}
}

var (
	global   *Sink
	globalMu sync.Mutex
)

// Open configures the global sink. A path that cannot be opened disables
// tracing silently; every later call is a cheap no-op.
func Open(path string, level Level, format Format, mode Mode, ringCap int) {
	globalMu.Lock()
	defer globalMu.Unlock()
	s := &Sink{
		level: level, format: format, mode: mode,
		ringCap: ringCap, session: uuid.NewString(),
	}
	if level == Off {
		global = s
		return
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			s.level = Off
		} else {
			s.file = f
		}
	}
	global = s
}

// Get returns the global sink, a disabled one if Open was never called.
func Get() *Sink {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = &Sink{level: Off}
	}
	return global
}

// Enabled reports whether records at l would be written.
func (s *Sink) Enabled(l Level) bool {
	return s != nil && l <= s.level && s.level != Off
}

// Emit appends one record.
func (s *Sink) Emit(l Level, scope, format string, args ...any) {
	if !s.Enabled(l) {
		return
	}
	rec := Record{
		Time:    time.Now(),
		Session: s.session,
		Level:   levelName(l),
		Scope:   scope,
		Msg:     fmt.Sprintf(format, args...),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Stream {
		s.ring = append(s.ring, rec)
		if s.ringCap > 0 && len(s.ring) > s.ringCap {
			s.ring = s.ring[len(s.ring)-s.ringCap:]
		}
	}
	if s.mode != Ring && s.file != nil {
		s.write(rec)
	}
}

func (s *Sink) write(rec Record) {
	switch s.format {
	case NDJSON:
		b, err := json.Marshal(rec)
		if err != nil {
			return
		}
		s.file.Write(append(b, '\n'))
	default:
		fmt.Fprintf(s.file, "%s [%s] %s: %s\n",
			rec.Time.Format(time.RFC3339Nano), rec.Level, rec.Scope, rec.Msg)
	}
}

// Flush drains the ring to the file (ring and both modes).
func (s *Sink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return
	}
	for _, rec := range s.ring {
		s.write(rec)
	}
	s.ring = s.ring[:0]
}

// Close flushes and releases the sink.
func (s *Sink) Close() {
	s.StopHeartbeat()
	s.Flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	s.level = Off
}

func levelName(l Level) string {
	switch l {
	case Error:
		return "error"
	case Phase:
		return "phase"
	case Detail:
		return "detail"
	case Debug:
		return "debug"
	default:
		return "off"
	}
}
