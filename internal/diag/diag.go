// Package diag collects the advisory findings a generation run produces.
//
// Findings are never fatal: they flag conditions the engine recovered from
// (automatic renames, classification fallbacks, layout conflicts kept as
// alternatives) so a maintainer can review them after the run. Every finding
// is mirrored to a structured logger as it is recorded.
package diag

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Level grades a finding.
type Level string

const (
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Finding kinds.
const (
	KindRename           = "register-rename"
	KindDisplayName      = "display-name-mismatch"
	KindClassifyFallback = "classification-fallback"
	KindMultiMapping     = "multi-mapping"
	KindBadIdentifier    = "invalid-identifier"
	KindIngest           = "ingest"
)

// Entry is one advisory finding.
type Entry struct {
	Level      Level  `json:"level"`
	Kind       string `json:"kind"`
	Chip       string `json:"chip,omitempty"`
	Peripheral string `json:"peripheral,omitempty"`
	Message    string `json:"message"`
}

// Sink records findings and mirrors them to a structured logger. A nil Sink
// still logs through the default logger but records nothing. Safe for
// concurrent use.
type Sink struct {
	logger *log.Logger

	mu      sync.Mutex
	entries []Entry
}

// NewSink returns a sink mirroring findings to logger. A nil logger falls
// back to log.Default().
func NewSink(logger *log.Logger) *Sink {
	if logger == nil {
		logger = log.Default()
	}
	return &Sink{logger: logger}
}

// Warnf records a warning-level finding.
func (s *Sink) Warnf(kind, chip, peripheral, format string, args ...any) {
	s.report(LevelWarn, kind, chip, peripheral, fmt.Sprintf(format, args...))
}

// Errorf records an error-level finding. The run still continues; error
// findings mark conditions that likely need a rule or input fix.
func (s *Sink) Errorf(kind, chip, peripheral, format string, args ...any) {
	s.report(LevelError, kind, chip, peripheral, fmt.Sprintf(format, args...))
}

func (s *Sink) report(level Level, kind, chip, peripheral, msg string) {
	logger := log.Default()
	if s != nil && s.logger != nil {
		logger = s.logger
	}
	kv := []any{"kind", kind}
	if chip != "" {
		kv = append(kv, "chip", chip)
	}
	if peripheral != "" {
		kv = append(kv, "peripheral", peripheral)
	}
	if level == LevelError {
		logger.Error(msg, kv...)
	} else {
		logger.Warn(msg, kv...)
	}

	if s == nil {
		return
	}
	s.mu.Lock()
	s.entries = append(s.entries, Entry{
		Level:      level,
		Kind:       kind,
		Chip:       chip,
		Peripheral: peripheral,
		Message:    msg,
	})
	s.mu.Unlock()
}

// Entries returns a copy of everything recorded so far, in order.
func (s *Sink) Entries() []Entry {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Count returns how many findings of the given level were recorded.
func (s *Sink) Count(level Level) int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}
