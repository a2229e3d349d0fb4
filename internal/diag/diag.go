// Package diag is the leveled, append-only message log shared by the save
// extractor, the projector and catalog loading.
package diag

import (
	"fmt"

	"go.uber.org/zap"
)

type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Warning Level = "warning"
	Error   Level = "error"
)

// Entry is one diagnostic message.
type Entry struct {
	Level   Level  `json:"level" yaml:"level"`
	Source  string `json:"source" yaml:"source"`
	Message string `json:"message" yaml:"message"`
}

func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Level, e.Source, e.Message)
}

// Log collects entries in the order they were produced. The zero value is ready to use.
type Log struct {
	entries []Entry
}

func (l *Log) Add(level Level, source, format string, args ...any) {
	l.entries = append(l.entries, Entry{Level: level, Source: source, Message: fmt.Sprintf(format, args...)})
}

func (l *Log) Infof(source, format string, args ...any)    { l.Add(Info, source, format, args...) }
func (l *Log) Successf(source, format string, args ...any) { l.Add(Success, source, format, args...) }
func (l *Log) Warnf(source, format string, args ...any)    { l.Add(Warning, source, format, args...) }
func (l *Log) Errorf(source, format string, args ...any)   { l.Add(Error, source, format, args...) }

// Append copies entries from other logs, keeping their order.
func (l *Log) Append(entries ...Entry) {
	l.entries = append(l.entries, entries...)
}

// Entries returns a copy of the collected entries.
func (l *Log) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

func (l *Log) Len() int { return len(l.entries) }

// Count returns how many entries have the given level.
func (l *Log) Count(level Level) int {
	n := 0
	for _, e := range l.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Emit forwards every entry to a zap logger at the matching level.
func Emit(logger *zap.Logger, entries []Entry) {
	if logger == nil {
		return
	}
	for _, e := range entries {
		fields := []zap.Field{zap.String("source", e.Source)}
		switch e.Level {
		case Error:
			logger.Error(e.Message, fields...)
		case Warning:
			logger.Warn(e.Message, fields...)
		case Success:
			logger.Info(e.Message, append(fields, zap.Bool("success", true))...)
		default:
			logger.Debug(e.Message, fields...)
		}
	}
}
