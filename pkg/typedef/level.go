package typedef

import (
	"log/slog"
	"strings"
)

// Level is the severity label of a message. Labels outside the documented
// set are valid on the wire and are kept verbatim.
type Level string

// Documented severity labels.
const (
	LevelTrace Level = "TRACE"
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
	LevelFatal Level = "FATAL"
	LevelPanic Level = "PANIC"
)

// Severity levels as slog levels. TRACE, FATAL and PANIC extend the slog scale.
const (
	SlogLevelTrace = slog.Level(-8)
	SlogLevelDebug = slog.LevelDebug
	SlogLevelInfo  = slog.LevelInfo
	SlogLevelWarn  = slog.LevelWarn
	SlogLevelError = slog.LevelError
	SlogLevelFatal = slog.Level(12)
	SlogLevelPanic = slog.Level(16)
)

// AllLevels lists the documented labels from least to most severe.
var AllLevels = []Level{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal, LevelPanic}

var levelToSlog = map[Level]slog.Level{
	LevelTrace: SlogLevelTrace,
	LevelDebug: SlogLevelDebug,
	LevelInfo:  SlogLevelInfo,
	LevelWarn:  SlogLevelWarn,
	LevelError: SlogLevelError,
	LevelFatal: SlogLevelFatal,
	LevelPanic: SlogLevelPanic,
}

var slogToLevel = map[slog.Level]Level{
	SlogLevelTrace: LevelTrace,
	SlogLevelDebug: LevelDebug,
	SlogLevelInfo:  LevelInfo,
	SlogLevelWarn:  LevelWarn,
	SlogLevelError: LevelError,
	SlogLevelFatal: LevelFatal,
	SlogLevelPanic: LevelPanic,
}

func (l Level) String() string {
	return string(l)
}

// IsKnown reports whether l is one of the documented labels.
func (l Level) IsKnown() bool {
	_, ok := levelToSlog[l]
	return ok
}

// Slog maps l onto the slog scale. Unknown labels map to SlogLevelPanic so
// they are never filtered out.
func (l Level) Slog() slog.Level {
	if level, ok := levelToSlog[l]; ok {
		return level
	}
	return SlogLevelPanic
}

// ParseLevel returns the canonical label for s, ignoring case and surrounding
// space. When s is not a documented label it is returned unchanged with ok false.
func ParseLevel(s string) (level Level, ok bool) {
	candidate := Level(strings.ToUpper(strings.TrimSpace(s)))
	if candidate.IsKnown() {
		return candidate, true
	}
	return Level(s), false
}

// LevelFromSlog is the inverse of Level.Slog for the documented labels.
func LevelFromSlog(l slog.Level) (Level, bool) {
	level, ok := slogToLevel[l]
	return level, ok
}
