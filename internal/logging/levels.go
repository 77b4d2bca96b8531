// internal/logging/levels.go
package logging

import (
	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below Debug (-2; Debug is -1, Info is 0) for
// ultra-verbose output: per-invocation wire payloads, exporter batch
// contents, anything too noisy to keep on in production. Always
// filtered out by the default level.
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a level name into a zapcore.Level. "trace" is
// accepted on top of zap's own names.
func LevelFromString(level string) (zapcore.Level, error) {
	if level == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}
