// Package logger is the logging seam of the client. Components log through
// a small leveled interface so SDK embedders can route output into their own
// setup; NewZapLogger is the production implementation and NoopLogger the
// silent default.
package logger

// Fields carries structured context for one log line. Channel ids and cog
// amounts are logged as decimal strings.
type Fields = map[string]any

// Logger is safe for concurrent use.
type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
}

// NoopLogger drops every message.
type NoopLogger struct{}

func (NoopLogger) Debug(string, Fields) {}
func (NoopLogger) Info(string, Fields)  {}
func (NoopLogger) Warn(string, Fields)  {}
func (NoopLogger) Error(string, Fields) {}
