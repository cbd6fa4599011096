package core

// Logger interface for pipeline and sampling progress messages
type Logger interface {
	Printf(format string, args ...interface{})
}

// NopLogger discards everything
type NopLogger struct{}

// Printf implements Logger
func (NopLogger) Printf(string, ...interface{}) {}
