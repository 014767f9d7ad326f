package logger

// NoopLogger is a logger that discards all messages. Used in tests.
type NoopLogger struct{}

// NewNoop returns a logger that does nothing.
func NewNoop() Interface {
	return &NoopLogger{}
}

func (n *NoopLogger) Debug(msg string, fields ...any) {}
func (n *NoopLogger) Info(msg string, fields ...any)  {}
func (n *NoopLogger) Warn(msg string, fields ...any)  {}
func (n *NoopLogger) Error(msg string, fields ...any) {}
func (n *NoopLogger) Fatal(msg string, fields ...any) {}
func (n *NoopLogger) With(fields ...any) Interface    { return n }
