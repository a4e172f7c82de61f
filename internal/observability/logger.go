package observability

import "github.com/sirupsen/logrus"

// Logger is the structured logging surface. Context accumulates on the
// entry: request ids and domain keys via WithField, failure causes via
// WithError, so call sites log a plain message at the end of the chain.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	WithField(key string, value interface{}) Logger
	WithError(err error) Logger
}

type jsonLogger struct {
	entry *logrus.Entry
}

// NewLogger returns a JSON-formatted logger suitable for log shipping.
func NewLogger() Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	return &jsonLogger{entry: logrus.NewEntry(log)}
}

func (l *jsonLogger) Debug(msg string) { l.entry.Debug(msg) }
func (l *jsonLogger) Info(msg string)  { l.entry.Info(msg) }
func (l *jsonLogger) Warn(msg string)  { l.entry.Warn(msg) }
func (l *jsonLogger) Error(msg string) { l.entry.Error(msg) }

func (l *jsonLogger) WithField(key string, value interface{}) Logger {
	return &jsonLogger{entry: l.entry.WithField(key, value)}
}

func (l *jsonLogger) WithError(err error) Logger {
	return &jsonLogger{entry: l.entry.WithError(err)}
}
