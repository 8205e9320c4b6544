package definition

import "github.com/sirupsen/logrus"

// LogrusLogger adapts a *logrus.Entry to the Logger interface, for hosts
// that want Russula's diagnostics folded into their own structured-logging
// pipeline instead of the plain DefaultLogger. logrus is carried as a
// direct dependency here rather than dropped: it was already present in
// the teacher's own dependency graph (pulled in transitively by its
// transport layer), and a structured-field backend is exactly the kind of
// ambient concern this package exists to own.
type LogrusLogger struct {
	entry *logrus.Entry
	debug bool
}

// NewLogrusLogger wraps a named logger built from the given *logrus.Logger
// (or logrus.StandardLogger() if l is nil).
func NewLogrusLogger(name string, l *logrus.Logger) *LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &LogrusLogger{entry: l.WithField("instance", name)}
}

func (l *LogrusLogger) Infof(format string, v ...interface{}) {
	l.entry.Infof(format, v...)
}

func (l *LogrusLogger) Warnf(format string, v ...interface{}) {
	l.entry.Warnf(format, v...)
}

func (l *LogrusLogger) Errorf(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

func (l *LogrusLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		l.entry.Debugf(format, v...)
	}
}

func (l *LogrusLogger) ToggleDebug(value bool) bool {
	l.debug = value
	if value {
		l.entry.Logger.SetLevel(logrus.DebugLevel)
	}
	return l.debug
}
