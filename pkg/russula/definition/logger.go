// Package definition holds the small collaborator interfaces Russula takes
// from its host program - today, just logging - along with a default
// implementation, mirroring the teacher's own definition package
// (pkg/mcast/definition/default_logger.go).
package definition

import (
	"fmt"
	"log"
	"os"
)

// Logger is the structured-logging interface a Russula driver is built
// with. Every protocol instance gets its own Logger tagged with the
// instance's name (the role and the link's index, e.g. "server-worker-0"),
// matching the teacher's
// per-peer logger convention.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	ToggleDebug(value bool) bool
}

const calldepth = 2

const (
	levelInfo  = "INFO"
	levelWarn  = "WARN"
	levelError = "ERROR"
	levelDebug = "DEBUG"
)

func tag(prefix, message string) string {
	return fmt.Sprintf("[%s]: %s", prefix, message)
}

// DefaultLogger is the stdlib-log-backed Logger used when a driver is built
// without an explicit one.
type DefaultLogger struct {
	*log.Logger
	debug bool
}

// NewDefaultLogger builds a DefaultLogger prefixed with name, e.g. the
// owning protocol instance's Name().
func NewDefaultLogger(name string) *DefaultLogger {
	return &DefaultLogger{
		Logger: log.New(os.Stderr, name+" ", log.LstdFlags),
		debug:  false,
	}
}

func (l *DefaultLogger) Infof(format string, v ...interface{}) {
	l.Output(calldepth, tag(levelInfo, fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Warnf(format string, v ...interface{}) {
	l.Output(calldepth, tag(levelWarn, fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Errorf(format string, v ...interface{}) {
	l.Output(calldepth, tag(levelError, fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		l.Output(calldepth, tag(levelDebug, fmt.Sprintf(format, v...)))
	}
}

func (l *DefaultLogger) ToggleDebug(value bool) bool {
	l.debug = value
	return l.debug
}
