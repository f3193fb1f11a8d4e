// Package log provides the loggers used by this library.
package log

import (
	"io/ioutil"
	syslog "log"
	"os"
)

// Logger wraps the standard library logger and can be
// enabled and disabled at runtime.
type Logger struct {
	*syslog.Logger
}

var (
	// Info logs general messages. Enabled by default.
	Info = &Logger{syslog.New(os.Stdout, "", syslog.LstdFlags)}

	// Debug logs debug messages. Disabled by default.
	Debug = &Logger{syslog.New(ioutil.Discard, "", syslog.LstdFlags|syslog.Lshortfile)}
)

// Enable lets the logger write to stdout.
func (l *Logger) Enable() {
	l.SetOutput(os.Stdout)
}

// Disable drops all messages written to the logger.
func (l *Logger) Disable() {
	l.SetOutput(ioutil.Discard)
}
