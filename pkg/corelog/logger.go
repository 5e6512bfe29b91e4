// Package corelog provides a minimal logging interface shared by the cores
// that can observe a failure they can't return to a caller (an ActorSystem
// handler panic, a Pool factory error during best-effort rewarming). Everything else in this repository never logs.
package corelog

import (
	"fmt"
	"log"
	"os"
)

// Logger is deliberately small: the cores only ever need to report an
// isolated failure, never to emit request-scoped structured fields.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// defaultLogger implements Logger over the standard log package, writing
// errors and warnings to stderr and everything else to stdout.
type defaultLogger struct {
	errorLogger *log.Logger
	warnLogger  *log.Logger
	infoLogger  *log.Logger
	debugLogger *log.Logger
}

// NewDefault returns the default Logger implementation.
func NewDefault() Logger {
	return &defaultLogger{
		errorLogger: log.New(os.Stderr, "[ERROR] ", log.LstdFlags|log.Lshortfile),
		warnLogger:  log.New(os.Stderr, "[WARN] ", log.LstdFlags|log.Lshortfile),
		infoLogger:  log.New(os.Stdout, "[INFO] ", log.LstdFlags|log.Lshortfile),
		debugLogger: log.New(os.Stdout, "[DEBUG] ", log.LstdFlags|log.Lshortfile),
	}
}

func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	l.errorLogger.Output(3, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	l.warnLogger.Output(3, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Infof(format string, args ...interface{}) {
	l.infoLogger.Output(3, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	l.debugLogger.Output(3, fmt.Sprintf(format, args...))
}

// noopLogger discards everything; used when a core is constructed without
// an explicit Logger.
type noopLogger struct{}

// NewNoop returns a Logger that discards all messages.
func NewNoop() Logger { return noopLogger{} }

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Warnf(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}
