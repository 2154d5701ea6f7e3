package ulogger

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

type TestingT interface {
	Errorf(format string, args ...interface{})
	FailNow()
	Logf(format string, args ...any)
}

type tHelper = interface {
	Helper()
}

// ErrorTestLogger only forwards errors and fatals to the test log. When
// failOnError is enabled an error also fails the test, which is useful to
// assert that a code path never logs at error level.
type ErrorTestLogger struct {
	t           TestingT
	failOnError atomic.Bool
	shutdown    atomic.Bool // Prevents logging after test cleanup
}

func NewErrorTestLogger(t TestingT) *ErrorTestLogger {
	return &ErrorTestLogger{t: t}
}

func (l *ErrorTestLogger) FailOnError(fail bool) {
	l.failOnError.Store(fail)
}

// Shutdown marks the logger as shutdown, preventing further access to testing.T
func (l *ErrorTestLogger) Shutdown() {
	l.shutdown.Store(true)
}

func (l *ErrorTestLogger) LogLevel() int {
	return LevelError
}

func (l *ErrorTestLogger) SetLogLevel(string) {}

func (l *ErrorTestLogger) New(string, ...Option) Logger {
	return l
}

func (l *ErrorTestLogger) Duplicate(...Option) Logger {
	return l
}

func (l *ErrorTestLogger) Debugf(string, ...interface{}) {}

func (l *ErrorTestLogger) Infof(string, ...interface{}) {}

func (l *ErrorTestLogger) Warnf(string, ...interface{}) {}

func (l *ErrorTestLogger) Errorf(format string, args ...interface{}) {
	l.log("ERR_LEVEL", format, args...)
}

func (l *ErrorTestLogger) Fatalf(format string, args ...interface{}) {
	l.log("FATAL_LEVEL", format, args...)
}

func (l *ErrorTestLogger) log(level string, format string, args ...interface{}) {
	// Don't access testing.T if logger is shutdown (test is cleaning up)
	if l.shutdown.Load() {
		return
	}

	if h, ok := l.t.(tHelper); ok {
		h.Helper()
	}

	_, file, line, _ := runtime.Caller(2)

	msg := fmt.Sprintf("%s:%d: %s %s", file, line, level, fmt.Sprintf(format, args...))

	if l.failOnError.Load() {
		l.t.Errorf("%s", msg)
		return
	}

	l.t.Logf("%s", msg)
}
