package ulogger

import (
	"io"
	"os"

	"github.com/ordishs/gocore"
)

type Options struct {
	logLevel   string
	loggerType string
	writer     io.Writer
	pretty     bool
}

type Option func(*Options)

// DefaultOptions reads the defaults from the gocore settings so that
// logLevel and PRETTY_LOGS can be changed without code changes.
func DefaultOptions() *Options {
	logLevel, _ := gocore.Config().Get("logLevel", "INFO")

	return &Options{
		logLevel:   logLevel,
		loggerType: "zerolog",
		writer:     os.Stdout,
		pretty:     gocore.Config().GetBool("PRETTY_LOGS", true),
	}
}

func WithLevel(level string) Option {
	return func(o *Options) {
		o.logLevel = level
	}
}

func WithLoggerType(loggerType string) Option {
	return func(o *Options) {
		o.loggerType = loggerType
	}
}

func WithWriter(w io.Writer) Option {
	return func(o *Options) {
		o.writer = w
	}
}

func WithPrettyLogs(pretty bool) Option {
	return func(o *Options) {
		o.pretty = pretty
	}
}
