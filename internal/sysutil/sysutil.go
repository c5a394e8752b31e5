// Package sysutil holds process-level helpers shared by the console binary
// and the configuration loader: logger setup and environment value parsing.
package sysutil

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogOptions configures the process logger.
type LogOptions struct {
	Level   string // LOG_LEVEL
	Pretty  bool   // LOG_PRETTY: human readable console output
	Service string // tagged on every line as "service"
	Out     io.Writer
}

// ParseLevel maps a LOG_LEVEL value onto a zerolog level. Unknown values and
// the empty string map to info; "warning" is accepted for warn.
func ParseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetupLogger sets the global level and installs the process-wide logger:
// JSON lines with millisecond timestamps, or a console writer when Pretty.
// The installed logger is returned so callers can hand it to components
// that take an explicit zerolog.Logger.
func SetupLogger(o LogOptions) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(o.Level))
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	out := o.Out
	if out == nil {
		out = os.Stderr
	}
	if o.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	}
	ctx := zerolog.New(out).With().Timestamp()
	if svc := strings.TrimSpace(o.Service); svc != "" {
		ctx = ctx.Str("service", svc)
	}
	log.Logger = ctx.Logger()
	return log.Logger
}

// ParseSwitch reads an on/off environment value. ok is false for anything
// it does not recognise, so callers can keep their default.
func ParseSwitch(v string) (on, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	}
	return false, false
}

// FirstNonEmpty returns the first non-blank value, trimmed, or "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}
