// Package logging provides component loggers for hwbot.
package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component creates a new logger with a component identifier derived from
// the global logger. Uses the "cmp" key for consistency with zerolog
// conventions. Events logged with a context carry the cycle and command
// fields set through WithCycle and WithCommand.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger().Hook(ContextHook{})
}
