// Package stdlogger adapts the zerolog global logger to the printf style
// leveled interface some libraries expect.
package stdlogger

import (
	"github.com/rs/zerolog/log"
)

// Adapter forwards printf style leveled calls to zerolog.
type Adapter struct{}

// New creates a stdlogger adapter backed by the global zerolog logger.
func New() *Adapter {
	return &Adapter{}
}

// Debugf logs at debug level.
func (a *Adapter) Debugf(format string, args ...any) {
	log.Debug().Msgf(format, args...)
}

// Infof logs at info level.
func (a *Adapter) Infof(format string, args ...any) {
	log.Info().Msgf(format, args...)
}

// Warningf logs at warn level.
func (a *Adapter) Warningf(format string, args ...any) {
	log.Warn().Msgf(format, args...)
}

// Errorf logs at error level.
func (a *Adapter) Errorf(format string, args ...any) {
	log.Error().Msgf(format, args...)
}
