package sshclient

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Logger is the logging interface used throughout the package.
// A nil Logger disables logging.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// ZerologLogger adapts a zerolog.Logger to Logger.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger wraps l.
func NewZerologLogger(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{log: l}
}

// Debugf logs at debug level.
func (z *ZerologLogger) Debugf(format string, args ...any) {
	z.log.Debug().Msg(fmt.Sprintf(format, args...))
}

// Infof logs at info level.
func (z *ZerologLogger) Infof(format string, args ...any) {
	z.log.Info().Msg(fmt.Sprintf(format, args...))
}

// Warnf logs at warn level.
func (z *ZerologLogger) Warnf(format string, args ...any) {
	z.log.Warn().Msg(fmt.Sprintf(format, args...))
}

// Errorf logs at error level.
func (z *ZerologLogger) Errorf(format string, args ...any) {
	z.log.Error().Msg(fmt.Sprintf(format, args...))
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

func loggerOrNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}

// phaseLogger reports executor progress in phases.
type phaseLogger struct {
	log Logger
}

func (p phaseLogger) PhaseStart(phase string, totalItems int) {
	p.log.Infof("[%s] starting phase with %d items", phase, totalItems)
}

func (p phaseLogger) ItemProcessed(phase, item, action string) {
	p.log.Debugf("[%s] %s: %s", phase, action, item)
}

func (p phaseLogger) PhaseComplete(phase string, processed int) {
	p.log.Infof("[%s] phase complete, processed %d items", phase, processed)
}
