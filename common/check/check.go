package check

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// These functions are meant to simplify panicking in wiring code.
// Always consider returning errors instead of panicking!
//
// Consensus handlers never panic on peer input: invalid messages are dropped
// and collaborator failures are returned as errors.

// PanicIfNot panics on false (use as simple assert).
func PanicIfNot(flag bool) {
	if !flag {
		panic("requirement not met")
	}
}

// PanicIfNotf panics on false with the given message.
func PanicIfNotf(flag bool, format string, args ...any) {
	if !flag {
		panic(fmt.Sprintf(format, args...))
	}
}

// PanicIfErr calls panic(err) if err is not nil.
func PanicIfErr(err error) {
	if err != nil {
		panic(err)
	}
}

// PanicIfNotCancelledErr panics if the provided error is non-nil and not a context.Canceled error.
func PanicIfNotCancelledErr(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	panic(err)
}

// LogAndPanicIfErrf logs the error with the provided logger and message and panics if err is not nil.
func LogAndPanicIfErrf(err error, logger zerolog.Logger, format string, args ...any) {
	if err != nil {
		l := logger.With().CallerWithSkipFrameCount(3).Logger()
		l.Error().Err(err).Msgf(format, args...)
		panic(err)
	}
}
