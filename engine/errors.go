package engine

import (
	"errors"
	"fmt"
)

// Error taxonomy. ErrIllegalMove is recoverable: the caller resubmits and no
// match state is mutated. The remaining errors are fatal: the match moves to
// PhaseAborted and accepts no further submissions.
var (
	ErrIllegalMove     = errors.New("illegal move")
	ErrUnknownCardType = errors.New("unknown card type")
	ErrDeckExhausted   = errors.New("deck exhausted")
	ErrInvalidConfig   = errors.New("invalid config")
)

func errIllegal(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrIllegalMove)
}

func errInvalidConfig(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidConfig)
}
