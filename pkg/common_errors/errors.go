package common_errors

import (
	"errors"

	"golang.org/x/xerrors"
)

var (
	ErrInvalidMessageCount     = xerrors.New("message count must be a positive integer")
	ErrInvalidConfig           = xerrors.New("invalid configuration")
	ErrUnrecognizedSerdeFormat = xerrors.New("Unrecognized serde format")
	ErrUnknownTransport        = xerrors.New("unknown transport kind")
	ErrQueueClosed             = xerrors.New("bounded queue closed")
	ErrInvalidStateTransition  = xerrors.New("invalid state transition")
	ErrPoolStart               = xerrors.New("worker pool failed to start")
	ErrShutdownTimeout         = xerrors.New("worker pool did not finish in time")
	ErrEmptyPayload            = xerrors.New("payload cannot be empty")
)

// IsStartupError reports whether err should abort the process before any
// pool is started.
func IsStartupError(err error) bool {
	return errors.Is(err, ErrInvalidMessageCount) || errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrUnrecognizedSerdeFormat) || errors.Is(err, ErrUnknownTransport)
}

func IsQueueClosedError(err error) bool {
	return errors.Is(err, ErrQueueClosed)
}
