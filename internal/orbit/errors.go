package orbit

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for malformed caller input: empty channel
	// names, empty messages, or a content source with no file information.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyConnected is returned by Connect when a session is active.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrAlreadyConnecting is returned by Connect while another connect is in flight.
	ErrAlreadyConnecting = errors.New("already connecting")

	// ErrNotConnected is returned by operations that require an active session.
	ErrNotConnected = errors.New("not connected")

	// ErrChannelNotJoined is returned when posting to a channel with no live handle.
	ErrChannelNotJoined = errors.New("channel not joined")
)

// ProviderError wraps a failure surfaced by the log or network provider.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func providerErr(op string, err error) error {
	return &ProviderError{Op: op, Err: err}
}
