package webhook

import (
	"errors"
	"fmt"
)

var (
	ErrSignatureMismatch = errors.New("invalid webhook signature")
	// ErrMissingSignature is returned when signatures are required but the
	// delivery carries none or no secret is configured.
	ErrMissingSignature         = errors.New("missing webhook signature")
	ErrInvalidPayload           = errors.New("invalid webhook payload")
	ErrMissingVerificationToken = errors.New("verification payload has no token")
	// ErrUnverifiedEvent is returned by handlers that change state when
	// the delivery signature was not checked.
	ErrUnverifiedEvent = errors.New("event signature was not verified")
)

// DispatchError is returned when no reply could be produced for an event.
type DispatchError struct {
	Topic Topic
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("failed to dispatch '%s': %v", e.Topic, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
