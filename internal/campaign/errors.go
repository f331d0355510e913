package campaign

import (
	"errors"
	"fmt"
)

var (
	// ErrSignatureMismatch marks a log that is not a CampaignCreated event.
	ErrSignatureMismatch = errors.New("event signature mismatch")
	// ErrMalformed marks a CampaignCreated log whose encoding disagrees with the schema.
	ErrMalformed = errors.New("malformed event")
)

// DecodeError is a tagged decode failure. Kind is one of the sentinels above.
type DecodeError struct {
	Kind   error
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Kind
}

func mismatch(format string, args ...interface{}) error {
	return &DecodeError{Kind: ErrSignatureMismatch, Reason: fmt.Sprintf(format, args...)}
}

func malformed(format string, args ...interface{}) error {
	return &DecodeError{Kind: ErrMalformed, Reason: fmt.Sprintf(format, args...)}
}
