package session

import (
	"errors"
	"fmt"
)

var (
	ErrNoReferenceVoice     = errors.New("please upload a reference voice")
	ErrBlankText            = errors.New("please enter some text")
	ErrNoRecording          = errors.New("please record your voice first")
	ErrNoAudio              = errors.New("uploaded voice is empty")
	ErrInvalidVoiceSettings = errors.New("invalid voice settings")
	ErrUnknownRequest       = errors.New("unknown request")
)

// ValidationError means the request was rejected before any synthesis work.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error {
	return &ValidationError{Err: err}
}

func invalidSettings(err error) error {
	return &ValidationError{Err: fmt.Errorf("%w: %w", ErrInvalidVoiceSettings, err)}
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
