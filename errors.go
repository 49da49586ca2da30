package storageless

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/storageless/jwt"
)

var (
	// ErrInvalidConfig is returned by Config.Validate and Builder.Build for unusable settings.
	ErrInvalidConfig = errors.New("invalid session configuration")
	// ErrInvalidKey is returned when signing or verification key material cannot be used.
	ErrInvalidKey = jwt.ErrInvalidKey
	// ErrMissingMiddleware is returned when a session is requested from a context
	// the session middleware never touched.
	ErrMissingMiddleware = errors.New("session middleware missing")
	// ErrNotImplemented is returned by operations disabled by configuration.
	ErrNotImplemented = errors.New("not implemented")
	// ErrSessionEncode is returned when session data cannot be serialized into a token.
	ErrSessionEncode = errors.New("session encode failed")
	// ErrBuilderUsed is returned when Build is called twice on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
)

// NewMissingMiddlewareError reports that method was called without the session
// middleware in front of it.
func NewMissingMiddlewareError(method string) error {
	return fmt.Errorf("please add the session middleware before calling %s: %w", method, ErrMissingMiddleware)
}

func newNotImplementedError(method string) error {
	return fmt.Errorf("method %q was not implemented: %w", method, ErrNotImplemented)
}
