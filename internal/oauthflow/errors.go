package oauthflow

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/morris-shopline/shopline-tw-lab/internal/shopline"
)

var (
	// ErrStateMismatch is returned when a callback carries no state or a
	// state that was never issued for the session.
	ErrStateMismatch = errors.New("invalid state parameter")
	// ErrSessionNotFound is returned when a storefront callback carries a
	// state that matches no pending authorization of the session.
	ErrSessionNotFound = errors.New("session not found")
	ErrValidation      = errors.New("validation failed")
)

// UpstreamOAuthError is an error reported by the authorization server
// through the callback query.
type UpstreamOAuthError struct {
	Code        string
	Description string
}

func (e *UpstreamOAuthError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("authorization failed: %s", e.Code)
	}
	return fmt.Sprintf("authorization failed: %s: %s", e.Code, e.Description)
}

// TokenExchangeError wraps a failed call to a token or token info
// endpoint. StatusCode and Body are set when the upstream answered.
type TokenExchangeError struct {
	Endpoint   string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TokenExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Endpoint, e.Err)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

func newTokenExchangeError(endpoint string, err error) *TokenExchangeError {
	e := &TokenExchangeError{Endpoint: endpoint, Err: err}

	var re *oauth2.RetrieveError
	var he *shopline.HTTPError
	switch {
	case errors.As(err, &re):
		if re.Response != nil {
			e.StatusCode = re.Response.StatusCode
		}
		e.Body = re.Body
	case errors.As(err, &he):
		e.StatusCode = he.StatusCode
		e.Body = he.Body
	}
	return e
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
