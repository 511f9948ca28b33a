package tokens

import "errors"

// ErrToken is the parent of every verification failure. All of them are
// terminal for the request and map to a generic 401 at the HTTP boundary.
var ErrToken = errors.New("token invalid")

var (
	ErrExpired   = &kindError{kind: "expired"}
	ErrMalformed = &kindError{kind: "malformed"}
	ErrRevoked   = &kindError{kind: "revoked"}
)

type kindError struct {
	kind string
}

func (e *kindError) Error() string { return "token " + e.kind }

func (e *kindError) Unwrap() error { return ErrToken }

// Reason returns "expired", "malformed" or "revoked" for token errors and
// "error" for anything else. Meant for logs and metrics, never for clients.
func Reason(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return "error"
}
