package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInactiveUser       = errors.New("inactive_user")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidRequest     = errors.New("invalid_request")

	// ErrUnauthenticated covers every reason a bearer token is not accepted.
	// The token errors below wrap it so the HTTP layer needs one check.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrTokenMalformed  = fmt.Errorf("%w: malformed token", ErrUnauthenticated)
	ErrTokenInvalid    = fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	ErrTokenExpired    = fmt.Errorf("%w: token expired", ErrUnauthenticated)

	ErrForbidden         = errors.New("forbidden")
	ErrRateLimitExceeded = errors.New("rate_limit_exceeded")
	ErrCSRFRejected      = errors.New("csrf_rejected")
	ErrAuditWriteFailed  = errors.New("audit_write_failed")
	ErrConfiguration     = errors.New("configuration_error")
)
