package siem

import (
	"fmt"
	"time"
)

// StatusError is an HTTP failure from a SIEM API. It satisfies
// retry.HTTPStatusError so the executor can distinguish transient
// statuses from permanent ones and honor Retry-After.
type StatusError struct {
	Backend    string
	Code       int
	Message    string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Backend, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Backend, e.Code)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.Code }

// RetryAfterHint returns the server-supplied Retry-After delay, if any.
func (e *StatusError) RetryAfterHint() (time.Duration, bool) {
	if e.RetryAfter > 0 {
		return e.RetryAfter, true
	}
	return 0, false
}

// authHint maps authentication and authorization failures to actionable
// messages. APIs tend to return bare 401/403 bodies that tell the
// operator nothing.
func authHint(code int) string {
	switch code {
	case 401:
		return "authentication failed, check the configured token or credentials"
	case 403:
		return "access denied, the account lacks permission for this API"
	default:
		return ""
	}
}
