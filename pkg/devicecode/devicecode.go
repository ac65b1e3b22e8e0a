// Package devicecode validates user codes from the OAuth2 device grant and
// decides where the activation page should send the user next.
package devicecode

import (
	"net/url"
	"regexp"
)

// User codes are two groups of four uppercase alphanumerics, e.g. AB12-CD34.
var userCodePattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}$`)

const verificationPath = "/oauth2/device_verification"

// ValidCode reports whether code has the XXXX-XXXX user-code format.
func ValidCode(code string) bool {
	return userCodePattern.MatchString(code)
}

// ActivationResult tells the activation page what to do: redirect the user
// into device verification, or render the code-entry form. It is computed
// per request and never persisted.
type ActivationResult struct {
	IsRedirect  bool
	Destination string
}

// ErrMalformedCode marks a user code that fails format validation. It is a
// client input error, not a security denial.
type ErrMalformedCode struct {
	Code string
}

func (e *ErrMalformedCode) Error() string {
	return "user code must match XXXX-XXXX"
}

// Resolve maps the user-supplied code to an activation outcome. An empty
// code means the entry form should be shown; a well-formed code redirects to
// the verification endpoint; anything else is rejected before any redirect.
func Resolve(code string) (ActivationResult, error) {
	if code == "" {
		return ActivationResult{}, nil
	}
	if !ValidCode(code) {
		return ActivationResult{}, &ErrMalformedCode{Code: code}
	}
	return ActivationResult{
		IsRedirect:  true,
		Destination: verificationPath + "?user_code=" + url.QueryEscape(code),
	}, nil
}
