// Package consent partitions requested OAuth2 scopes into those needing
// user approval and those already granted in a stored consent record.
package consent

import "strings"

// ScopeOpenID is implicit in every OIDC request and never shown on a
// consent page.
const ScopeOpenID = "openid"

const unknownScopeDescription = "Unknown scope requested by the client. Grant with caution."

// Static display descriptions for the scopes this deployment knows about.
var scopeDescriptions = map[string]string{
	"profile":        "Read your basic profile information",
	"email":          "Read your email address",
	"offline_access": "Keep access when you are not signed in",
	"message.read":   "Read your messages",
	"message.write":  "Send messages on your behalf",
}

// Scope is a requested scope enriched with a human-readable description.
type Scope struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Decision is the per-render partition of a consent request. It is computed
// from the engine's stored record and never persisted by this layer.
type Decision struct {
	ScopesToApprove          []Scope `json:"scopes_to_approve"`
	PreviouslyApprovedScopes []Scope `json:"previously_approved_scopes"`
}

// Partition splits the space-delimited requested scope string against the
// scopes already granted. openid is excluded from both sets. Unrecognized
// scopes are surfaced with an explicit caution description; a consent page
// must never hide them.
func Partition(requested string, granted []string) Decision {
	grantedSet := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		grantedSet[s] = struct{}{}
	}

	d := Decision{
		ScopesToApprove:          []Scope{},
		PreviouslyApprovedScopes: []Scope{},
	}

	seen := make(map[string]struct{})
	for _, name := range strings.Fields(requested) {
		if name == ScopeOpenID {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		scope := Scope{Name: name, Description: Describe(name)}
		if _, ok := grantedSet[name]; ok {
			d.PreviouslyApprovedScopes = append(d.PreviouslyApprovedScopes, scope)
		} else {
			d.ScopesToApprove = append(d.ScopesToApprove, scope)
		}
	}

	return d
}

// Describe returns the display description for a scope name.
func Describe(name string) string {
	if desc, ok := scopeDescriptions[name]; ok {
		return desc
	}
	return unknownScopeDescription
}
