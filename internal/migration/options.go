package migration

import (
	"fmt"
	"strings"

	apperr "github.com/memoraapp/memora/internal/errors"
)

// CredentialPolicy decides what happens to imported users without a
// password credential.
type CredentialPolicy int

const (
	// CredentialReject records such users as per-record errors.
	CredentialReject CredentialPolicy = iota
	// CredentialForceReset stores a random credential and flags the user for
	// a password reset.
	CredentialForceReset
	// CredentialPlaceholder stores a hash of a caller-supplied secret.
	CredentialPlaceholder
)

var credentialPolicyNames = map[CredentialPolicy]string{
	CredentialReject:      "reject",
	CredentialForceReset:  "force-reset",
	CredentialPlaceholder: "placeholder",
}

func (p CredentialPolicy) String() string {
	if s, ok := credentialPolicyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("CredentialPolicy(%d)", int(p))
}

// ParseCredentialPolicy parses reject, force-reset or placeholder.
func ParseCredentialPolicy(s string) (CredentialPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CredentialReject, nil
	}
	for p, name := range credentialPolicyNames {
		if name == s {
			return p, nil
		}
	}
	return 0, apperr.Validationf("unknown credential policy %q (must be reject, force-reset or placeholder)", s)
}

// Options selects which record groups a migration imports.
type Options struct {
	IncludeCollections   bool `json:"includeCollections"`
	IncludePrivatePosts  bool `json:"includePrivatePosts"`
	IncludeKnowledgeBase bool `json:"includeKnowledgeBase"`

	Credentials CredentialPolicy `json:"-"`
	// Placeholder is the secret used by CredentialPlaceholder.
	Placeholder string `json:"-"`
}

// Validate reports configuration errors that make a migration impossible.
func (o Options) Validate() error {
	switch o.Credentials {
	case CredentialReject, CredentialForceReset:
		return nil
	case CredentialPlaceholder:
		if o.Placeholder == "" {
			return apperr.Validation("placeholder credential policy requires a placeholder secret")
		}
		return nil
	default:
		return apperr.Validationf("unknown credential policy %d", int(o.Credentials))
	}
}
