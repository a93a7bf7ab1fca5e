package models

import "strings"

// Identities namespace reports by how the caller authenticated: a
// registered account or an anonymous session.
const (
	userIdentityPrefix = "user:"
	anonIdentityPrefix = "anon:"
)

// UserIdentity returns the report identity for a registered account
func UserIdentity(username string) string {
	return userIdentityPrefix + username
}

// SessionIdentity returns the report identity for an anonymous session
func SessionIdentity(sessionID string) string {
	return anonIdentityPrefix + sessionID
}

// IsAnonymousIdentity reports whether the identity belongs to an
// anonymous session. Only those are subject to retention sweeps.
func IsAnonymousIdentity(identity string) bool {
	return strings.HasPrefix(identity, anonIdentityPrefix)
}
