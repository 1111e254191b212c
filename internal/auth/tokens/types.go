// Package tokens is the fixed registry of token kinds the auth service
// issues, and the codec that signs and verifies them by kind.
package tokens

import (
	"fmt"
)

// Type is a closed enumeration of token kinds.
type Type int

const (
	// Access is the primary session token. Asymmetric so downstream
	// services can verify it from the JWKS.
	Access Type = iota + 1

	// Refresh renews an access token. Only this service verifies it.
	Refresh

	// DBAccess is a short-lived delegated credential for the database
	// proxy.
	DBAccess

	// Sync is a short-lived delegated credential for the sync backend,
	// verified there against the JWKS.
	Sync
)

// All lists every token type in declaration order.
var All = []Type{Access, Refresh, DBAccess, Sync}

func (t Type) String() string {
	switch t {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	case DBAccess:
		return "db_access"
	case Sync:
		return "sync"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// CookieName is the cookie this type travels in, or "" for an unknown type.
func (t Type) CookieName() string {
	switch t {
	case Access:
		return "access_token"
	case Refresh:
		return "refresh_token"
	case DBAccess:
		return "db_access_token"
	case Sync:
		return "sync_token"
	default:
		return ""
	}
}

// Valid reports whether t is one of the declared types.
func (t Type) Valid() bool {
	return t >= Access && t <= Sync
}
