package authsdk

import (
	"time"

	"github.com/aussiebroadwan/tally/pkg/jwtx"
)

// Credentials is the body of sign-up and sign-in.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,notblank,min=8,max=128"`
}

// SessionResponse is returned when a session cookie pair is issued.
type SessionResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StatusResponse describes the current session.
type StatusResponse struct {
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"user_id"`
	Email         string    `json:"email"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// CredentialResponse carries a delegated credential for the database proxy
// or the sync backend. The same token is also set as a cookie.
type CredentialResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database    string `json:"database"`
	Credentials string `json:"credentials"`
}

// JWKSResponse is the body of /.well-known/jwks.json.
type JWKSResponse jwtx.JWKS
