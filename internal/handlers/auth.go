package handlers

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"solar-registry/pkg/logging"
)

// Authenticator gates the write endpoints. The server is configured with a
// single owner identity and a bcrypt hash of that owner's credential;
// requests prove themselves with X-Registry-Owner and X-API-Key headers.
type Authenticator struct {
	owner      string
	apiKeyHash string
	logger     *logging.StructuredLogger
}

// NewAuthenticator creates an authenticator for the configured owner
func NewAuthenticator(owner, apiKeyHash string, logger *logging.StructuredLogger) *Authenticator {
	return &Authenticator{
		owner:      owner,
		apiKeyHash: apiKeyHash,
		logger:     logger,
	}
}

// Authenticate returns the verified owner identity for a write request
func (a *Authenticator) Authenticate(r *http.Request) (string, bool) {
	owner := r.Header.Get("X-Registry-Owner")
	apiKey := r.Header.Get("X-API-Key")
	if owner == "" || apiKey == "" {
		return "", false
	}

	if owner != a.owner {
		a.logger.Warn(r.Context(), "[AUTH_REJECT] Unknown owner identity", logging.Fields{
			"owner": owner,
		})
		return "", false
	}

	if bcrypt.CompareHashAndPassword([]byte(a.apiKeyHash), []byte(apiKey)) != nil {
		a.logger.Warn(r.Context(), "[AUTH_REJECT] Credential mismatch", logging.Fields{
			"owner": owner,
		})
		return "", false
	}

	return owner, true
}
