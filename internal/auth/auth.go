// Package auth enforces the front-end credential pair the proxy's own
// clients authenticate with, independent of the single backend credential
// the proxy itself presents upstream (spec §6). Adapted from pkg/user's
// bcrypt-backed multi-user store, cut down to the one static
// username/hash pair the spec defines — there is no per-user CRUD surface
// here, so the JSON file store and its CLI subcommands were not carried
// over (see DESIGN.md).
package auth

import (
	"crypto/subtle"
	"fmt"
	"log"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// Credential is the proxy's single front-end identity.
type Credential struct {
	username     string
	passwordHash []byte
}

// NewCredential hashes password with bcrypt, the same mechanism
// pkg/user.Store uses for its per-user records.
func NewCredential(username, password string) (*Credential, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("auth: username and password must both be set")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	return &Credential{username: username, passwordHash: hash}, nil
}

// Check reports whether username/password match the configured credential.
// The username comparison is constant-time to avoid leaking its length or
// contents through timing; the password check is bcrypt's own constant-time
// comparison.
func (c *Credential) Check(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) != 1 {
		// Still run bcrypt against the configured hash so a mismatched
		// username doesn't let timing distinguish "no such user" from
		// "wrong password" the way a short-circuit would.
		bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)) == nil
}

// Middleware enforces HTTP Basic Auth against cred, matching the teacher's
// authMiddleware shape but against the single static credential instead of
// a multi-user store.
func Middleware(cred *Credential, realm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok || !cred.Check(username, password) {
				if ok {
					log.Printf("auth: rejected credentials for user %q", username)
				}
				w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", realm))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
