package api

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// userIDClaim carries the authenticated user's hex identifier inside the
// token. The authenticator copies it into the X-User-Id header, so
// handlers read an identity without ever touching the token.
const userIDClaim = "userId"

// authenticator validates the JWT found by the Verifier middleware and
// rejects requests whose token lacks the user claim.
func (a *API) authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
			return
		}
		if err := jwt.Validate(token, jwt.WithRequiredClaim(userIDClaim)); err != nil {
			http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
			return
		}
		id, ok := claims[userIDClaim].(string)
		if !ok {
			http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
			return
		}
		r.Header.Set("X-User-Id", id)
		next.ServeHTTP(w, r)
	})
}

// makeToken signs a token for the given user identifier, valid for
// jwtExpiration from now.
func (a *API) makeToken(id string) (*LoginResponse, error) {
	expires := time.Now().Add(jwtExpiration)
	token, err := jwt.NewBuilder().
		Claim(userIDClaim, id).
		Expiration(expires).
		Build()
	if err != nil {
		return nil, ErrInternalServerError.WithErr(fmt.Errorf("failed to build token: %w", err))
	}
	claims, err := token.AsMap(context.Background())
	if err != nil {
		return nil, ErrInternalServerError.WithErr(fmt.Errorf("failed to read token claims: %w", err))
	}
	_, signed, err := a.auth.Encode(claims)
	if err != nil {
		return nil, ErrInternalServerError.WithErr(fmt.Errorf("failed to sign token: %w", err))
	}
	return &LoginResponse{Token: signed, Expirity: expires}, nil
}

// hashPassword derives the salted digest stored for a user. Register and
// login must agree on this derivation; nothing else may read it.
func hashPassword(password string) []byte {
	h := sha256.New()
	h.Write([]byte(passwordSalt))
	h.Write([]byte(password))
	return h.Sum(nil)
}
