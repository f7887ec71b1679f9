// Package auth verifies RS256 bearer tokens and carries the authenticated
// user in the request context.
package auth

import (
	"context"
	"crypto/rsa"
	"net/http"
	"strings"

	"callback/pkg/domain"
	"callback/pkg/serrors"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the JWT claims accepted by the Verifier.
type Claims struct {
	jwt.RegisteredClaims

	Scope string `json:"scope,omitempty"`
}

// Options configures a Verifier.
type Options struct {
	// PublicKey is the PEM encoded RSA public key used to verify signatures.
	PublicKey string
}

// Verifier validates bearer tokens.
type Verifier struct {
	key    *rsa.PublicKey
	parser *jwt.Parser
}

// NewVerifier parses the configured public key.
func NewVerifier(opts Options) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(opts.PublicKey))
	if err != nil {
		return nil, errors.Wrap(err, "parse RSA public key")
	}

	return &Verifier{
		key:    key,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})),
	}, nil
}

// Verify parses and validates token, returning the user it identifies.
// Every failure is reported as serrors.ErrUnauthorized.
func (v *Verifier) Verify(token string) (*domain.User, error) {
	var claims Claims
	if _, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}); err != nil {
		return nil, serrors.Wrap(serrors.ErrUnauthorized, err, "invalid token")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrUnauthorized, err, "invalid token subject")
	}

	user := &domain.User{ID: domain.UserID(id)}
	if claims.Scope != "" {
		user.Scopes = strings.Fields(claims.Scope)
	}

	return user, nil
}

// key is the context key of the authenticated user.
type key struct{}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, key{}, user)
}

// UserFromContext returns the authenticated user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(key{}).(*domain.User)

	return user
}

// RejectFunc answers a request whose token was refused.
type RejectFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates requests carrying "Authorization: Bearer <token>".
// Requests without the header pass through anonymously; controllers decide
// whether a user is required. Invalid tokens are handed to reject.
func Middleware(v *Verifier, reject RejectFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)

				return
			}

			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") {
				reject(w, r, serrors.With(serrors.ErrUnauthorized, "unsupported authorization scheme"))

				return
			}

			user, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				reject(w, r, err)

				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
