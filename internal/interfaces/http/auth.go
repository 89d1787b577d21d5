package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// ErrUnauthenticated is returned for a missing, malformed or expired bearer token
var ErrUnauthenticated = errors.New("unauthenticated")

// Claims are the bearer token claims issued by the auth collaborator.
// The subject is the actor id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 bearer tokens and turns them into actors
type TokenVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenVerifier creates a verifier for tokens signed with secret.
// An empty issuer accepts any iss claim.
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// Verify parses a raw token and returns the actor it identifies
func (v *TokenVerifier) Verify(raw string) (entity.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return entity.Actor{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	actor := entity.Actor{
		ID:   strings.TrimSpace(claims.Subject),
		Role: workflow.Role(strings.ToUpper(claims.Role)),
	}
	if actor.ID == "" {
		return entity.Actor{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	if !actor.Role.IsValid() {
		return entity.Actor{}, fmt.Errorf("%w: unknown role %q", ErrUnauthenticated, claims.Role)
	}
	return actor, nil
}

// Issue signs a token for an actor. The auth collaborator owns issuance in
// production; this is used by local tooling and tests.
func (v *TokenVerifier) Issue(actor entity.Actor, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
