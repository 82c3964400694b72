// Package auth validates HS256 bearer tokens and exposes the caller's
// identity to handlers.
package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"

	"github.com/codyseavey/cardcatalog/internal/models"
)

type contextKey string

// ClaimsKey is the context key for storing validated claims.
const ClaimsKey contextKey = "claims"

// Claims is the token payload. Subject carries the numeric user id.
type Claims struct {
	jwt.RegisteredClaims
	Username string      `json:"name,omitempty"`
	Role     models.Role `json:"role,omitempty"`
}

// Identity is the authenticated caller.
type Identity struct {
	UserID   uint
	Username string
	Role     models.Role
}

// IsAdmin reports whether the caller may review bundles.
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// Identity converts the claims into an Identity.
func (c *Claims) Identity() (Identity, error) {
	if c.Subject == "" {
		return Identity{}, eris.New("missing subject in token")
	}
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return Identity{}, eris.Errorf("invalid subject %q", c.Subject)
	}
	role := c.Role
	if role == "" {
		role = models.RoleContributor
	}
	return Identity{UserID: uint(id), Username: c.Username, Role: role}, nil
}

// WithIdentity stores the caller identity on a context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ClaimsKey, id)
}

// FromContext returns the identity stored by the middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ClaimsKey).(Identity)
	return id, ok
}

// Signer issues and validates tokens with a shared secret.
type Signer struct {
	secret []byte
	issuer string
}

// NewSigner creates a Signer. An empty secret is rejected.
func NewSigner(secret, issuer string) (*Signer, error) {
	if secret == "" {
		return nil, eris.New("auth: jwt secret is empty")
	}
	return &Signer{secret: []byte(secret), issuer: issuer}, nil
}

// Issue signs a token for the given identity.
func (s *Signer) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: id.Username,
		Role:     id.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", eris.Wrap(err, "auth: sign token")
	}
	return signed, nil
}

// Parse validates a raw token and returns the caller identity.
func (s *Signer) Parse(raw string) (Identity, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, eris.Wrap(err, "auth: parse token")
	}
	return claims.Identity()
}
