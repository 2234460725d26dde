/*
Package auth verifies bearer tokens and carries the resulting building scope
through a request context.

TOKENS:
  Tokens are HS256 JWTs issued by the identity provider. The claims used are:
    sub          user id
    building_id  building the user acts on
    role         admin | committee | tenant
  NewToken exists for the CLI, dev mode and tests.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims defines the structure of the JWT claims.
type Claims struct {
	BuildingID string `json:"building_id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// Scope converts verified claims into a building scope.
func (c *Claims) Scope() billing.BuildingScope {
	return billing.BuildingScope{
		BuildingID: billing.BuildingID(c.BuildingID),
		UserID:     billing.UserID(c.Subject),
		Role:       billing.Role(c.Role),
	}
}

// NewToken signs a token for the scope.
func NewToken(scope billing.BuildingScope, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		BuildingID: string(scope.BuildingID),
		Role:       string(scope.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(scope.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the token and returns its claims.
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	switch billing.Role(claims.Role) {
	case billing.RoleAdmin, billing.RoleCommittee, billing.RoleTenant:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// =============================================================================
// CONTEXT
// =============================================================================

type scopeKey struct{}

// WithScope stores the scope in the context.
func WithScope(ctx context.Context, scope billing.BuildingScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFrom returns the scope stored by WithScope.
func ScopeFrom(ctx context.Context) (billing.BuildingScope, bool) {
	scope, ok := ctx.Value(scopeKey{}).(billing.BuildingScope)
	return scope, ok
}
