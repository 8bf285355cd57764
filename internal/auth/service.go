// Package auth guards the operator endpoints with HS256 bearer tokens.
package auth

import (
	"fmt"
	"time"

	"github.com/abduss/msc/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "msc"

// AdminClaims describes the validated identity extracted from an admin token.
type AdminClaims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Verifier issues and validates admin tokens.
type Verifier struct {
	secret  []byte
	nowFunc func() time.Time
	parser  *jwt.Parser
}

// NewVerifier creates a Verifier for the configured secret.
func NewVerifier(cfg config.AuthConfig) *Verifier {
	return &Verifier{
		secret:  []byte(cfg.AdminTokenSecret),
		nowFunc: time.Now,
		parser:  jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})),
	}
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0
}

// Issue signs an admin token for subject valid for ttl.
func (v *Verifier) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if !v.Enabled() {
		return "", time.Time{}, ErrNoSecret
	}
	now := v.nowFunc()
	expiresAt := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":      subject,
		"iss":      issuer,
		"iat":      now.Unix(),
		"exp":      expiresAt.Unix(),
		"is_admin": true,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses tokenString and returns its claims when it carries admin rights.
func (v *Verifier) Validate(tokenString string) (AdminClaims, error) {
	if !v.Enabled() {
		return AdminClaims{}, ErrUnauthorized
	}
	token, err := v.parser.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return AdminClaims{}, ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return AdminClaims{}, ErrUnauthorized
	}
	if iss, _ := claims["iss"].(string); iss != issuer {
		return AdminClaims{}, ErrUnauthorized
	}

	expFloat, okExp := claims["exp"].(float64)
	if !okExp {
		return AdminClaims{}, ErrUnauthorized
	}
	exp := time.Unix(int64(expFloat), 0)
	if exp.Before(v.nowFunc()) {
		return AdminClaims{}, ErrUnauthorized
	}

	iat := time.Time{}
	if iatFloat, ok := claims["iat"].(float64); ok {
		iat = time.Unix(int64(iatFloat), 0)
	}

	if isAdmin, _ := claims["is_admin"].(bool); !isAdmin {
		return AdminClaims{}, ErrForbidden
	}

	subject, _ := claims["sub"].(string)
	return AdminClaims{
		Subject:   subject,
		ExpiresAt: exp,
		IssuedAt:  iat,
	}, nil
}
