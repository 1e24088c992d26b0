// Package identity defines the boundary to the external identity provider.
// The core only ever sees a verified Principal; how the bearer credential is
// validated is an implementation detail behind the Verifier interface.
package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	apperrors "chamapool/internal/errors"
)

// Principal is the verified identity extracted from a bearer credential.
// Subject is the provider's stable user key.
type Principal struct {
	Subject string
	Email   string
	Name    string
}

// Verifier validates a bearer credential and returns the principal it
// represents.
type Verifier interface {
	Verify(token string) (*Principal, error)
}

// Claims is the token payload accepted from the identity provider.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256-signed tokens issued by the identity provider.
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier creates a Verifier for tokens signed with the shared secret.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses and validates the token and returns its principal.
// Any parse, signature, expiry, or issuer failure maps to ErrInvalidCredential.
func (v *JWTVerifier) Verify(tokenString string) (*Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.Wrap(apperrors.ErrInvalidCredential, err)
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidCredential, "Token issued by unknown provider")
	}
	if claims.Subject == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidCredential, "Token has no subject")
	}

	return &Principal{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}, nil
}
