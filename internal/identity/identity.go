// Package identity signs the dashboard session in, either with a custom
// token issued for a known user or anonymously.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrSignIn is returned when the session cannot be established.
var ErrSignIn = errors.New("sign-in failed")

// Session is the signed-in user.
type Session struct {
	UserID     string    `json:"userId"`
	Anonymous  bool      `json:"anonymous"`
	SignedInAt time.Time `json:"signedInAt"`
}

// Provider establishes a session.
type Provider interface {
	SignIn(ctx context.Context) (Session, error)
}

// Signer issues and verifies custom tokens: HS256 JWTs keyed by the store
// credential whose subject is the user id.
type Signer struct {
	key []byte
	now func() time.Time
}

// NewSigner returns a signer keyed by the store credential.
func NewSigner(key string) *Signer {
	return &Signer{key: []byte(key), now: time.Now}
}

// Issue returns a custom token for uid.
func (s *Signer) Issue(uid string) (string, error) {
	if strings.TrimSpace(uid) == "" {
		return "", fmt.Errorf("%w: empty user id", ErrSignIn)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  uid,
		IssuedAt: jwt.NewNumericDate(s.now()),
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// Verify returns the user id carried by token.
func (s *Signer) Verify(token string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	var claims jwt.RegisteredClaims
	_, err := parser.ParseWithClaims(strings.TrimSpace(token), &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignIn, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrSignIn)
	}
	return claims.Subject, nil
}

// TokenProvider signs in with a custom token, or anonymously when the token is empty.
type TokenProvider struct {
	signer *Signer
	token  string
}

// NewTokenProvider returns a provider for token verified by signer.
func NewTokenProvider(signer *Signer, token string) *TokenProvider {
	return &TokenProvider{signer: signer, token: token}
}

// SignIn implements Provider.
func (p *TokenProvider) SignIn(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrSignIn, err)
	}
	now := p.signer.now().UTC()
	if strings.TrimSpace(p.token) == "" {
		return Session{UserID: uuid.NewString(), Anonymous: true, SignedInAt: now}, nil
	}
	uid, err := p.signer.Verify(p.token)
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: uid, SignedInAt: now}, nil
}
