package authapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// TokenService issues and parses HS256 tokens whose subject is the user's email.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. A non-positive ttl means 24h.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate issues a token for email.
func (s *TokenService) Generate(email string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("authapi: sign token: %w", err)
	}
	return signed, nil
}

// Parse validates signature and expiry and returns the subject.
// A "Bearer " prefix is accepted.
func (s *TokenService) Parse(tokenStr string) (string, error) {
	if len(tokenStr) > 7 && strings.EqualFold(tokenStr[:7], "bearer ") {
		tokenStr = strings.TrimSpace(tokenStr[7:])
	}
	if tokenStr == "" {
		return "", errors.New("authapi: empty token")
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("authapi: parse token: %w", err)
	}
	return claims.Subject, nil
}

// Passwords hashes and verifies passwords with bcrypt.
type Passwords struct {
	Cost int
}

func (p Passwords) Hash(raw string) (string, error) {
	cost := p.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", fmt.Errorf("authapi: hash password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether raw matches encoded. A Spring style "{bcrypt}"
// prefix on encoded is accepted.
func (p Passwords) Verify(raw, encoded string) (bool, error) {
	encoded = strings.TrimPrefix(encoded, "{bcrypt}")
	if encoded == "" {
		return false, errors.New("authapi: empty password hash")
	}
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(raw))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
