package services

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const tokenKeyInfo = "tsa-checkout submission token v1"

// ErrInvalidToken covers malformed, forged and expired submission tokens.
var ErrInvalidToken = errors.New("invalid submission token")

// SubmissionClaims binds a token to one submission id.
type SubmissionClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies the submission tokens carried in the
// success/cancel redirect URLs.
type TokenCodec struct {
	key []byte
	now func() time.Time
}

func NewTokenCodec(key []byte) *TokenCodec {
	return &TokenCodec{key: key, now: time.Now}
}

// DeriveTokenKey returns explicit when set. Otherwise it derives a key from
// the payment secret with HKDF-SHA256, and with no secret at all it falls back
// to a random key that only lives as long as the process.
func DeriveTokenKey(explicit, paymentSecret string) ([]byte, bool, error) {
	if explicit != "" {
		return []byte(explicit), true, nil
	}
	key := make([]byte, 32)
	if paymentSecret == "" {
		if _, err := rand.Read(key); err != nil {
			return nil, false, fmt.Errorf("generate token key: %w", err)
		}
		return key, false, nil
	}
	r := hkdf.New(sha256.New, []byte(paymentSecret), nil, []byte(tokenKeyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, false, fmt.Errorf("derive token key: %w", err)
	}
	return key, true, nil
}

func (c *TokenCodec) Sign(sid string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := SubmissionClaims{SID: sid, RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(now), ExpiresAt: jwt.NewNumericDate(now.Add(ttl))}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.key)
}

// Parse verifies tok and returns the submission id it carries.
func (c *TokenCodec) Parse(tok string) (string, error) {
	if tok == "" {
		return "", ErrInvalidToken
	}
	t, err := jwt.ParseWithClaims(tok, &SubmissionClaims{}, func(token *jwt.Token) (interface{}, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if cl, ok := t.Claims.(*SubmissionClaims); ok && t.Valid && cl.SID != "" {
		return cl.SID, nil
	}
	return "", ErrInvalidToken
}
