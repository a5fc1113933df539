package policy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrNoSecret     = errors.New("authentication is not configured")
	ErrInvalidToken = errors.New("invalid bearer token")
)

// TokenIssuer mints and verifies bearer tokens of the form "<user>.<hexsig>",
// where the signature is an HMAC-SHA256 of the user id under a shared secret.
type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret string) *TokenIssuer {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &TokenIssuer{}
	}
	return &TokenIssuer{secret: []byte(secret)}
}

func (t *TokenIssuer) Configured() bool {
	return t != nil && len(t.secret) > 0
}

// Issue returns a bearer token for the user.
func (t *TokenIssuer) Issue(userID string) (string, error) {
	if !t.Configured() {
		return "", ErrNoSecret
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("user id must not be empty")
	}
	return userID + "." + t.sign(userID), nil
}

// Verify checks the token signature and returns the user id it was issued
// for. The hex signature never contains a dot, so the last dot always splits
// user from signature even when the user id itself contains dots.
func (t *TokenIssuer) Verify(token string) (string, error) {
	if !t.Configured() {
		return "", ErrNoSecret
	}
	dot := strings.LastIndexByte(token, '.')
	if dot <= 0 || dot == len(token)-1 {
		return "", ErrInvalidToken
	}
	userID, sig := token[:dot], token[dot+1:]
	if !hmac.Equal([]byte(sig), []byte(t.sign(userID))) {
		return "", ErrInvalidToken
	}
	return userID, nil
}

func (t *TokenIssuer) sign(msg string) string {
	h := hmac.New(sha256.New, t.secret)
	h.Write([]byte(msg))
	return hex.EncodeToString(h.Sum(nil))
}
