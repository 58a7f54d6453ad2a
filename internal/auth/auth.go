package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/papertags/smart-papertags-app/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Principal is the authenticated identity carried by a bearer token.
type Principal struct {
	AccountID uint64 `json:"sub"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

type tokenPayload struct {
	Principal
	ExpiresAt int64 `json:"exp"`
}

// Tokens issues and verifies signed bearer tokens. The token is a base64
// JSON payload plus an HMAC-SHA256 signature over it.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

func (t *Tokens) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

func (t *Tokens) Issue(p Principal) (string, error) {
	payload, err := json.Marshal(tokenPayload{
		Principal: p,
		ExpiresAt: time.Now().UTC().Add(t.ttl).Unix(),
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal token payload")
	}

	enc := base64.RawURLEncoding
	return enc.EncodeToString(payload) + "." + enc.EncodeToString(t.sign(payload)), nil
}

func (t *Tokens) Verify(token string) (*Principal, error) {
	body, sig, ok := strings.Cut(token, ".")
	if !ok {
		return nil, ErrInvalidToken
	}

	enc := base64.RawURLEncoding
	payload, err := enc.DecodeString(body)
	if err != nil {
		return nil, ErrInvalidToken
	}
	gotSig, err := enc.DecodeString(sig)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !hmac.Equal(gotSig, t.sign(payload)) {
		return nil, ErrInvalidToken
	}

	var tp tokenPayload
	if err := json.Unmarshal(payload, &tp); err != nil {
		return nil, ErrInvalidToken
	}
	if time.Now().UTC().Unix() >= tp.ExpiresAt {
		return nil, ErrExpiredToken
	}
	return &tp.Principal, nil
}
