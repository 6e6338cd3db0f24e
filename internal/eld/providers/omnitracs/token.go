package omnitracs

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenAudience = "omnitracs-hos"
	tokenLifetime = 5 * time.Minute
)

// assertionClaims is the short-lived bearer assertion Omnitracs expects.
type assertionClaims struct {
	jwt.RegisteredClaims
}

// tokenSigner issues HS256 assertions signed with the API secret, subject = API key.
type tokenSigner struct {
	apiKey     string
	signingKey []byte
	now        func() time.Time
}

func newTokenSigner(apiKey, secret string, now func() time.Time) *tokenSigner {
	if now == nil {
		now = time.Now
	}
	return &tokenSigner{apiKey: apiKey, signingKey: []byte(secret), now: now}
}

func (s *tokenSigner) sign() (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, assertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.apiKey,
			Audience:  []string{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}
