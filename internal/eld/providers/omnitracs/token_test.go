package omnitracs

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// verify is the vendor side of sign.
func (s *tokenSigner) verify(tokenString string) (*assertionClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &assertionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithAudience(tokenAudience), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*assertionClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid assertion")
	}
	return claims, nil
}
