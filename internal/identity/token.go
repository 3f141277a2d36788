// Package identity models the external identity provider: verified session
// claims, the email domain policy per role, and a push-based session source
// the consistency manager subscribes to.
package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hostelcare/internal/model"
)

type Claims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid_token")

// ParseIDToken verifies a provider-issued ID token and maps its claims to a
// Principal. The subject claim is the stable identifier everything else keys
// off; a token without one is rejected.
func ParseIDToken(secret, issuer, tokenString string) (model.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return model.Principal{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" || claims.Email == "" {
		return model.Principal{}, ErrInvalidToken
	}
	return model.Principal{
		SubjectID:   claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		AvatarURL:   claims.Picture,
	}, nil
}

// NewIDToken mints a token in the shape ParseIDToken expects. Test and dev
// tooling only; production tokens come from the provider.
func NewIDToken(secret, issuer string, principal model.Principal, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Email:   principal.Email,
		Name:    principal.DisplayName,
		Picture: principal.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.SubjectID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
