package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ndemidenko/pressroom/internal/repo"
)

// TokenService issues and validates bearer tokens. Revocation is by
// timestamp: a token is valid only when its issued-at instant is
// strictly after the subject's token blacklist date.
type TokenService struct {
	Users  *repo.UserRepo
	Secret []byte
	TTL    time.Duration
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (t *TokenService) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *TokenService) IssueToken(userID uint) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(t.TTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry and returns the claims.
func (t *TokenService) Parse(raw string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signature method: %v", token.Header["alg"])
		}
		return t.Secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("cannot parse claims")
	}
	return claims, nil
}

// Validate answers whether an already signature-verified claim set still
// names an active, non-revoked subject. It never fails past its
// boundary: any lookup problem is a negative answer.
func (t *TokenService) Validate(ctx context.Context, claims jwt.MapClaims) bool {
	sub, ok := claims["sub"].(float64)
	if !ok {
		return false
	}
	iat, ok := claims["iat"].(float64)
	if !ok {
		return false
	}
	issuedAt := time.Unix(int64(iat), 0)

	user, err := t.Users.FindOneByID(ctx, uint(sub), false)
	if err != nil {
		return false
	}
	if user.TokenBlacklistDate != nil && !issuedAt.After(*user.TokenBlacklistDate) {
		return false
	}
	return true
}
