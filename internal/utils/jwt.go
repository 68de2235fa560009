package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mentorlink/internal/config"
)

// UserClaims are the JWT claims carried by every authenticated request.
type UserClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"` // mentor, mentee
	jwt.RegisteredClaims
}

// GenerateUserJWT issues a signed token for a user.
func GenerateUserJWT(userID, name, role string) (string, error) {
	cfg := config.Load()

	now := time.Now()
	claims := UserClaims{
		UserID: userID,
		Name:   name,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.JWT.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour * time.Duration(cfg.JWT.ExpiryHour))),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWT.Secret))
}

// ValidateUserJWT parses and verifies a user token.
func ValidateUserJWT(tokenString string) (*UserClaims, error) {
	cfg := config.Load()

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
