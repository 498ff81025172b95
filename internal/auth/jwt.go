package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the signed-in user's identity.
type Claims struct {
	UserID   int64  `json:"userId"`
	Email    string `json:"email"`
	Language string `json:"lang,omitempty"`
	jwt.RegisteredClaims
}

type Maker interface {
	GenerateToken(userID int64, email, language string) (string, error)
	ParseToken(tokenStr string) (*Claims, error)
}

type JWTMaker struct {
	secretKey []byte
	tokenTTL  time.Duration
}

func NewJWTMaker(secretKey string, ttl time.Duration) *JWTMaker {
	return &JWTMaker{secretKey: []byte(secretKey), tokenTTL: ttl}
}

func (m *JWTMaker) GenerateToken(userID int64, email, language string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Email:    email,
		Language: language,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

func (m *JWTMaker) ParseToken(tokenStr string) (*Claims, error) {
	const op = "auth.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
