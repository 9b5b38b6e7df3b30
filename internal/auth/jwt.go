package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	tokenBlacklistPrefix = "auth:token:blacklist:"
	authCookieName       = "access_token"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrWeakSecretKey = errors.New("jwt secret must be at least 32 bytes")
)

type Claims struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator проверяет JWT, выданный сервисом авторизации
type Authenticator struct {
	secret []byte
	rdb    *redis.Client
}

// NewAuthenticator создаёт проверку токенов; rdb может быть nil (без чёрного списка)
func NewAuthenticator(secret string, rdb *redis.Client) (*Authenticator, error) {
	if len(secret) < 32 {
		return nil, ErrWeakSecretKey
	}
	return &Authenticator{secret: []byte(secret), rdb: rdb}, nil
}

// Authenticate парсит токен и возвращает Principal
func (a *Authenticator) Authenticate(ctx context.Context, tokenString string) (Principal, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Principal{}, ErrUnauthorized
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, ErrUnauthorized
	}

	raw := claims.UserID
	if raw == "" {
		raw = claims.Subject
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	if !claims.Role.Valid() {
		return Principal{}, ErrUnauthorized
	}

	if a.rdb != nil && claims.ID != "" {
		exists, err := a.rdb.Exists(ctx, tokenBlacklistPrefix+claims.ID).Result()
		if err != nil {
			return Principal{}, err
		}
		if exists == 1 {
			return Principal{}, ErrUnauthorized
		}
	}

	return Principal{UserID: userID, Role: claims.Role, Name: claims.Name}, nil
}

// SignToken выпускает токен для principal (используется в тестах и утилитах)
func SignToken(p Principal, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: p.UserID.String(),
		Role:   p.Role,
		Name:   p.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// TokenFromRequest достаёт токен из Authorization или cookie
func TokenFromRequest(r *http.Request) (string, error) {
	if token, err := ExtractBearerToken(r.Header.Get("Authorization")); err == nil {
		return token, nil
	}

	if cookie, err := r.Cookie(authCookieName); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token, nil
		}
	}

	return "", ErrUnauthorized
}

func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrUnauthorized
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrUnauthorized
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrUnauthorized
	}

	return token, nil
}
