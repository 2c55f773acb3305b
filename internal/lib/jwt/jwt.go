package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// AccessClaims - полезная нагрузка access токена: {sub, email, roles}.
type AccessClaims struct {
	UserID    int64
	Email     string
	Roles     []string
	ExpiresAt time.Time
}

type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func New(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// WithClock подменяет часы (используется в тестах).
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) NewAccessToken(userID int64, email string, roles []string) (string, error) {
	const op = "jwt.NewAccessToken"

	if roles == nil {
		roles = []string{}
	}

	now := m.now()

	claims := gojwt.MapClaims{
		"sub":   userID,
		"email": email,
		"roles": roles,
		"iat":   now.Unix(),
		"exp":   now.Add(m.accessTTL).Unix(),
	}

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// * NewRefreshToken выпускает refresh токен {sub, jti} и возвращает момент его истечения.
// jti делает каждый токен уникальным даже в пределах одной секунды.
func (m *Manager) NewRefreshToken(userID int64) (string, time.Time, error) {
	const op = "jwt.NewRefreshToken"

	now := m.now()
	expiresAt := now.Add(m.refreshTTL)

	claims := gojwt.MapClaims{
		"jti": uuid.NewString(),
		"sub": userID,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, time.Unix(expiresAt.Unix(), 0), nil
}

func (m *Manager) ParseAccessToken(tokenStr string) (AccessClaims, error) {
	const op = "jwt.ParseAccessToken"

	claims, err := m.parse(tokenStr, m.accessSecret)
	if err != nil {
		return AccessClaims{}, fmt.Errorf("%s: %w", op, err)
	}

	userID, err := subject(claims)
	if err != nil {
		return AccessClaims{}, fmt.Errorf("%s: %w", op, err)
	}

	email, ok := claims["email"].(string)
	if !ok {
		return AccessClaims{}, fmt.Errorf("%s: missing email claim: %w", op, ErrInvalidToken)
	}

	rawRoles, _ := claims["roles"].([]any)
	roles := make([]string, 0, len(rawRoles))
	for _, r := range rawRoles {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return AccessClaims{}, fmt.Errorf("%s: missing exp claim: %w", op, ErrInvalidToken)
	}

	return AccessClaims{
		UserID:    userID,
		Email:     email,
		Roles:     roles,
		ExpiresAt: exp.Time,
	}, nil
}

func (m *Manager) ParseRefreshToken(tokenStr string) (int64, error) {
	const op = "jwt.ParseRefreshToken"

	claims, err := m.parse(tokenStr, m.refreshSecret)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if _, ok := claims["jti"].(string); !ok {
		return 0, fmt.Errorf("%s: missing jti claim: %w", op, ErrInvalidToken)
	}

	userID, err := subject(claims)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return userID, nil
}

func (m *Manager) parse(tokenStr string, secret []byte) (gojwt.MapClaims, error) {
	claims := gojwt.MapClaims{}

	token, err := gojwt.ParseWithClaims(tokenStr, claims, func(t *gojwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func subject(claims gojwt.MapClaims) (int64, error) {
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, fmt.Errorf("missing sub claim: %w", ErrInvalidToken)
	}

	return int64(sub), nil
}
