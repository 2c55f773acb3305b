package verification

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid verification token")
	ErrTokenExpired = errors.New("verification token expired")
)

// Issuer выпускает и проверяет подписанные токены {email, purpose, jti, exp}
// для подтверждения почты, сброса пароля и смены почты.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func New(secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// * Generate возвращает токен и момент его истечения.
func (i *Issuer) Generate(email, purpose string) (string, time.Time, error) {
	return i.generate(jwt.MapClaims{}, email, purpose)
}

// * GenerateForUser дополнительно привязывает токен к пользователю через sub.
func (i *Issuer) GenerateForUser(userID int64, email, purpose string) (string, time.Time, error) {
	return i.generate(jwt.MapClaims{"sub": strconv.FormatInt(userID, 10)}, email, purpose)
}

func (i *Issuer) generate(claims jwt.MapClaims, email, purpose string) (string, time.Time, error) {
	const op = "verification.Generate"

	now := i.now()
	expiresAt := time.Unix(now.Add(i.ttl).Unix(), 0)

	claims["email"] = email
	claims["purpose"] = purpose
	claims["jti"] = uuid.NewString()
	claims["iat"] = now.Unix()
	claims["exp"] = expiresAt.Unix()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, expiresAt, nil
}

// * Parse проверяет подпись, назначение и срок действия токена.
// Для истекшего, но корректно подписанного токена возвращает email вместе с ErrTokenExpired.
func (i *Issuer) Parse(tokenStr, purpose string) (string, error) {
	email, _, err := i.parse(tokenStr, purpose)

	return email, err
}

// * ParseForUser возвращает id пользователя из sub и email.
// Токен без sub считается невалидным.
func (i *Issuer) ParseForUser(tokenStr, purpose string) (int64, string, error) {
	const op = "verification.ParseForUser"

	email, claims, err := i.parse(tokenStr, purpose)
	if err != nil {
		return 0, email, err
	}

	sub, _ := claims["sub"].(string)

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return 0, "", fmt.Errorf("%s: missing subject: %w", op, ErrInvalidToken)
	}

	return userID, email, nil
}

func (i *Issuer) parse(tokenStr, purpose string) (string, jwt.MapClaims, error) {
	const op = "verification.Parse"

	claims := jwt.MapClaims{}

	parsedToken, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: unexpected signing method", op)
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)

	email, _ := claims["email"].(string)
	claimedPurpose, _ := claims["purpose"].(string)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && email != "" && claimedPurpose == purpose {
			return email, nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return "", nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	if !parsedToken.Valid {
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if claimedPurpose != purpose {
		return "", nil, fmt.Errorf("%s: invalid token purpose: %w", op, ErrInvalidToken)
	}

	if email == "" {
		return "", nil, fmt.Errorf("%s: missing email claim: %w", op, ErrInvalidToken)
	}

	return email, claims, nil
}
