package password

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const DefaultCost = 10

// MaxBytes - предел bcrypt на длину пароля.
const MaxBytes = 72

var ErrTooLong = errors.New("password exceeds 72 bytes")

// Hasher хеширует пароли и refresh токены через bcrypt с настраиваемой стоимостью.
type Hasher struct {
	cost int
}

func New(cost int) *Hasher {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}

	return &Hasher{cost: cost}
}

func (h *Hasher) Cost() int {
	return h.cost
}

func (h *Hasher) Hash(plain string) ([]byte, error) {
	const op = "password.Hash"

	if len(plain) > MaxBytes {
		return nil, fmt.Errorf("%s: %w", op, ErrTooLong)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return hash, nil
}

func (h *Hasher) Compare(hash []byte, plain string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain)) == nil
}

// * HashToken хеширует refresh токен. JWT длиннее 72 байт, поэтому в bcrypt
// уходит hex SHA-256 от токена.
func (h *Hasher) HashToken(raw string) ([]byte, error) {
	return h.Hash(digest(raw))
}

func (h *Hasher) CompareToken(hash []byte, raw string) bool {
	return h.Compare(hash, digest(raw))
}

func digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
