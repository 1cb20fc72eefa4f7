// Package jwt реализует разбор и выпуск HS256-токенов персонала.
// Токены выдаёт бэк-офис (вне этого сервиса); здесь хранится только
// общий секрет для проверки подписи. Генерация используется в тестах
// и служебных утилитах.
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StaffClaims описывает данные токена сотрудника.
type StaffClaims struct {
	Username             string `json:"username"` // Логин сотрудника в бэк-офисе
	Role                 string `json:"role"`     // staff или instructor
	jwt.RegisteredClaims        // Стандартные claims (ExpiresAt, IssuedAt и пр.)
}

// Maker описывает интерфейс выпуска и разбора токенов персонала.
type Maker interface {
	GenerateToken(username, role string) (string, error)
	ParseToken(tokenStr string) (*StaffClaims, error)
}

// MakerImpl реализует Maker на общем секрете и фиксированном TTL.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewMaker создаёт MakerImpl на основе секретного ключа и TTL.
func NewMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}

// GenerateToken создает токен с заданными username и role,
// подписывая его секретным ключом.
func (j *MakerImpl) GenerateToken(username, role string) (string, error) {
	claims := StaffClaims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ParseToken проверяет подпись и срок действия токена,
// возвращает StaffClaims, если токен корректен.
func (j *MakerImpl) ParseToken(tokenStr string) (*StaffClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &StaffClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*StaffClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
