// Package pin реализует хеширование и проверку PIN-кода персонала киоска.
// В конфигурации хранится только bcrypt-хэш; сам PIN никогда не пишется
// ни в конфиг, ни в логи.
package pin

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hash принимает PIN и возвращает его bcrypt-хэш для хранения в конфигурации.
func Hash(pin string) (string, error) {
	const op = "pin.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Compare сравнивает bcrypt-хэш с введённым PIN.
// Возвращает nil при совпадении, иначе — ошибку.
func Compare(hash, pin string) error {
	const op = "pin.Compare"
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
