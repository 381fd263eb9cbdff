// Package token реализует клиентский разбор JWT токена без проверки подписи.
//
// Клиент не владеет секретным ключом и не может проверить подпись —
// авторитетным сигналом истечения остаётся 401 от бэкенда. Разбор здесь
// нужен только чтобы заранее не отправлять заведомо обречённый запрос.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims описывает данные, которые бэкенд кладёт в токен.
type Claims struct {
	Username             string `json:"username"` // Имя пользователя
	Role                 string `json:"role"`     // Роль пользователя
	jwt.RegisteredClaims        // Стандартные claims (ExpiresAt, IssuedAt и пр.)
}

// Decode разбирает токен без проверки подписи и возвращает claims.
func Decode(tokenStr string) (*Claims, error) {
	const op = "token.Decode"
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return claims, nil
}

// IsExpired сообщает, истёк ли срок действия токена.
//
// Работает fail-closed: пустой, нечитаемый токен или токен без claim
// об истечении считаются истёкшими.
func IsExpired(tokenStr string) bool {
	if tokenStr == "" {
		return true
	}
	claims, err := Decode(tokenStr)
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return !claims.ExpiresAt.Time.After(time.Now())
}
