// Package models содержит доменные структуры клиента мониторинга
// интеллектуальной собственности: пользователь, подписка, события оповещений.
package models

import "strings"

// User представляет профиль аутентифицированного пользователя.
//
// Roles нормализуются к верхнему регистру на границе API-клиента:
// бэкенд исторически присылает роль то строкой, то объектом с полем name,
// дальше этой границы неоднозначность не проходит.
type User struct {
	UID      string   `json:"uid"`      // Уникальный идентификатор пользователя
	Username string   `json:"username"` // Имя пользователя
	Email    string   `json:"email"`    // Электронная почта
	Roles    []string `json:"roles"`    // Роли: USER, ANALYST, ADMIN
}

// HasRole проверяет членство хотя бы в одной из перечисленных ролей.
// Сравнение регистронезависимое, порядок ролей не важен.
func (u *User) HasRole(roles ...string) bool {
	if u == nil {
		return false
	}
	for _, want := range roles {
		for _, have := range u.Roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}
