// Package models содержит доменные структуры клиента мониторинга
// интеллектуальной собственности.
package models

import (
	"errors"
	"fmt"
)

// Ошибки аутентификации. Обнаружение любой из них на авторизованном
// запросе приводит к принудительному выходу из сессии.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
)

// ErrSubscriptionExists возвращается при попытке создать подписку,
// когда активная уже существует. Не ошибка для вызывающего кода:
// пользователя перенаправляют к существующей подписке.
var ErrSubscriptionExists = errors.New("subscription already exists")

// ErrPasswordChangeRequired возвращается при логине, когда бэкенд
// требует смены пароля и не выдаёт токен.
var ErrPasswordChangeRequired = errors.New("password change required")

// AccessError — ошибка авторизации. В отличие от ошибок аутентификации
// не завершает сессию: пользователю предлагают путь апгрейда тарифа.
// Reason различает формулировку подсказки, обработка у всех одинаковая.
type AccessError struct {
	Reason  AccessReason
	Message string
}

// AccessReason подвид ошибки авторизации.
type AccessReason string

// Подвиды ошибок авторизации.
const (
	ReasonSubscriptionRequired AccessReason = "subscription_required"
	ReasonInsufficientTier     AccessReason = "insufficient_tier"
	ReasonLimitExceeded        AccessReason = "limit_exceeded"
)

func (e *AccessError) Error() string {
	return e.Message
}

// NewSubscriptionRequired возвращает AccessError для функции,
// недоступной без активной подписки.
func NewSubscriptionRequired(feature string) *AccessError {
	return &AccessError{
		Reason:  ReasonSubscriptionRequired,
		Message: fmt.Sprintf("an active subscription is required to use %s", feature),
	}
}

// NewInsufficientTier возвращает AccessError для функции,
// требующей более высокий тариф.
func NewInsufficientTier(required Tier) *AccessError {
	return &AccessError{
		Reason:  ReasonInsufficientTier,
		Message: fmt.Sprintf("this feature requires the %s plan or higher", required),
	}
}

// NewLimitExceeded возвращает AccessError при исчерпании лимита ресурса.
func NewLimitExceeded(kind LimitKind) *AccessError {
	return &AccessError{
		Reason:  ReasonLimitExceeded,
		Message: fmt.Sprintf("tracking limit for %s reached on the current plan", kind),
	}
}

// AsAccessError выделяет AccessError из цепочки ошибок.
func AsAccessError(err error) (*AccessError, bool) {
	var accessErr *AccessError
	if errors.As(err, &accessErr) {
		return accessErr, true
	}
	return nil, false
}
