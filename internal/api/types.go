// Package api реализует HTTP-клиент к бэкенду мониторинга
// интеллектуальной собственности.
package api

import (
	"encoding/json"

	"github.com/ipwatch/ip-monitor-client/internal/models"
)

// LoginRequest — структура входных данных для авторизации.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginResponse — ответ бэкенда на авторизацию.
// При PasswordChangeRequired токен не выдаётся.
type LoginResponse struct {
	Token                  string `json:"token"`
	PasswordChangeRequired bool   `json:"password_change_required"`
}

// CreateSubscriptionRequest — структура входных данных для создания подписки.
type CreateSubscriptionRequest struct {
	Type               string      `json:"type" validate:"required"`
	Tier               models.Tier `json:"tier" validate:"required,oneof=BASIC PRO ENTERPRISE"`
	AlertFrequency     string      `json:"alert_frequency" validate:"required,oneof=REALTIME DAILY WEEKLY"`
	EmailNotifications bool        `json:"email_notifications"`
	RealtimeAlerts     bool        `json:"realtime_alerts"`
}

// TrackingPreferences — флаги отслеживания для патента.
type TrackingPreferences struct {
	PatentID          string `json:"patent_id" validate:"required"`
	TrackStatus       bool   `json:"track_status"`
	TrackLegalEvents  bool   `json:"track_legal_events"`
	TrackFamilyChange bool   `json:"track_family_change"`
}

// errorResponse — стандартный конверт ошибки бэкенда.
type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// profileResponse — ответ бэкенда на запрос профиля.
// Roles принимает обе исторические формы: строку и объект с полем name.
type profileResponse struct {
	UID      string     `json:"uid"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Roles    []roleName `json:"roles"`
}

// roleName нормализует роль из JSON: либо "ADMIN", либо {"name": "ADMIN"}.
// Дальше границы API неоднозначность не проходит.
type roleName string

func (r *roleName) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*r = roleName(str)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = roleName(obj.Name)
	return nil
}
