// Package models содержит доменные структуры клиента мониторинга
// интеллектуальной собственности.
package models

// Tier уровень тарифного плана подписки.
type Tier string

// Уровни тарифов в порядке возрастания.
const (
	TierBasic      Tier = "BASIC"
	TierPro        Tier = "PRO"
	TierEnterprise Tier = "ENTERPRISE"
)

// Rank возвращает порядковый номер тарифа: BASIC=1, PRO=2, ENTERPRISE=3.
// Неизвестный тариф имеет ранг 0 и не проходит ни одну проверку доступа.
func (t Tier) Rank() int {
	switch t {
	case TierBasic:
		return 1
	case TierPro:
		return 2
	case TierEnterprise:
		return 3
	default:
		return 0
	}
}

// Статусы подписки. Любой статус кроме ACTIVE для целей авторизации
// эквивалентен отсутствию подписки.
const (
	StatusActive  = "ACTIVE"
	StatusPaused  = "PAUSED"
	StatusExpired = "EXPIRED"
)

// Unlimited обозначает отсутствие лимита по ресурсу в тарифе.
const Unlimited = -1

// LimitKind вид ресурса, ограниченного тарифом.
type LimitKind string

// Виды лимитируемых ресурсов.
const (
	LimitCompetitors LimitKind = "competitors"
	LimitPatents     LimitKind = "patents"
)

// TierLimits статическая таблица лимитов по тарифам.
// Лимиты не хранятся в записи подписки, бэкенд оперирует теми же значениями.
var TierLimits = map[Tier]map[LimitKind]int{
	TierBasic: {
		LimitCompetitors: 3,
		LimitPatents:     10,
	},
	TierPro: {
		LimitCompetitors: 10,
		LimitPatents:     100,
	},
	TierEnterprise: {
		LimitCompetitors: Unlimited,
		LimitPatents:     Unlimited,
	},
}

// Usage счётчики потребления ресурсов в рамках тарифа.
type Usage struct {
	CompetitorsTracked int `json:"competitors_tracked"` // Отслеживаемых конкурентов
	PatentsTracked     int `json:"patents_tracked"`     // Отслеживаемых патентов
}

// Used возвращает потребление по виду ресурса.
func (u Usage) Used(kind LimitKind) int {
	switch kind {
	case LimitCompetitors:
		return u.CompetitorsTracked
	case LimitPatents:
		return u.PatentsTracked
	default:
		return 0
	}
}

// Subscription представляет запись подписки пользователя.
type Subscription struct {
	ID                 string `json:"id"`                  // Идентификатор подписки
	Type               string `json:"type"`                // Категория мониторинга
	Tier               Tier   `json:"tier"`                // Тарифный план
	Status             string `json:"status"`              // ACTIVE, PAUSED или EXPIRED
	AlertFrequency     string `json:"alert_frequency"`     // Частота оповещений
	EmailNotifications bool   `json:"email_notifications"` // Оповещения по почте
	RealtimeAlerts     bool   `json:"realtime_alerts"`     // Оповещения в реальном времени
	Usage              Usage  `json:"usage"`               // Потребление ресурсов
}

// IsActive сообщает, действует ли подписка.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == StatusActive
}

// Limit возвращает лимит тарифа по виду ресурса.
// Для неизвестного тарифа или вида ресурса лимит равен нулю.
func (s *Subscription) Limit(kind LimitKind) int {
	if s == nil {
		return 0
	}
	limits, ok := TierLimits[s.Tier]
	if !ok {
		return 0
	}
	return limits[kind]
}
