// Package models содержит доменные структуры клиента мониторинга
// интеллектуальной собственности.
package models

import "time"

// AlertKind вариант события оповещения.
type AlertKind string

// Варианты событий.
const (
	AlertPatent     AlertKind = "patent"
	AlertCompetitor AlertKind = "competitor"
)

// PatentEvent событие по отслеживаемому патенту: смена статуса,
// юридическое событие, изменение патентного семейства.
type PatentEvent struct {
	PatentID  string    `json:"patent_id"`           // Идентификатор патента
	EventType string    `json:"event_type"`          // Вид события
	Severity  string    `json:"severity"`            // Важность: INFO, WARNING, CRITICAL
	OldValue  string    `json:"old_value,omitempty"` // Значение до изменения
	NewValue  string    `json:"new_value,omitempty"` // Значение после изменения
	Message   string    `json:"message"`             // Человекочитаемое описание
	Timestamp time.Time `json:"timestamp"`           // Время события
}

// CompetitorEvent событие по отслеживаемому конкуренту: новые заявки.
type CompetitorEvent struct {
	CompetitorID   string    `json:"competitor_id"`    // Идентификатор конкурента
	CompetitorCode string    `json:"competitor_code"`  // Код конкурента
	NewFilings     int       `json:"new_filings"`      // Количество новых заявок
	LatestFilingID string    `json:"latest_filing_id"` // Последняя заявка
	Timestamp      time.Time `json:"timestamp"`        // Время события
}

// Alert — размеченное объединение двух вариантов события.
// Заполнен ровно один из указателей, соответствующий Kind.
type Alert struct {
	Kind       AlertKind        `json:"kind"`
	Patent     *PatentEvent     `json:"patent,omitempty"`
	Competitor *CompetitorEvent `json:"competitor,omitempty"`
	ReceivedAt time.Time        `json:"received_at"` // Время получения клиентом
}
