// Package sl содержит вспомогательные функции для структурированного логгера slog.
// Используется во всех пакетах клиента для единообразного вывода ошибок.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
//
// Пример:
//
//	log.Error("failed to fetch profile", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Topic возвращает slog.Attr с ключом "topic" для логов realtime-канала.
func Topic(name string) slog.Attr {
	return slog.Attr{
		Key:   "topic",
		Value: slog.StringValue(name),
	}
}
