// Package alerts хранит ленту последних событий в памяти клиента.
// Лента ограничена по длине, новые события вытесняют старые; на диск
// ничего не пишется — после перезапуска лента пуста.
package alerts

import (
	"sync"

	"github.com/ipwatch/ip-monitor-client/internal/models"
)

// DefaultCapacity — длина ленты по умолчанию.
const DefaultCapacity = 50

// Feed — ограниченная лента событий, новые в начале.
type Feed struct {
	mu       sync.RWMutex
	capacity int
	items    []models.Alert
}

// NewFeed создает ленту заданной вместимости.
// Неположительная вместимость заменяется значением по умолчанию.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{
		capacity: capacity,
		items:    make([]models.Alert, 0, capacity),
	}
}

// Add помещает событие в начало ленты, вытесняя самое старое при
// переполнении.
func (f *Feed) Add(alert models.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append(f.items, models.Alert{})
	copy(f.items[1:], f.items)
	f.items[0] = alert
	if len(f.items) > f.capacity {
		f.items = f.items[:f.capacity]
	}
}

// Snapshot возвращает копию ленты, новые события первыми.
func (f *Feed) Snapshot() []models.Alert {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]models.Alert, len(f.items))
	copy(out, f.items)
	return out
}

// Len возвращает текущую длину ленты.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}

// Clear очищает ленту. Используется при завершении сессии.
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = f.items[:0]
}
