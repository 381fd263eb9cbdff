// Package guard реализует проверку предусловий доступа перед действиями
// пользователя. Отказ — не исключительная ситуация: действие молча
// не выполняется, а пользователю показывается подсказка с путём апгрейда.
package guard

import (
	"log/slog"
	"sync"

	"github.com/ipwatch/ip-monitor-client/internal/metrics"
	"github.com/ipwatch/ip-monitor-client/internal/models"
)

// Subscriptions описывает нужные компоненту запросы состояния подписки.
type Subscriptions interface {
	IsActive() bool
	HasTierAccess(required models.Tier) bool
	CheckLimitExceeded(kind models.LimitKind, additional int) bool
	RequireSubscription(feature string) error
}

// Options задаёт предусловия для действия.
//
// Feature включает типизированную проверку "нужна подписка" с названием
// функции в подсказке; без него требуется просто действующая подписка.
// Tier дополнительно требует тариф не ниже указанного.
// Limit с Additional проверяет, не превысит ли действие лимит тарифа.
type Options struct {
	Feature    string
	Tier       models.Tier
	Limit      models.LimitKind
	Additional int
}

// Prompt — подсказка, оставшаяся после отказа в доступе.
type Prompt struct {
	Message string              `json:"message"`
	Reason  models.AccessReason `json:"reason"`
	Upgrade bool                `json:"upgrade"`
}

// Guard проверяет предусловия и накапливает подсказку последнего отказа.
type Guard struct {
	subs Subscriptions
	log  *slog.Logger

	mu     sync.Mutex
	prompt *Prompt
}

// New создает новый экземпляр Guard.
func New(subs Subscriptions, log *slog.Logger) *Guard {
	return &Guard{
		subs: subs,
		log:  log,
	}
}

// Do выполняет действие, если все предусловия выполнены.
//
// При отказе действие не вызывается, подсказка сохраняется, и Do
// возвращает executed=false с нулевой ошибкой: вызывающий код обязан
// трактовать это как "заблокировано, пользователь уведомлён", а не как
// сбой. При успехе возвращается результат самого действия.
func (g *Guard) Do(opts Options, action func() error) (executed bool, err error) {
	if denied := g.check(opts); denied != nil {
		g.deny(denied)
		return false, nil
	}
	return true, action()
}

// IsAllowed выполняет те же проверки без побочных эффектов.
// Используется для условного отображения: выключить кнопку, спрятать пункт меню.
func (g *Guard) IsAllowed(opts Options) bool {
	return g.check(opts) == nil
}

// LastPrompt возвращает подсказку последнего отказа или nil.
func (g *Guard) LastPrompt() *Prompt {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompt
}

// ClearPrompt сбрасывает подсказку после показа пользователю.
func (g *Guard) ClearPrompt() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompt = nil
}

func (g *Guard) check(opts Options) *models.AccessError {
	if opts.Feature != "" {
		if err := g.subs.RequireSubscription(opts.Feature); err != nil {
			accessErr, ok := models.AsAccessError(err)
			if !ok {
				accessErr = &models.AccessError{
					Reason:  models.ReasonSubscriptionRequired,
					Message: err.Error(),
				}
			}
			return accessErr
		}
	} else if !g.subs.IsActive() {
		return models.NewSubscriptionRequired("this feature")
	}

	if opts.Tier != "" && !g.subs.HasTierAccess(opts.Tier) {
		return models.NewInsufficientTier(opts.Tier)
	}

	if opts.Limit != "" && g.subs.CheckLimitExceeded(opts.Limit, opts.Additional) {
		return models.NewLimitExceeded(opts.Limit)
	}
	return nil
}

func (g *Guard) deny(accessErr *models.AccessError) {
	g.mu.Lock()
	g.prompt = &Prompt{
		Message: accessErr.Message,
		Reason:  accessErr.Reason,
		Upgrade: true,
	}
	g.mu.Unlock()

	metrics.GuardDenials.WithLabelValues(string(accessErr.Reason)).Inc()
	g.log.Info("action blocked",
		slog.String("reason", string(accessErr.Reason)),
		slog.String("message", accessErr.Message))
}
