// Package subscription содержит логику бизнес-уровня для состояния подписки:
// загрузку, проверки тарифа и лимитов, типизированный сигнал
// "нужна подписка" для компонентов авторизации.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ipwatch/ip-monitor-client/internal/api"
	"github.com/ipwatch/ip-monitor-client/internal/lib/sl"
	"github.com/ipwatch/ip-monitor-client/internal/models"
)

// SubscriptionAPI описывает методы бэкенда для работы с подписками.
type SubscriptionAPI interface {
	// ListSubscriptions возвращает подписки пользователя, первая — активная.
	ListSubscriptions(ctx context.Context, token string) ([]*models.Subscription, error)
	// CreateSubscription создает подписку.
	CreateSubscription(ctx context.Context, token string, req api.CreateSubscriptionRequest) (*models.Subscription, error)
}

// Session описывает состояние сессии, необходимое сервису подписок.
type Session interface {
	IsAuthenticated() bool
	Token() string
	Invalidate(reason string)
}

// Service отвечает за текущее состояние подписки пользователя.
//
// Загрузки нумеруются монотонным счётчиком: ответ устаревшей загрузки,
// пришедший после более новой, отбрасывается. Исходный клиент такой
// защиты не имел, гонка обновлений задокументирована как известная.
type Service struct {
	api     SubscriptionAPI
	session Session
	log     *slog.Logger

	mu      sync.RWMutex
	current *models.Subscription
	seq     uint64
	applied uint64
}

// New создает новый экземпляр Service.
func New(subsAPI SubscriptionAPI, session Session, log *slog.Logger) *Service {
	return &Service{
		api:     subsAPI,
		session: session,
		log:     log,
	}
}

// Load загружает активную подписку пользователя.
//
// Вне сессии состояние очищается без обращения к сети. Отсутствие
// подписки у бэкенда — штатный результат, не ошибка.
func (s *Service) Load(ctx context.Context) error {
	const op = "subscription.Load"
	log := s.log.With(slog.String("op", op))

	if !s.session.IsAuthenticated() {
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.seq++
	gen := s.seq
	s.mu.Unlock()

	subs, err := s.api.ListSubscriptions(ctx, s.session.Token())
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			s.session.Invalidate("subscription load rejected")
			s.mu.Lock()
			s.current = nil
			s.mu.Unlock()
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var active *models.Subscription
	if len(subs) > 0 {
		active = subs[0]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen < s.applied {
		// Ответ устаревшей загрузки, новее уже применён
		log.Debug("stale subscription response discarded")
		return nil
	}
	s.applied = gen
	s.current = active
	if active != nil {
		log.Info("subscription loaded",
			slog.String("tier", string(active.Tier)),
			slog.String("status", active.Status))
	} else {
		log.Info("no subscription found")
	}
	return nil
}

// Resume перезагружает подписку при возвращении клиента в активное
// состояние: переподключение realtime-канала, периодический тик.
// Ловит подписки, созданные в другой вкладке или на другом устройстве.
func (s *Service) Resume(ctx context.Context) {
	if !s.session.IsAuthenticated() {
		return
	}
	if err := s.Load(ctx); err != nil {
		s.log.Warn("subscription revalidation failed", sl.Err(err))
	}
}

// StartAutoRefresh запускает периодическую перепроверку подписки
// до отмены контекста. Нулевой интервал отключает перепроверку.
func (s *Service) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Resume(ctx)
			}
		}
	}()
}

// Create создает подписку и перезагружает состояние.
//
// models.ErrSubscriptionExists пробрасывается как есть: вызывающий код
// перенаправляет пользователя к существующей подписке.
func (s *Service) Create(ctx context.Context, req api.CreateSubscriptionRequest) (*models.Subscription, error) {
	const op = "subscription.Create"

	if !s.session.IsAuthenticated() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}

	sub, err := s.api.CreateSubscription(ctx, s.session.Token(), req)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			s.session.Invalidate("subscription create rejected")
			s.mu.Lock()
			s.current = nil
			s.mu.Unlock()
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.Load(ctx); err != nil {
		s.log.Warn("refresh after subscription create failed", sl.Err(err))
	}
	return sub, nil
}

// Current возвращает текущую запись подписки или nil.
func (s *Service) Current() *models.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// IsActive сообщает, есть ли у пользователя действующая подписка.
// Приостановленная или истёкшая подписка эквивалентна отсутствующей.
func (s *Service) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.IsActive()
}

// HasTierAccess сообщает, покрывает ли действующая подписка требуемый тариф.
func (s *Service) HasTierAccess(required models.Tier) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.current.IsActive() {
		return false
	}
	rank := required.Rank()
	return rank > 0 && s.current.Tier.Rank() >= rank
}

// CheckLimitExceeded сообщает, превысит ли лимит тарифа добавление
// additional ресурсов вида kind. Без действующей подписки блокирует
// любое additional ≥ 0; безлимитный тариф не превышается никогда.
func (s *Service) CheckLimitExceeded(kind models.LimitKind, additional int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.current.IsActive() {
		return true
	}
	limit := s.current.Limit(kind)
	if limit == models.Unlimited {
		return false
	}
	return s.current.Usage.Used(kind)+additional > limit
}

// RequireSubscription возвращает типизированный сигнал AccessError,
// если действующей подписки нет. Это не ошибка для журнала: вызывающий
// код показывает пользователю путь апгрейда.
func (s *Service) RequireSubscription(feature string) error {
	if s.IsActive() {
		return nil
	}
	return models.NewSubscriptionRequired(feature)
}
