// Package session содержит логику бизнес-уровня для управления сессией
// пользователя: вход, выход, обновление профиля и проверка ролей.
//
// Сервис — единственный владелец учётных данных: ни один другой компонент
// не изменяет токен или профиль напрямую.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ipwatch/ip-monitor-client/internal/lib/sl"
	"github.com/ipwatch/ip-monitor-client/internal/lib/token"
	"github.com/ipwatch/ip-monitor-client/internal/models"
	"github.com/ipwatch/ip-monitor-client/internal/storage"
)

// AuthAPI описывает методы бэкенда, нужные сессии.
type AuthAPI interface {
	// Login обменивает учётные данные на bearer-токен.
	Login(ctx context.Context, email, password string) (string, error)
	// GetProfile возвращает профиль владельца токена.
	GetProfile(ctx context.Context, token string) (*models.User, error)
	// Logout отзывает токен на стороне бэкенда.
	Logout(ctx context.Context, token string) error
}

// TokenStore описывает долговременное хранилище учётных данных.
type TokenStore interface {
	Save(token string, user *models.User) error
	Read() (*storage.Credentials, error)
	Clear() error
}

// Service отвечает за состояние аутентификации клиента.
type Service struct {
	api   AuthAPI
	store TokenStore
	log   *slog.Logger

	mu    sync.RWMutex
	token string
	user  *models.User
}

// New создает новый экземпляр Service.
func New(api AuthAPI, store TokenStore, log *slog.Logger) *Service {
	return &Service{
		api:   api,
		store: store,
		log:   log,
	}
}

// Init восстанавливает сессию из хранилища при старте приложения.
//
// Истёкший токен удаляется сразу, без обращения к сети. Живой токен
// подтверждается запросом профиля; неудача подтверждения оставляет
// клиента в состоянии "не вошёл".
func (s *Service) Init(ctx context.Context) {
	const op = "session.Init"
	log := s.log.With(slog.String("op", op))

	creds, err := s.store.Read()
	if err != nil {
		if !errors.Is(err, storage.ErrNoCredentials) {
			log.Warn("failed to read stored credentials", sl.Err(err))
		}
		return
	}

	if token.IsExpired(creds.Token) {
		log.Info("stored token expired, clearing")
		if err := s.store.Clear(); err != nil {
			log.Warn("failed to clear expired credentials", sl.Err(err))
		}
		return
	}

	user, err := s.api.GetProfile(ctx, creds.Token)
	if err != nil {
		log.Warn("profile fetch on startup failed, treating as logged out", sl.Err(err))
		if errors.Is(err, models.ErrUnauthorized) {
			if clearErr := s.store.Clear(); clearErr != nil {
				log.Warn("failed to clear rejected credentials", sl.Err(clearErr))
			}
		}
		return
	}

	s.mu.Lock()
	s.token = creds.Token
	s.user = user
	s.mu.Unlock()
	log.Info("session restored", slog.String("username", user.Username))
}

// Login выполняет вход по почте и паролю.
//
// Токен сохраняется до запроса профиля. Если профиль получить не удалось,
// токен остаётся сохранённым, а сессия считается установленной без
// профиля — поведение исходного клиента сохранено намеренно.
func (s *Service) Login(ctx context.Context, email, password string) error {
	const op = "session.Login"
	log := s.log.With(slog.String("op", op))

	tokenStr, err := s.api.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			return fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.Save(tokenStr, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	s.token = tokenStr
	s.user = nil
	s.mu.Unlock()

	user, err := s.api.GetProfile(ctx, tokenStr)
	if err != nil {
		log.Warn("profile fetch after login failed, token retained", sl.Err(err))
		return nil
	}

	if err := s.store.Save(tokenStr, user); err != nil {
		log.Warn("failed to persist profile snapshot", sl.Err(err))
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	log.Info("logged in", slog.String("username", user.Username))
	return nil
}

// Logout завершает сессию.
//
// Отзыв токена на бэкенде выполняется по возможности: его неудача
// логируется и не мешает безусловной локальной очистке.
func (s *Service) Logout(ctx context.Context) {
	const op = "session.Logout"
	log := s.log.With(slog.String("op", op))

	s.mu.RLock()
	tokenStr := s.token
	s.mu.RUnlock()

	if tokenStr != "" {
		if err := s.api.Logout(ctx, tokenStr); err != nil {
			log.Warn("server-side logout failed", sl.Err(err))
		}
	}
	s.clearLocal(log)
	log.Info("logged out")
}

// RefreshUser повторно запрашивает профиль без повторной аутентификации.
// Используется после правок профиля. Ответ 401 завершает сессию.
func (s *Service) RefreshUser(ctx context.Context) error {
	const op = "session.RefreshUser"
	log := s.log.With(slog.String("op", op))

	s.mu.RLock()
	tokenStr := s.token
	s.mu.RUnlock()

	if tokenStr == "" {
		return fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}
	if token.IsExpired(tokenStr) {
		s.Invalidate("token expired")
		return fmt.Errorf("%s: %w", op, models.ErrTokenExpired)
	}

	user, err := s.api.GetProfile(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			s.Invalidate("session expired")
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.Save(tokenStr, user); err != nil {
		log.Warn("failed to persist profile snapshot", sl.Err(err))
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return nil
}

// Invalidate принудительно завершает сессию локально.
// Вызывается при обнаружении 401 на любом авторизованном запросе.
func (s *Service) Invalidate(reason string) {
	log := s.log.With(slog.String("op", "session.Invalidate"))
	s.clearLocal(log)
	log.Info("session invalidated", slog.String("reason", reason))
}

// IsAuthenticated сообщает, установлена ли действующая сессия:
// есть токен, есть профиль и токен не истёк.
func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil && !token.IsExpired(s.token)
}

// HasRole проверяет членство пользователя хотя бы в одной из ролей.
// Сравнение регистронезависимое.
func (s *Service) HasRole(roles ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.HasRole(roles...)
}

// Token возвращает текущий bearer-токен, пустую строку вне сессии.
func (s *Service) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User возвращает профиль текущего пользователя или nil.
func (s *Service) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Service) clearLocal(log *slog.Logger) {
	if err := s.store.Clear(); err != nil {
		log.Warn("failed to clear stored credentials", sl.Err(err))
	}
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
}
