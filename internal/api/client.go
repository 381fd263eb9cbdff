// Package api реализует HTTP-клиент к бэкенду мониторинга
// интеллектуальной собственности.
//
// Клиент отвечает за транспорт и нормализацию ответов: коды состояния
// превращаются в типизированные ошибки домена, роли профиля приводятся
// к каноническому виду, исходящие запросы проходят валидацию и
// ограничение частоты.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"golang.org/x/time/rate"

	"github.com/ipwatch/ip-monitor-client/internal/metrics"
	"github.com/ipwatch/ip-monitor-client/internal/models"
)

// Client выполняет запросы к REST API бэкенда.
type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
	limiter    *rate.Limiter
}

// New создает клиент для заданного базового URL.
// rps и burst задают ограничение частоты исходящих запросов;
// нулевой rps отключает ограничение.
func New(baseURL string, rps float64, burst int) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		validate:   validator.New(),
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// Login обменивает учётные данные на bearer-токен.
//
// Возвращает models.ErrPasswordChangeRequired, если бэкенд требует смены
// пароля, и models.ErrInvalidCredentials при неверных данных.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	const op = "api.Login"

	req := LoginRequest{Email: email, Password: password}
	if err := c.validate.Struct(req); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", req, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.PasswordChangeRequired {
		return "", fmt.Errorf("%s: %w", op, models.ErrPasswordChangeRequired)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("%s: empty token in response", op)
	}
	return resp.Token, nil
}

// GetProfile запрашивает профиль текущего пользователя.
func (c *Client) GetProfile(ctx context.Context, token string) (*models.User, error) {
	const op = "api.GetProfile"

	var resp profileResponse
	if err := c.do(ctx, http.MethodGet, "/users/me", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	roles := make([]string, 0, len(resp.Roles))
	for _, r := range resp.Roles {
		roles = append(roles, strings.ToUpper(string(r)))
	}
	return &models.User{
		UID:      resp.UID,
		Username: resp.Username,
		Email:    resp.Email,
		Roles:    roles,
	}, nil
}

// Logout отзывает токен на стороне бэкенда.
func (c *Client) Logout(ctx context.Context, token string) error {
	const op = "api.Logout"
	if err := c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListSubscriptions возвращает подписки пользователя, первая — активная.
// Ответ 404 означает отсутствие подписок и не является ошибкой.
func (c *Client) ListSubscriptions(ctx context.Context, token string) ([]*models.Subscription, error) {
	const op = "api.ListSubscriptions"

	var subs []*models.Subscription
	err := c.do(ctx, http.MethodGet, "/subscriptions", token, nil, &subs)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// CreateSubscription создаёт подписку.
//
// Возвращает models.ErrSubscriptionExists, если активная подписка уже есть —
// вызывающий код перенаправляет к ней вместо показа ошибки.
func (c *Client) CreateSubscription(ctx context.Context, token string, req CreateSubscriptionRequest) (*models.Subscription, error) {
	const op = "api.CreateSubscription"

	if err := c.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var sub models.Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", token, req, &sub); err != nil {
		if isConflict(err) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrSubscriptionExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sub, nil
}

// SaveTrackingPreferences сохраняет флаги отслеживания патента.
func (c *Client) SaveTrackingPreferences(ctx context.Context, token string, prefs TrackingPreferences) error {
	const op = "api.SaveTrackingPreferences"

	if err := c.validate.Struct(prefs); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	path := "/patents/" + prefs.PatentID + "/tracking"
	if err := c.do(ctx, http.MethodPut, path, token, prefs, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// statusError несёт код состояния и сообщение из конверта ошибки бэкенда.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message != "" {
		return e.message
	}
	return http.StatusText(e.code)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

func isConflict(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusConflict
}

func (c *Client) do(ctx context.Context, method, path, token string, body, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "network_error").Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		metrics.APIRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
		var envelope errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		if resp.StatusCode == http.StatusUnauthorized {
			if envelope.Error != "" {
				return fmt.Errorf("%s: %w", envelope.Error, models.ErrUnauthorized)
			}
			return models.ErrUnauthorized
		}
		return &statusError{code: resp.StatusCode, message: envelope.Error}
	}
	metrics.APIRequests.WithLabelValues(method, "ok").Inc()

	if dst == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
