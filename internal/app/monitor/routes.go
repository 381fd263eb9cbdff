package monitor

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ipwatch/ip-monitor-client/internal/api"
	"github.com/ipwatch/ip-monitor-client/internal/http/response"
	"github.com/ipwatch/ip-monitor-client/internal/lib/sl"
	"github.com/ipwatch/ip-monitor-client/internal/models"
	"github.com/ipwatch/ip-monitor-client/internal/services/guard"
	"github.com/ipwatch/ip-monitor-client/internal/storage"
)

// statusResponse — снимок состояния клиента для GET /status.
type statusResponse struct {
	Authenticated bool                 `json:"authenticated"`
	Username      string               `json:"username,omitempty"`
	Roles         []string             `json:"roles,omitempty"`
	Subscription  *subscriptionInfo    `json:"subscription,omitempty"`
	Channels      any                  `json:"channels"`
	Prompt        any                  `json:"prompt,omitempty"`
	Preferences   *storage.Preferences `json:"preferences,omitempty"`
}

type subscriptionInfo struct {
	Tier   string `json:"tier"`
	Status string `json:"status"`
	Active bool   `json:"active"`
}

// registerRoutes регистрирует маршруты локального сервера статуса.
func (a *App) registerRoutes(r chi.Router) {
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.StatusOKWithData("alive"))
	})

	r.Post("/login", a.handleLogin)
	r.Post("/logout", a.handleLogout)
	r.Get("/status", a.handleStatus)
	r.Get("/alerts", a.handleAlerts)
	r.Post("/subscriptions", a.handleCreateSubscription)
	r.Put("/patents/{id}/tracking", a.handleTracking)

	r.Handle("/metrics", promhttp.Handler())
}

// handleLogin выполняет вход, загружает подписку и открывает
// realtime-канал, если её уровень это позволяет.
func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		a.logger.Error("failed to decode login request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}

	if err := a.session.Login(r.Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("invalid credentials"))
			return
		}
		if errors.Is(err, models.ErrPasswordChangeRequired) {
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("password change required"))
			return
		}
		a.logger.Error("login failed", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("login failed"))
		return
	}

	if err := a.subs.Load(r.Context()); err != nil {
		a.logger.Warn("subscription load after login failed", sl.Err(err))
	}
	a.openRealtime()

	render.JSON(w, r, response.StatusOKWithData(a.session.User()))
}

// handleLogout завершает сессию и закрывает канал оповещений.
func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.channel.Disconnect()
	a.session.Logout(r.Context())
	render.JSON(w, r, response.StatusOKWithData("logged out"))
}

// handleCreateSubscription оформляет подписку и сразу открывает
// realtime-канал, который до этого мог быть заблокирован.
func (a *App) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	if !a.session.IsAuthenticated() {
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("not authenticated"))
		return
	}

	var req api.CreateSubscriptionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		a.logger.Error("failed to decode subscription request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}

	sub, err := a.subs.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrSubscriptionExists) {
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("subscription already exists"))
			return
		}
		a.logger.Error("failed to create subscription", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("failed to create subscription"))
		return
	}
	a.openRealtime()

	render.JSON(w, r, response.StatusOKWithData(sub))
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Authenticated: a.session.IsAuthenticated(),
		Channels:      a.channel.States(),
	}

	if user := a.session.User(); user != nil {
		resp.Username = user.Username
		resp.Roles = user.Roles
	}

	if sub := a.subs.Current(); sub != nil {
		resp.Subscription = &subscriptionInfo{
			Tier:   string(sub.Tier),
			Status: string(sub.Status),
			Active: sub.IsActive(),
		}
	}

	if prompt := a.guard.LastPrompt(); prompt != nil {
		resp.Prompt = prompt
	}

	if prefs, err := a.store.ReadPreferences(); err == nil {
		resp.Preferences = &prefs
	}

	render.JSON(w, r, response.StatusOKWithData(resp))
}

func (a *App) handleAlerts(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.StatusOKWithData(a.feed.Snapshot()))
}

// handleTracking проксирует сохранение флагов отслеживания патента на
// бэкенд, предварительно проверяя подписку и лимит тарифа.
func (a *App) handleTracking(w http.ResponseWriter, r *http.Request) {
	if !a.session.IsAuthenticated() {
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("not authenticated"))
		return
	}

	var prefs api.TrackingPreferences
	if err := render.DecodeJSON(r.Body, &prefs); err != nil {
		a.logger.Error("failed to decode tracking request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}
	prefs.PatentID = chi.URLParam(r, "id")

	opts := guard.Options{
		Feature:    "patent tracking",
		Limit:      models.LimitPatents,
		Additional: 1,
	}
	executed, err := a.guard.Do(opts, func() error {
		return a.api.SaveTrackingPreferences(r.Context(), a.session.Token(), prefs)
	})
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			a.session.Invalidate("tracking request rejected")
			a.channel.Disconnect()
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("not authenticated"))
			return
		}
		a.logger.Error("failed to save tracking preferences", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("failed to save tracking preferences"))
		return
	}
	if !executed {
		w.WriteHeader(http.StatusForbidden)
		if prompt := a.guard.LastPrompt(); prompt != nil {
			render.JSON(w, r, response.Response{
				Status: response.StatusError,
				Error:  prompt.Message,
				Data:   prompt,
			})
			return
		}
		render.JSON(w, r, response.Error("action not allowed"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(prefs))
}
