// Package monitor собирает клиент целиком: сессию, подписку, охрану
// доступа, realtime-канал, ленту событий, пересылку в RabbitMQ и
// локальный сервер статуса.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/ipwatch/ip-monitor-client/internal/alerts"
	"github.com/ipwatch/ip-monitor-client/internal/api"
	"github.com/ipwatch/ip-monitor-client/internal/config"
	"github.com/ipwatch/ip-monitor-client/internal/lib/sl"
	"github.com/ipwatch/ip-monitor-client/internal/metrics"
	"github.com/ipwatch/ip-monitor-client/internal/models"
	"github.com/ipwatch/ip-monitor-client/internal/rabbitmq"
	"github.com/ipwatch/ip-monitor-client/internal/realtime"
	"github.com/ipwatch/ip-monitor-client/internal/services/guard"
	"github.com/ipwatch/ip-monitor-client/internal/services/session"
	"github.com/ipwatch/ip-monitor-client/internal/services/subscription"
	"github.com/ipwatch/ip-monitor-client/internal/storage"
)

// App — собранный клиент мониторинга.
type App struct {
	server *http.Server
	logger *slog.Logger
	cfg    *config.Config

	api       *api.Client
	store     *storage.Store
	session   *session.Service
	subs      *subscription.Service
	guard     *guard.Guard
	channel   *realtime.Channel
	feed      *alerts.Feed
	forwarder *rabbitmq.Forwarder
}

// New инициализирует все компоненты и восстанавливает сессию из хранилища.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		return nil, err
	}

	apiClient := api.New(cfg.APIBaseURL, cfg.RequestsPerSecond, cfg.Burst)

	sessionService := session.New(apiClient, store, logger)
	sessionService.Init(ctx)

	subsService := subscription.New(apiClient, sessionService, logger)
	accessGuard := guard.New(subsService, logger)

	channel := realtime.New(realtime.Options{
		PatentURL:            cfg.PatentURL,
		CompetitorURL:        cfg.CompetitorURL,
		ReconnectBaseDelay:   cfg.ReconnectBaseDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	}, logger)

	feed := alerts.NewFeed(cfg.AlertFeedSize)

	app := &App{
		logger:  logger,
		cfg:     cfg,
		api:     apiClient,
		store:   store,
		session: sessionService,
		subs:    subsService,
		guard:   accessGuard,
		channel: channel,
		feed:    feed,
	}

	if cfg.Forwarding.Enabled {
		conn, err := rabbitmq.Connect(cfg.AMQPURL, 3, time.Second)
		if err != nil {
			return nil, err
		}
		app.forwarder, err = rabbitmq.NewForwarder(conn, cfg.Exchange, cfg.RoutingKey)
		if err != nil {
			return nil, err
		}
	}

	channel.Subscribe(realtime.TopicPatent, app.deliver)
	channel.Subscribe(realtime.TopicCompetitor, app.deliver)

	// Переподключение канала — повод перепроверить подписку:
	// она могла измениться, пока соединения не было
	channel.OnOpen(func(realtime.Topic) {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		subsService.Resume(refreshCtx)
	})

	router := chi.NewRouter()
	app.registerRoutes(router)

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return app, nil
}

// Run запускает клиента и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	if a.session.IsAuthenticated() {
		if err := a.subs.Load(ctx); err != nil {
			a.logger.Warn("initial subscription load failed", sl.Err(err))
		}
		a.openRealtime()
		a.subs.StartAutoRefresh(ctx, a.cfg.RefreshInterval)
	} else {
		a.logger.Info("no authenticated session, realtime alerts disabled until login")
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("status server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.shutdown()
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return a.server.Shutdown(timeoutCtx)
	}
}

// openRealtime открывает канал оповещений через охрану доступа:
// без активной подписки канал не открывается, пользователю остаётся
// подсказка с путём апгрейда.
func (a *App) openRealtime() {
	user := a.session.User()
	if user == nil {
		return
	}

	executed, err := a.guard.Do(guard.Options{Feature: "realtime alerts"}, func() error {
		a.channel.Connect(user.UID, a.session.Token())
		return nil
	})
	if err != nil {
		a.logger.Error("failed to open realtime channel", sl.Err(err))
		return
	}
	if !executed {
		if prompt := a.guard.LastPrompt(); prompt != nil {
			a.logger.Info("realtime alerts unavailable", slog.String("reason", prompt.Message))
		}
	}
}

// deliver обрабатывает каждое принятое событие: лента, журнал, пересылка.
func (a *App) deliver(alert models.Alert) {
	a.feed.Add(alert)

	switch alert.Kind {
	case models.AlertPatent:
		a.logger.Info("patent alert",
			slog.String("patent_id", alert.Patent.PatentID),
			slog.String("event_type", alert.Patent.EventType),
			slog.String("severity", alert.Patent.Severity))
	case models.AlertCompetitor:
		a.logger.Info("competitor alert",
			slog.String("competitor", alert.Competitor.CompetitorCode),
			slog.Int("new_filings", alert.Competitor.NewFilings))
	}

	if a.forwarder == nil {
		return
	}
	if err := a.forwarder.Publish(alert); err != nil {
		a.logger.Warn("alert forwarding failed", sl.Err(err))
		metrics.AlertsForwarded.WithLabelValues("error").Inc()
		return
	}
	metrics.AlertsForwarded.WithLabelValues("ok").Inc()
}

func (a *App) shutdown() {
	a.channel.Disconnect()
	if a.forwarder != nil {
		if err := a.forwarder.Close(); err != nil {
			a.logger.Warn("failed to close forwarder", sl.Err(err))
		}
	}
}
