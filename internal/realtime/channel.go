// Package realtime поддерживает два независимых websocket-потока событий:
// по отслеживаемым патентам и по заявкам конкурентов.
//
// Каждая тема живёт своей жизнью: отдельное соединение, отдельный счётчик
// переподключений, отдельный набор подписчиков. Переподключение — это
// контролируемая фоновая задача с линейной задержкой и жёсткой границей
// попыток; после исчерпания границы канал остаётся закрытым до явного
// нового Connect.
package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ipwatch/ip-monitor-client/internal/lib/sl"
	"github.com/ipwatch/ip-monitor-client/internal/metrics"
	"github.com/ipwatch/ip-monitor-client/internal/models"
)

// Topic — тема потока событий.
type Topic string

// Темы каналов.
const (
	TopicPatent     Topic = "patent"
	TopicCompetitor Topic = "competitor"
)

// State — состояние соединения темы.
type State int

// Состояния соединения.
const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	default:
		return "CLOSED"
	}
}

// Handler — обработчик входящего события. Каждый подписчик темы получает
// каждое сообщение ровно один раз, пока подписан; порядок доставки между
// подписчиками не определён.
type Handler func(alert models.Alert)

// Options задаёт адреса тем и параметры переподключения.
type Options struct {
	PatentURL            string
	CompetitorURL        string
	ReconnectBaseDelay   time.Duration
	MaxReconnectAttempts int
}

// Значения по умолчанию для параметров переподключения.
const (
	DefaultReconnectBaseDelay   = 2 * time.Second
	DefaultMaxReconnectAttempts = 5
)

type identity struct {
	userID string
	token  string
}

type topicConn struct {
	ws       *websocket.Conn
	state    State
	attempts int
	timer    *time.Timer
}

// Channel управляет обоими потоками событий.
type Channel struct {
	log    *slog.Logger
	opts   Options
	dialer *websocket.Dialer

	mu     sync.Mutex
	id     *identity
	conns  map[Topic]*topicConn
	subs   map[Topic]map[string]Handler
	onOpen []func(Topic)
}

// New создает канал. Нулевые параметры переподключения заменяются
// значениями по умолчанию.
func New(opts Options, log *slog.Logger) *Channel {
	if opts.ReconnectBaseDelay <= 0 {
		opts.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	return &Channel{
		log:    log,
		opts:   opts,
		dialer: websocket.DefaultDialer,
		conns: map[Topic]*topicConn{
			TopicPatent:     {},
			TopicCompetitor: {},
		},
		subs: map[Topic]map[string]Handler{
			TopicPatent:     {},
			TopicCompetitor: {},
		},
	}
}

// OnOpen регистрирует обработчик успешного рукопожатия темы.
// Используется для перепроверки подписки после переподключения.
func (c *Channel) OnOpen(fn func(Topic)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onOpen = append(c.onOpen, fn)
}

// Connect открывает оба соединения от имени пользователя.
//
// Вызов идемпотентен: при уже открытых соединениях новые попытки не
// предпринимаются. Повторный Connect после исчерпания лимита
// переподключений начинает отсчёт заново.
func (c *Channel) Connect(userID, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.id = &identity{userID: userID, token: token}
	for topic, conn := range c.conns {
		if conn.state != StateClosed {
			continue
		}
		conn.attempts = 0
		c.startDialLocked(topic)
	}
}

// Disconnect авторитетно закрывает оба соединения и снимает
// зарегистрированную личность: запланированные переподключения,
// сработав, обнаружат её отсутствие и молча завершатся.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.id = nil
	for topic, conn := range c.conns {
		if conn.timer != nil {
			conn.timer.Stop()
			conn.timer = nil
		}
		if conn.ws != nil {
			_ = conn.ws.Close()
			conn.ws = nil
		}
		conn.attempts = 0
		c.setStateLocked(topic, StateClosed)
	}
	c.log.Info("realtime channel disconnected")
}

// Subscribe регистрирует обработчик темы и возвращает функцию отписки.
// Подписчиков у темы может быть несколько.
func (c *Channel) Subscribe(topic Topic, handler Handler) func() {
	subID := uuid.NewString()

	c.mu.Lock()
	c.subs[topic][subID] = handler
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs[topic], subID)
		c.mu.Unlock()
	}
}

// Status — снимок состояния темы для сервера статуса.
type Status struct {
	State    string `json:"state"`
	Attempts int    `json:"reconnect_attempts"`
}

// States возвращает снимок состояния обеих тем.
func (c *Channel) States() map[Topic]Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[Topic]Status, len(c.conns))
	for topic, conn := range c.conns {
		out[topic] = Status{State: conn.state.String(), Attempts: conn.attempts}
	}
	return out
}

// startDialLocked переводит тему в CONNECTING и запускает рукопожатие.
// Вызывается только под мьютексом.
func (c *Channel) startDialLocked(topic Topic) {
	c.setStateLocked(topic, StateConnecting)
	id := *c.id
	go c.dial(topic, id)
}

func (c *Channel) dial(topic Topic, id identity) {
	log := c.log.With(sl.Topic(string(topic)))

	endpoint, err := c.topicURL(topic, id)
	if err != nil {
		log.Error("invalid endpoint", sl.Err(err))
		c.mu.Lock()
		c.setStateLocked(topic, StateClosed)
		c.scheduleReconnectLocked(topic)
		c.mu.Unlock()
		return
	}

	ws, resp, err := c.dialer.Dial(endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		log.Warn("handshake failed", sl.Err(err))
		c.mu.Lock()
		c.setStateLocked(topic, StateClosed)
		c.scheduleReconnectLocked(topic)
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	if c.id == nil {
		// Disconnect случился во время рукопожатия
		c.mu.Unlock()
		_ = ws.Close()
		return
	}
	if *c.id != id {
		// Во время рукопожатия пришёл Connect с новыми учётными данными:
		// устаревшее соединение закрывается, рукопожатие повторяется
		// от имени текущей личности
		_ = ws.Close()
		c.startDialLocked(topic)
		c.mu.Unlock()
		return
	}
	conn := c.conns[topic]
	conn.ws = ws
	conn.attempts = 0
	c.setStateLocked(topic, StateOpen)
	hooks := make([]func(Topic), len(c.onOpen))
	copy(hooks, c.onOpen)
	c.mu.Unlock()

	log.Info("connected")
	for _, hook := range hooks {
		hook(topic)
	}
	go c.readLoop(topic, ws)
}

func (c *Channel) readLoop(topic Topic, ws *websocket.Conn) {
	log := c.log.With(sl.Topic(string(topic)))

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			log.Warn("connection closed", sl.Err(err))
			break
		}

		alert, err := parseAlert(topic, data)
		if err != nil {
			// Одно нечитаемое сообщение не должно ронять соединение
			// и блокировать последующие
			log.Warn("malformed message dropped", sl.Err(err))
			metrics.MalformedMessages.WithLabelValues(string(topic)).Inc()
			continue
		}
		metrics.AlertsReceived.WithLabelValues(string(topic)).Inc()

		c.mu.Lock()
		handlers := make([]Handler, 0, len(c.subs[topic]))
		for _, h := range c.subs[topic] {
			handlers = append(handlers, h)
		}
		c.mu.Unlock()

		for _, h := range handlers {
			h(alert)
		}
	}

	c.mu.Lock()
	conn := c.conns[topic]
	if conn.ws != ws {
		// Соединение уже заменено или закрыто явным Disconnect
		c.mu.Unlock()
		return
	}
	conn.ws = nil
	c.setStateLocked(topic, StateClosed)
	if c.id != nil {
		c.scheduleReconnectLocked(topic)
	}
	c.mu.Unlock()
}

// scheduleReconnectLocked планирует переподключение темы с линейной
// задержкой base × номер попытки. После maxReconnectAttempts подряд
// тема остаётся закрытой до явного Connect. Вызывается только под мьютексом.
func (c *Channel) scheduleReconnectLocked(topic Topic) {
	conn := c.conns[topic]
	if c.id == nil {
		return
	}
	if conn.attempts >= c.opts.MaxReconnectAttempts {
		c.log.Error("reconnect attempts exhausted, giving up",
			sl.Topic(string(topic)),
			slog.Int("attempts", conn.attempts))
		return
	}

	conn.attempts++
	metrics.ReconnectAttempts.WithLabelValues(string(topic)).Inc()
	delay := c.opts.ReconnectBaseDelay * time.Duration(conn.attempts)
	c.log.Info("reconnect scheduled",
		sl.Topic(string(topic)),
		slog.Int("attempt", conn.attempts),
		slog.Duration("delay", delay))

	conn.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.id == nil {
			// Личность снята явным Disconnect — таймер молча завершается
			return
		}
		if c.conns[topic].state != StateClosed {
			return
		}
		c.startDialLocked(topic)
	})
}

func (c *Channel) setStateLocked(topic Topic, state State) {
	c.conns[topic].state = state
	metrics.ConnectionState.WithLabelValues(string(topic)).Set(float64(state))
}

func (c *Channel) topicURL(topic Topic, id identity) (string, error) {
	var raw string
	switch topic {
	case TopicPatent:
		raw = c.opts.PatentURL
	case TopicCompetitor:
		raw = c.opts.CompetitorURL
	default:
		return "", fmt.Errorf("unknown topic %q", topic)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("user_id", id.userID)
	q.Set("token", id.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func parseAlert(topic Topic, data []byte) (models.Alert, error) {
	now := time.Now()
	switch topic {
	case TopicPatent:
		var event models.PatentEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return models.Alert{}, err
		}
		return models.Alert{Kind: models.AlertPatent, Patent: &event, ReceivedAt: now}, nil
	case TopicCompetitor:
		var event models.CompetitorEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return models.Alert{}, err
		}
		return models.Alert{Kind: models.AlertCompetitor, Competitor: &event, ReceivedAt: now}, nil
	default:
		return models.Alert{}, fmt.Errorf("unknown topic %q", topic)
	}
}
