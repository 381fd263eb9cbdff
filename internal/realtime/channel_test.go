package realtime

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipwatch/ip-monitor-client/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

var upgrader = websocket.Upgrader{}

// alertServer принимает websocket-соединения, считает их и отправляет
// каждому соединению заранее заданные сообщения.
type alertServer struct {
	srv      *httptest.Server
	upgrades atomic.Int64

	mu       sync.Mutex
	messages [][]byte
}

func newAlertServer(t *testing.T, messages ...[]byte) *alertServer {
	t.Helper()
	as := &alertServer{messages: messages}
	as.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		as.upgrades.Add(1)

		as.mu.Lock()
		msgs := as.messages
		as.mu.Unlock()
		for _, msg := range msgs {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
		// Держим соединение открытым до закрытия клиентом
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(as.srv.Close)
	return as
}

func (as *alertServer) wsURL() string {
	return "ws" + strings.TrimPrefix(as.srv.URL, "http")
}

func newChannel(patentURL, competitorURL string, baseDelay time.Duration, maxAttempts int) *Channel {
	return New(Options{
		PatentURL:            patentURL,
		CompetitorURL:        competitorURL,
		ReconnectBaseDelay:   baseDelay,
		MaxReconnectAttempts: maxAttempts,
	}, newNoopLogger())
}

func waitOpen(t *testing.T, c *Channel, topics ...Topic) {
	t.Helper()
	require.Eventually(t, func() bool {
		states := c.States()
		for _, topic := range topics {
			if states[topic].State != "OPEN" {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)
}

func TestChannel_DeliversToAllSubscribers(t *testing.T) {
	srv := newAlertServer(t, []byte(`{
		"patent_id": "US1234567",
		"event_type": "STATUS_CHANGE",
		"severity": "WARNING",
		"message": "status changed"
	}`))

	c := newChannel(srv.wsURL(), srv.wsURL(), 10*time.Millisecond, 3)
	defer c.Disconnect()

	first := make(chan models.Alert, 1)
	second := make(chan models.Alert, 1)
	c.Subscribe(TopicPatent, func(a models.Alert) { first <- a })
	c.Subscribe(TopicPatent, func(a models.Alert) { second <- a })

	c.Connect("u-1", "the-token")

	for _, ch := range []chan models.Alert{first, second} {
		select {
		case alert := <-ch:
			assert.Equal(t, models.AlertPatent, alert.Kind)
			require.NotNil(t, alert.Patent)
			assert.Equal(t, "US1234567", alert.Patent.PatentID)
		case <-time.After(2 * time.Second):
			t.Fatal("subscriber did not receive the alert")
		}
	}
}

func TestChannel_MalformedMessageDroppedAndLaterDelivered(t *testing.T) {
	srv := newAlertServer(t,
		[]byte(`this is not json`),
		[]byte(`{"competitor_id": "c-9", "competitor_code": "ACME", "new_filings": 2}`),
	)

	c := newChannel(srv.wsURL(), srv.wsURL(), 10*time.Millisecond, 3)
	defer c.Disconnect()

	got := make(chan models.Alert, 2)
	c.Subscribe(TopicCompetitor, func(a models.Alert) { got <- a })

	c.Connect("u-1", "the-token")

	select {
	case alert := <-got:
		// Нечитаемое сообщение пропущено, доставлено только корректное
		assert.Equal(t, models.AlertCompetitor, alert.Kind)
		require.NotNil(t, alert.Competitor)
		assert.Equal(t, "ACME", alert.Competitor.CompetitorCode)
		assert.Equal(t, 2, alert.Competitor.NewFilings)
	case <-time.After(2 * time.Second):
		t.Fatal("well-formed message after malformed one was not delivered")
	}

	select {
	case extra := <-got:
		t.Fatalf("unexpected extra delivery: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChannel_ConnectIsIdempotent(t *testing.T) {
	srv := newAlertServer(t)

	c := newChannel(srv.wsURL(), srv.wsURL(), 10*time.Millisecond, 3)
	defer c.Disconnect()

	c.Connect("u-1", "the-token")
	waitOpen(t, c, TopicPatent, TopicCompetitor)

	c.Connect("u-1", "the-token")
	time.Sleep(100 * time.Millisecond)

	// По одному рукопожатию на тему, повторный Connect ничего не открыл
	assert.Equal(t, int64(2), srv.upgrades.Load())
}

func TestChannel_IdentitySwapDuringHandshakeRedials(t *testing.T) {
	srv := newAlertServer(t)

	c := newChannel(srv.wsURL(), srv.wsURL(), 10*time.Millisecond, 3)
	defer c.Disconnect()

	// Рукопожатие от имени прежней личности завершается уже после того,
	// как Connect сменил учётные данные
	c.mu.Lock()
	c.id = &identity{userID: "u-2", token: "new-token"}
	c.setStateLocked(TopicPatent, StateConnecting)
	c.mu.Unlock()

	c.dial(TopicPatent, identity{userID: "u-1", token: "old-token"})

	waitOpen(t, c, TopicPatent)
	// Устаревшее соединение закрыто, тема открыта повторным рукопожатием
	assert.Equal(t, int64(2), srv.upgrades.Load())
}

func TestChannel_ReconnectAttemptsBounded(t *testing.T) {
	// Сервер закрыт до первого рукопожатия: каждая попытка обречена
	srv := newAlertServer(t)
	dead := srv.wsURL()
	srv.srv.Close()

	c := newChannel(dead, dead, 5*time.Millisecond, 3)
	c.Connect("u-1", "the-token")

	require.Eventually(t, func() bool {
		states := c.States()
		return states[TopicPatent].Attempts == 3 && states[TopicPatent].State == "CLOSED"
	}, 2*time.Second, 10*time.Millisecond)

	// Дальнейших автоматических попыток нет, счётчик не превышает максимум
	time.Sleep(150 * time.Millisecond)
	states := c.States()
	assert.Equal(t, 3, states[TopicPatent].Attempts)
	assert.Equal(t, 3, states[TopicCompetitor].Attempts)
	assert.Equal(t, "CLOSED", states[TopicPatent].State)
}

func TestChannel_DisconnectStopsReconnects(t *testing.T) {
	srv := newAlertServer(t)

	c := newChannel(srv.wsURL(), srv.wsURL(), 20*time.Millisecond, 5)
	c.Connect("u-1", "the-token")
	waitOpen(t, c, TopicPatent, TopicCompetitor)

	c.Disconnect()

	states := c.States()
	assert.Equal(t, "CLOSED", states[TopicPatent].State)
	assert.Equal(t, "CLOSED", states[TopicCompetitor].State)
	assert.Equal(t, 0, states[TopicPatent].Attempts)

	// После явного Disconnect переподключения не планируются
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int64(2), srv.upgrades.Load())
}

func TestChannel_Unsubscribe(t *testing.T) {
	srv := newAlertServer(t, []byte(`{"patent_id": "US1", "message": "m"}`))

	c := newChannel(srv.wsURL(), srv.wsURL(), 10*time.Millisecond, 3)
	defer c.Disconnect()

	got := make(chan models.Alert, 1)
	unsubscribe := c.Subscribe(TopicPatent, func(a models.Alert) { got <- a })
	unsubscribe()

	c.Connect("u-1", "the-token")
	waitOpen(t, c, TopicPatent)

	select {
	case <-got:
		t.Fatal("unsubscribed handler must not be invoked")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestChannel_OnOpenHookFires(t *testing.T) {
	srv := newAlertServer(t)

	c := newChannel(srv.wsURL(), srv.wsURL(), 10*time.Millisecond, 3)
	defer c.Disconnect()

	var opened atomic.Int64
	c.OnOpen(func(Topic) { opened.Add(1) })

	c.Connect("u-1", "the-token")
	waitOpen(t, c, TopicPatent, TopicCompetitor)

	assert.Equal(t, int64(2), opened.Load())
}
