package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(logrus.NewEntry(logrus.New()))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws/runs", hub.HandleWebSocket)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return hub, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/runs"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestHub_BroadcastsToSubscribers(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)

	require.Eventually(t, func() bool { return hub.GetConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: EventRunCompleted, RunID: "r1", Gameweek: 12, Method: "arima"})

	event := readEvent(t, conn)
	assert.Equal(t, EventRunCompleted, event.Type)
	assert.Equal(t, "r1", event.RunID)
	assert.Equal(t, 12, event.Gameweek)
	assert.False(t, event.Timestamp.IsZero())
}

func TestHub_GameweekFilter(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url+"?gameweek=5")

	require.Eventually(t, func() bool { return hub.GetConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: EventRunStarted, RunID: "other", Gameweek: 4})
	hub.Publish(Event{Type: EventRunStarted, RunID: "mine", Gameweek: 5})

	event := readEvent(t, conn)
	assert.Equal(t, "mine", event.RunID)
}

func TestHub_RejectsBadGameweek(t *testing.T) {
	_, url := startHub(t)
	_, resp, err := websocket.DefaultDialer.Dial(url+"?gameweek=abc", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHub_UnregistersClosedClients(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.GetConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.GetConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
