package handlers

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/middleware"
	"github.com/fleetpulse/fleetpulse/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newFeedServer() *httptest.Server {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/ws/alerts", func(c *gin.Context) {
		c.Set(types.ContextUserKey, middleware.AuthenticatedUser{ID: 7, Email: "fleet@example.com", Role: "staff"})
		AlertFeed(c)
	})

	return httptest.NewServer(r)
}

func dialFeed(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/alerts"
	header := http.Header{"Origin": []string{"http://localhost:3000"}}

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	return conn
}

func TestAlertFeed_DisconnectStopsPingLoop(t *testing.T) {
	server := newFeedServer()
	defer server.Close()

	before := runtime.NumGoroutine()

	for i := 0; i < 5; i++ {
		conn := dialFeed(t, server)

		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("reading welcome message: %v", err)
		}

		conn.Close()
	}

	deadline := time.Now().Add(3 * time.Second)

	for time.Now().Before(deadline) {
		feedClientsMu.RLock()
		registered := len(feedClients[7])
		feedClientsMu.RUnlock()

		if registered == 0 && runtime.NumGoroutine() <= before+2 {
			return
		}

		time.Sleep(20 * time.Millisecond)
	}

	feedClientsMu.RLock()
	registered := len(feedClients[7])
	feedClientsMu.RUnlock()

	t.Fatalf("feed teardown leaked: %d connections still registered, goroutines %d -> %d",
		registered, before, runtime.NumGoroutine())
}
