package handlers

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/models"
	"github.com/fleetpulse/fleetpulse/internal/types"
	"github.com/fleetpulse/fleetpulse/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	feedClients   = make(map[uint]map[*websocket.Conn]bool) // owner ID -> connections
	feedClientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// BroadcastAlert pushes a freshly created alert to the owner's
// connected dashboard clients.
func BroadcastAlert(alert models.Alert) {
	ownerID := alert.Car.OwnerID

	feedClientsMu.RLock()
	clients, exists := feedClients[ownerID]
	if !exists || len(clients) == 0 {
		feedClientsMu.RUnlock()
		return
	}

	// Copy the connection set so the lock is not held while writing
	clientsCopy := make([]*websocket.Conn, 0, len(clients))
	for conn := range clients {
		clientsCopy = append(clientsCopy, conn)
	}
	feedClientsMu.RUnlock()

	for _, conn := range clientsCopy {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.Printf("Failed to set write deadline for broadcast: %v", err)
			continue
		}

		err := conn.WriteJSON(gin.H{
			"type":  "alert_created",
			"alert": alertResponse(alert),
		})

		if err != nil {
			log.Printf("Failed to broadcast alert to client: %v", err)
			feedClientsMu.Lock()
			if clients, exists := feedClients[ownerID]; exists {
				delete(clients, conn)
				if len(clients) == 0 {
					delete(feedClients, ownerID)
				}
			}
			feedClientsMu.Unlock()
			conn.Close()
		}
	}
}

// AlertFeed upgrades the connection and streams created alerts for the
// authenticated user's fleet.
func AlertFeed(c *gin.Context) {
	user, err := utils.GetCurrentUser(c)

	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ownerID := user.ID

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range types.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Failed to set initial read deadline: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Failed to set read deadline in pong handler: %v", err)
		}
		return nil
	})

	feedClientsMu.Lock()
	if feedClients[ownerID] == nil {
		feedClients[ownerID] = make(map[*websocket.Conn]bool)
	}
	feedClients[ownerID][conn] = true
	feedClientsMu.Unlock()

	defer func() {
		feedClientsMu.Lock()

		if clients, exists := feedClients[ownerID]; exists {
			delete(clients, conn)

			if len(clients) == 0 {
				delete(feedClients, ownerID)
			}
		}

		feedClientsMu.Unlock()
		conn.Close()

		log.Printf("Alert feed closed for user %d", ownerID)
	}()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Printf("Failed to set write deadline for welcome message: %v", err)
		return
	}

	err = conn.WriteJSON(map[string]string{
		"type":    "connected",
		"message": "Alert feed established",
		"user_id": strconv.FormatUint(uint64(ownerID), 10),
	})

	if err != nil {
		log.Printf("Failed to send welcome message: %v", err)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					log.Printf("Failed to set write deadline for user %d: %v", ownerID, err)
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					log.Printf("Ping failed for user %d: %v", ownerID, err)
					return
				}
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Failed to set read deadline for user %d: %v", ownerID, err)
			break
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Alert feed error for user %d: %v", ownerID, err)
			}
			break
		}
	}
}
