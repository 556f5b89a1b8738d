package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chatlink-backend/internal/domain"
	"chatlink-backend/internal/notifier"
	redisrepo "chatlink-backend/internal/repository/redis"
	"chatlink-backend/pkg/jwt"
	"chatlink-backend/pkg/logger"
	"chatlink-backend/pkg/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin enforcement happens at the CORS layer
	},
}

// GroupLister resolves the groups a user belongs to at connect time so
// the connection can be subscribed to each group's event topic.
type GroupLister interface {
	ListGroups(ctx context.Context, userID uuid.UUID) ([]*domain.GroupResponse, error)
}

// Hub fans events published on Redis topics out to connected WebSocket
// clients. Each client is subscribed to its own user topic plus one
// topic per group membership. Event envelopes are forwarded to clients
// exactly as published.
type Hub struct {
	redisClient *redis.Client
	presence    *redisrepo.PresenceRepository
	groups      GroupLister
	jwtManager  *jwt.JWTManager
	metrics     *metrics.Metrics

	mu          sync.Mutex
	topics      map[string]*subscription
	connections int
}

// subscription is a single Redis Pub/Sub channel shared by every
// client interested in its topic.
type subscription struct {
	pubsub  *redis.PubSub
	clients map[*Client]bool
}

// Client represents one WebSocket connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID
	topics []string
}

// NewHub creates a new event hub. metrics may be nil.
func NewHub(redisClient *redis.Client, presence *redisrepo.PresenceRepository, groups GroupLister, jwtManager *jwt.JWTManager, m *metrics.Metrics) *Hub {
	return &Hub{
		redisClient: redisClient,
		presence:    presence,
		groups:      groups,
		jwtManager:  jwtManager,
		metrics:     m,
		topics:      make(map[string]*subscription),
	}
}

// ServeWS authenticates and upgrades a WebSocket request.
// GET /v1/ws?token=<access token>
func (h *Hub) ServeWS(c *gin.Context) {
	userID, ok := h.authenticate(c)
	if !ok {
		c.JSON(401, gin.H{"error": "unauthorized"})
		return
	}

	topics := []string{notifier.UserTopic(userID)}
	groups, err := h.groups.ListGroups(c.Request.Context(), userID)
	if err != nil {
		logger.Warn("failed to list groups for websocket subscriptions",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	} else {
		for _, g := range groups {
			topics = append(topics, notifier.GroupTopic(g.GroupID))
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
		topics: topics,
	}

	h.addClient(client)

	go client.writePump()
	go client.readPump()
}

// authenticate accepts the token either as a query parameter, which is
// all browser WebSocket clients can send, or as a Bearer header.
func (h *Hub) authenticate(c *gin.Context) (uuid.UUID, bool) {
	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		return uuid.Nil, false
	}

	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		return uuid.Nil, false
	}
	for _, aud := range claims.Audience {
		if aud == jwt.Audience {
			return claims.UserID, true
		}
	}
	return uuid.Nil, false
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	for _, topic := range client.topics {
		sub, ok := h.topics[topic]
		if !ok {
			sub = &subscription{
				pubsub:  h.redisClient.Subscribe(context.Background(), topic),
				clients: make(map[*Client]bool),
			}
			h.topics[topic] = sub
			go h.forward(topic, sub)
		}
		sub.clients[client] = true
	}
	h.connections++
	n := h.connections
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetWebSocketConnections(n)
	}
	if err := h.presence.SetOnline(context.Background(), client.userID); err != nil {
		logger.Warn("failed to set presence online",
			zap.String("user_id", client.userID.String()),
			zap.Error(err),
		)
	}

	logger.Info("websocket connected",
		zap.String("user_id", client.userID.String()),
		zap.Int("topics", len(client.topics)),
	)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	for _, topic := range client.topics {
		sub, ok := h.topics[topic]
		if !ok {
			continue
		}
		if _, exists := sub.clients[client]; exists {
			delete(sub.clients, client)
			if len(sub.clients) == 0 {
				sub.pubsub.Close()
				delete(h.topics, topic)
			}
		}
	}
	h.connections--
	n := h.connections

	// The user may hold other connections subscribed to their user
	// topic; only the last one flips presence to offline.
	stillConnected := false
	if sub, ok := h.topics[notifier.UserTopic(client.userID)]; ok && len(sub.clients) > 0 {
		stillConnected = true
	}
	h.mu.Unlock()

	close(client.send)

	if h.metrics != nil {
		h.metrics.SetWebSocketConnections(n)
	}
	if !stillConnected {
		if err := h.presence.SetOffline(context.Background(), client.userID); err != nil {
			logger.Warn("failed to set presence offline",
				zap.String("user_id", client.userID.String()),
				zap.Error(err),
			)
		}
	}

	logger.Info("websocket disconnected", zap.String("user_id", client.userID.String()))
}

// forward pushes every message published on the topic to the clients
// subscribed to it. It exits when the subscription is closed.
func (h *Hub) forward(topic string, sub *subscription) {
	for msg := range sub.pubsub.Channel() {
		payload := []byte(msg.Payload)

		h.mu.Lock()
		for client := range sub.clients {
			select {
			case client.send <- payload:
			default:
				// Slow consumer, drop the event rather than block
				// delivery to everyone else.
			}
		}
		h.mu.Unlock()
	}
}

// readPump consumes the connection until it closes. Clients do not send
// application messages over this socket; it only keeps the connection
// alive and refreshes presence on pongs.
func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.hub.presence.Refresh(context.Background(), c.userID)
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					zap.String("user_id", c.userID.String()),
					zap.Error(err),
				)
			}
			break
		}
	}
}

// writePump writes queued events and periodic pings to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
