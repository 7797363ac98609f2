package dashboard

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// FeedConfig holds configuration for the Feed.
type FeedConfig struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
	SendBufferSize int
	// AllowedOrigins restricts the Origin header on upgrade. Empty allows all.
	AllowedOrigins []string
}

// DefaultFeedConfig returns a FeedConfig with sensible defaults.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		MaxMessageSize: 512,
		SendBufferSize: 8,
	}
}

// feedMessage is the frame written to clients.
type feedMessage struct {
	Type string      `json:"type"`
	Data StatsResult `json:"data"`
}

type feedClient struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
	feed *Feed
}

// Feed streams dashboard summaries to connected websocket clients.
type Feed struct {
	config   FeedConfig
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	clients   map[uuid.UUID]*feedClient
	clientsMu sync.RWMutex

	// last is replayed to new clients.
	last   []byte
	lastMu sync.RWMutex

	broadcast  chan []byte
	register   chan *feedClient
	unregister chan *feedClient

	done chan struct{}
	wg   sync.WaitGroup
}

// NewFeed creates a new Feed with the given configuration.
func NewFeed(cfg FeedConfig, logger zerolog.Logger) *Feed {
	def := DefaultFeedConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.SendBufferSize < 1 {
		cfg.SendBufferSize = def.SendBufferSize
	}

	f := &Feed{
		config:     cfg,
		logger:     logger.With().Str("component", "stats_feed").Logger(),
		clients:    make(map[uuid.UUID]*feedClient),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		done:       make(chan struct{}),
	}
	f.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     f.checkOrigin,
	}
	return f
}

func (f *Feed) checkOrigin(r *http.Request) bool {
	if len(f.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range f.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Start begins processing broadcasts and client management.
func (f *Feed) Start() {
	f.wg.Add(1)
	go f.run()
	f.logger.Info().Msg("stats feed started")
}

// Stop closes all client connections and stops the feed.
func (f *Feed) Stop() {
	close(f.done)
	f.wg.Wait()
	f.logger.Info().Msg("stats feed stopped")
}

func (f *Feed) run() {
	defer f.wg.Done()

	for {
		select {
		case <-f.done:
			f.closeAllClients()
			return

		case client := <-f.register:
			f.clientsMu.Lock()
			f.clients[client.id] = client
			f.clientsMu.Unlock()
			f.logger.Debug().Str("client_id", client.id.String()).Msg("client connected")

		case client := <-f.unregister:
			f.removeClient(client)

		case msg := <-f.broadcast:
			f.clientsMu.RLock()
			for _, client := range f.clients {
				select {
				case client.send <- msg:
				default:
					f.logger.Warn().Str("client_id", client.id.String()).Msg("client send buffer full, dropping update")
				}
			}
			f.clientsMu.RUnlock()
		}
	}
}

func (f *Feed) removeClient(client *feedClient) {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()

	if _, ok := f.clients[client.id]; !ok {
		return
	}
	delete(f.clients, client.id)
	close(client.send)
	f.logger.Debug().Str("client_id", client.id.String()).Msg("client disconnected")
}

func (f *Feed) closeAllClients() {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()

	for _, client := range f.clients {
		close(client.send)
	}
	f.clients = make(map[uuid.UUID]*feedClient)
}

// PublishStats implements Publisher.
func (f *Feed) PublishStats(result StatsResult) {
	data, err := json.Marshal(feedMessage{Type: "stats", Data: result})
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to encode stats update")
		return
	}

	f.lastMu.Lock()
	f.last = data
	f.lastMu.Unlock()

	select {
	case f.broadcast <- data:
	default:
		f.logger.Warn().Msg("broadcast buffer full, dropping update")
	}
}

// HandleWebSocket upgrades the connection and streams updates to it.
func (f *Feed) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	client := &feedClient{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, f.config.SendBufferSize),
		feed: f,
	}

	f.lastMu.RLock()
	if f.last != nil {
		client.send <- f.last
	}
	f.lastMu.RUnlock()

	select {
	case f.register <- client:
	case <-f.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// ClientCount returns the number of connected clients.
func (f *Feed) ClientCount() int {
	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()
	return len(f.clients)
}

// readPump drains client frames so pongs and close frames are processed.
func (c *feedClient) readPump() {
	defer func() {
		select {
		case c.feed.unregister <- c:
		case <-c.feed.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.feed.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.feed.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.feed.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.feed.logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(c.feed.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.feed.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.feed.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
