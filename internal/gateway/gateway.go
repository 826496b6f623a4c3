// internal/gateway/gateway.go
package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tamzrod/mcstatus-relay/internal/bus"
	"github.com/tamzrod/mcstatus-relay/internal/notify"
)

const (
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	writeWait    = 10 * time.Second
	readLimit    = 64 << 10
	directBuffer = 16
)

// BusyMessage answers a ping the relay queue has no room for.
const BusyMessage = "Relay busy, try again later"

// Config is the gateway runtime config.
type Config struct {
	SubscriberBuffer int
	PingsPerSecond   float64 // per connection, 0 = unlimited
	Burst            int
}

// Server connects widget hosts to the relay over websockets.
// Inbound MINECRAFT_PING goes to the queue; every broadcast goes to every
// connection.
type Server struct {
	queue    *bus.Queue
	bc       *bus.Broadcaster
	cfg      Config
	upgrader websocket.Upgrader
}

// New creates a gateway server.
func New(queue *bus.Queue, bc *bus.Broadcaster, cfg Config) *Server {
	return &Server{
		queue: queue,
		bc:    bc,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes returns the gateway HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWebSocket)
	mux.HandleFunc("/healthz", s.health)
	return mux
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// client is one connected widget host.
type client struct {
	conn    *websocket.Conn
	sub     *bus.Subscription
	direct  chan []byte // replies for this connection only
	limiter *rate.Limiter
	done    chan struct{}
}

// HandleWebSocket handles WebSocket connections.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sub, err := s.bc.Subscribe(r.Context(), r.RemoteAddr, s.cfg.SubscriberBuffer)
	if err != nil {
		slog.Warn("Subscribe failed", "remote", r.RemoteAddr, "error", err)
		conn.Close()
		return
	}

	c := &client{
		conn:   conn,
		sub:    sub,
		direct: make(chan []byte, directBuffer),
		done:   make(chan struct{}),
	}
	if s.cfg.PingsPerSecond > 0 {
		burst := s.cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(s.cfg.PingsPerSecond), burst)
	}

	slog.Info("Widget host connected", "remote", r.RemoteAddr)

	go s.writePump(c)
	s.readPump(c)

	slog.Info("Widget host disconnected", "remote", r.RemoteAddr)
}

func (s *Server) readPump(c *client) {
	defer func() {
		close(c.done)
		s.bc.Unsubscribe(c.sub)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket error", "remote", c.sub.Name(), "error", err)
			}
			return
		}
		s.handleMessage(c, message)
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case message, ok := <-c.sub.C():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// dropped by the broadcaster or shutting down
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case message := <-c.direct:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
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

func (s *Server) handleMessage(c *client, data []byte) {
	env, err := notify.ParseEnvelope(data)
	if err != nil {
		s.reply(c, "", "Invalid message format")
		return
	}

	if env.Notification != notify.Ping {
		s.reply(c, identifierOf(env), "Unsupported notification: "+string(env.Notification))
		return
	}
	req, err := notify.DecodePing(env)
	if err != nil {
		s.reply(c, identifierOf(env), "Invalid "+string(notify.Ping)+" payload")
		return
	}

	if c.limiter != nil && !c.limiter.Allow() {
		slog.Warn("Ping rate limited", "remote", c.sub.Name(), "identifier", req.Identifier)
		s.reply(c, req.Identifier, "Too many requests, try again later")
		return
	}

	// Never block the read pump: a full queue is answered right away.
	if !s.queue.TrySubmit(req) {
		slog.Warn("Ping queue full", "remote", c.sub.Name(), "identifier", req.Identifier)
		s.reply(c, req.Identifier, BusyMessage)
	}
}

// reply sends an error to this connection only.
func (s *Server) reply(c *client, identifier, message string) {
	env, err := notify.NewEnvelope(notify.Error, notify.ErrorPayload{
		Identifier: identifier,
		Message:    message,
	})
	if err != nil {
		slog.Error("Failed to create error envelope", "error", err)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("Failed to marshal error envelope", "error", err)
		return
	}
	select {
	case c.direct <- data:
	default:
		// Buffer full
	}
}

// identifierOf best-effort extracts an identifier from any payload.
func identifierOf(env notify.Envelope) string {
	var p struct {
		Identifier string `json:"identifier"`
	}
	_ = json.Unmarshal(env.Payload, &p)
	return p.Identifier
}
