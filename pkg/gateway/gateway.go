// Package gateway exposes the voice pipeline over WebSocket.
//
// Each connection gets a generated session id and a dedicated agent.
// Binary frames are buffered audio; JSON text frames are control
// messages. Turn results stream back as protocol frames.
package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/voicewire/go-voicewire/internal/log"
	"github.com/voicewire/go-voicewire/pkg/agent"
	"github.com/voicewire/go-voicewire/pkg/protocol"
)

// AgentFactory builds the pipeline agent for a new session.
type AgentFactory func(sessionID string) *agent.Agent

// session is one connected client.
type session struct {
	id        string
	conn      *websocket.Conn
	agent     *agent.Agent
	connected time.Time

	mu sync.Mutex
}

// send writes a protocol message to the client. Write failures are
// returned but callers on the streaming path ignore them; a dead socket
// surfaces in the read loop.
func (s *session) send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Gateway manages WebSocket sessions.
type Gateway struct {
	mu       sync.RWMutex
	sessions map[string]*session

	newAgent AgentFactory
	logger   *slog.Logger
}

// Options configures a Gateway.
type Options struct {
	Logger *slog.Logger
}

// New creates a gateway that builds agents with the given factory.
func New(factory AgentFactory, opts Options) *Gateway {
	if opts.Logger == nil {
		opts.Logger = log.L()
	}
	return &Gateway{
		sessions: make(map[string]*session),
		newAgent: factory,
		logger:   opts.Logger.With("component", "gateway"),
	}
}

// SessionCount returns the number of connected sessions.
func (g *Gateway) SessionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

// RegisterRoutes registers the WebSocket endpoint on a Fiber app.
func (g *Gateway) RegisterRoutes(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/voice", websocket.New(g.handleSession))
}

// handleSession runs one connection's lifecycle: register, announce the
// session id, demultiplex frames until disconnect, deregister.
func (g *Gateway) handleSession(c *websocket.Conn) {
	sessionID := uuid.NewString()
	sess := &session{
		id:        sessionID,
		conn:      c,
		agent:     g.newAgent(sessionID),
		connected: time.Now(),
	}

	g.mu.Lock()
	g.sessions[sessionID] = sess
	count := len(g.sessions)
	g.mu.Unlock()

	logger := g.logger.With("session_id", sessionID[:8])
	logger.Info("session connected", "total", count)

	defer func() {
		g.mu.Lock()
		delete(g.sessions, sessionID)
		count := len(g.sessions)
		g.mu.Unlock()
		logger.Info("session disconnected", "total", count)
	}()

	if msg, err := protocol.NewSessionStartMessage(sessionID); err == nil {
		if err := sess.send(msg); err != nil {
			logger.Warn("failed to send session start", "error", err)
			return
		}
	}

	for {
		msgType, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			sess.agent.AppendAudio(data)
		case websocket.TextMessage:
			if done := g.handleControl(sess, data, logger); done {
				return
			}
		}
	}
}

// handleControl dispatches a JSON control frame. Malformed frames are
// dropped. Returns true when the session should close.
func (g *Gateway) handleControl(sess *session, data []byte, logger *slog.Logger) bool {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		logger.Debug("dropping malformed control frame", "error", err)
		return false
	}

	switch msg.Type {
	case protocol.TypePing:
		if pong, err := protocol.NewPongMessage(msg.Timestamp); err == nil {
			if err := sess.send(pong); err != nil {
				logger.Debug("pong send failed", "error", err)
			}
		}

	case protocol.TypeAudioEnd:
		g.runTurn(context.Background(), sess, logger)

	case protocol.TypeSessionEnd:
		sess.conn.Close()
		return true

	default:
		logger.Debug("ignoring control frame", "type", msg.Type)
	}

	return false
}
