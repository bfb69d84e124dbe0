// Package serve exposes the host engine over HTTP: one endpoint per message
// round trip and a websocket stream of session state.
package serve

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dtnitsch/quote-origin/pkg/host"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	maxMessageBytes = 10 * 1024 * 1024
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The page script connects from whatever site it was injected into.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server routes wire messages to an Engine.
type Server struct {
	engine *host.Engine
	logger *slog.Logger
	router *gin.Engine

	closing   chan struct{}
	closeOnce sync.Once
}

func NewServer(engine *host.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:  engine,
		logger:  logger,
		router:  gin.New(),
		closing: make(chan struct{}),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())

	s.router.GET("/healthz", s.health)
	api := s.router.Group("/api")
	{
		api.POST("/messages", s.message)
		api.GET("/state", s.state)
	}
	s.router.GET("/ws", s.stream)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// CloseStreams ends every open websocket stream. http.Server.Shutdown does
// not track hijacked connections.
func (s *Server) CloseStreams() {
	s.closeOnce.Do(func() { close(s.closing) })
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// message decodes one envelope, hands it to the engine and returns the reply.
// Engine-level failures come back as a 200 with success=false.
func (s *Server) message(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMessageBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, host.Reply{Error: "failed to read request body"})
		return
	}
	msg, err := host.Decode(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, host.Reply{Error: err.Error()})
		return
	}

	reply, err := s.engine.Send(c.Request.Context(), msg)
	switch {
	case errors.Is(err, host.ErrStopped):
		c.JSON(http.StatusServiceUnavailable, host.Reply{Error: err.Error()})
		return
	case err != nil:
		// The client went away.
		s.logger.Warn("Message abandoned", "action", msg.Action(), "error", err)
		c.Status(http.StatusRequestTimeout)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) state(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Coordinator().Snapshot())
}

// stream pushes the current snapshot, then one per state change, until the
// client disconnects or the server shuts down.
func (s *Server) stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	snaps, stop := s.engine.Coordinator().Subscribe()
	defer stop()

	// Inbound frames are ignored; reading keeps pongs and close frames flowing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	defer func() {
		conn.Close()
		<-gone
	}()

	s.logger.Debug("Websocket client connected", "remote", c.Request.RemoteAddr)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := writeJSON(conn, s.engine.Coordinator().Snapshot()); err != nil {
		return
	}
	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if err := writeJSON(conn, snap); err != nil {
				s.logger.Debug("Websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-gone:
			s.logger.Debug("Websocket client disconnected", "remote", c.Request.RemoteAddr)
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
