// Package gateway is the host-facing surface: a JSON HTTP API the desktop
// GIS plugin drives, plus a WebSocket feed that streams turn and environment
// events back to it.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MahdiFarnaghi/intelli-geo/internal/config"
	"github.com/MahdiFarnaghi/intelli-geo/internal/environment"
	"github.com/MahdiFarnaghi/intelli-geo/internal/logging"
	"github.com/MahdiFarnaghi/intelli-geo/internal/session"
	"github.com/MahdiFarnaghi/intelli-geo/internal/store"
)

// Server serves the host API.
type Server struct {
	cfg           config.GatewayConfig
	manager       *session.Manager
	conversations *store.ConversationStore
	credentials   *store.CredentialStore
	provider      *environment.MemoryProvider
	log           *logging.Logger

	hub        *eventHub
	upgrader   websocket.Upgrader
	httpServer *http.Server
	startedAt  time.Time
}

// New creates a gateway server.
func New(cfg config.GatewayConfig, manager *session.Manager, conversations *store.ConversationStore,
	credentials *store.CredentialStore, provider *environment.MemoryProvider, log *logging.Logger) *Server {
	gwlog := log.Sub("gateway")
	return &Server{
		cfg:           cfg,
		manager:       manager,
		conversations: conversations,
		credentials:   credentials,
		provider:      provider,
		log:           gwlog,
		hub:           newEventHub(gwlog),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The host plugin is not a browser; same-origin rules do not apply.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /conversations", s.handleListConversations)
	mux.HandleFunc("POST /conversations", s.handleCreateConversation)
	mux.HandleFunc("GET /conversations/search", s.handleSearchConversations)
	mux.HandleFunc("GET /conversations/{id}", s.handleGetConversation)
	mux.HandleFunc("PATCH /conversations/{id}", s.handleUpdateConversation)
	mux.HandleFunc("DELETE /conversations/{id}", s.handleDeleteConversation)
	mux.HandleFunc("GET /conversations/{id}/history", s.handleHistory)
	mux.HandleFunc("POST /conversations/{id}/messages", s.handleSubmit)
	mux.HandleFunc("POST /conversations/{id}/reflect", s.handleReflect)

	mux.HandleFunc("PUT /environment", s.handleSetEnvironment)
	mux.HandleFunc("PUT /credentials/{llmID}/key", s.handleUpdateAPIKey)

	mux.HandleFunc("GET /events", s.handleEvents)

	return s.withAuth(s.withRequestLog(mux))
}

// Start listens and serves until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	bind := s.cfg.Bind
	if bind == "" {
		bind = "127.0.0.1"
	}
	addr := fmt.Sprintf("%s:%d", bind, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // submits block until the turn finishes
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()
	s.log.Info().Str("addr", ln.Addr().String()).Bool("auth", s.cfg.Auth.Token != "").Msg("gateway listening")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.hub.closeAll()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// handleEvents upgrades to WebSocket and subscribes the client to the feed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.hub.add(conn)
}
