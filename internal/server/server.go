// Package server assembles the chat core into a running process: database
// connection, stores, registry, room manager, pipeline, bus, WebSocket
// controller, and the HTTP surface around them.
package server

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/surrealdb/surrealdb.go"

	"github.com/nfrund/parley/internal/chat"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/database"
	"github.com/nfrund/parley/internal/identity"
	"github.com/nfrund/parley/internal/logging"
	"github.com/nfrund/parley/internal/media"
	"github.com/nfrund/parley/internal/message"
	"github.com/nfrund/parley/internal/middleware"
	"github.com/nfrund/parley/internal/presence"
	"github.com/nfrund/parley/internal/pubsub"
	"github.com/nfrund/parley/internal/ratelimit"
	"github.com/nfrund/parley/internal/room"
	"github.com/nfrund/parley/internal/session"
	"github.com/nfrund/parley/internal/websocket"
)

// eventsPerSecond and eventBurst bound per-user inbound event throughput on
// established connections.
const (
	eventsPerSecond = 10
	eventBurst      = 20
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E        *echo.Echo
	DB       *surrealdb.DB
	Cfg      *config.Config
	Bus      *pubsub.WatermillBridge
	Chat     *chat.Service
	verifier *identity.JWTVerifier
	ws       *websocket.Controller
}

// New creates a fully wired Server instance.
func New() *Server {
	logging.New()
	cfg := config.New()

	db, err := database.NewDB(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	messages := database.NewSurrealMessageStore(db)
	participants := database.NewSurrealParticipantStore(db)
	profiles := database.NewSurrealProfileStore(db)
	attachments := database.NewSurrealMediaStore(db)

	verifier := identity.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	registry := session.NewRegistry()
	rooms := room.NewManager()
	gate := room.NewGate(participants)
	mediaVerifier := media.NewVerifier(gate, attachments)
	pipeline := message.NewPipeline(gate, mediaVerifier, messages, profiles, rooms)

	bus := pubsub.NewWatermillBridge()
	chatService := chat.NewService(registry, rooms, gate, pipeline, bus, bus)

	controller := websocket.NewController(websocket.Deps{
		Verifier:         verifier,
		Profiles:         profiles,
		Registry:         registry,
		Rooms:            rooms,
		Gate:             gate,
		Pipeline:         pipeline,
		Presence:         presence.NewBroadcaster(rooms),
		Publisher:        bus,
		Limiter:          ratelimit.NewPerUser(eventsPerSecond, eventBurst),
		HandshakeTimeout: cfg.HandshakeTimeout,
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger)
	e.Use(echomw.Recover())

	return &Server{
		E:        e,
		DB:       db,
		Cfg:      cfg,
		Bus:      bus,
		Chat:     chatService,
		verifier: verifier,
		ws:       controller,
	}
}

// Close releases the server's long-lived resources.
func (s *Server) Close() {
	if err := s.Bus.Close(); err != nil {
		slog.Error("Failed to close event bus", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.DB.Close(ctx); err != nil {
		slog.Error("Failed to close database connection", "error", err)
	}
}
