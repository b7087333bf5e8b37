package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/middleware"
)

// defaultHistoryLimit bounds a history read when the client does not ask for
// a specific page size.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	rateLimiter := middleware.RateLimiter(600)
	auth := middleware.Auth(s.verifier)

	s.E.GET("/ws", s.ws.Handler(), rateLimiter)

	s.E.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	api := s.E.Group("/api/v1", rateLimiter, auth)
	api.GET("/stats", s.statsGet)
	api.GET("/rooms/:id/messages", s.historyGet)
	api.POST("/rooms/:id/system", s.systemMessagePost)
}

func (s *Server) statsGet(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Chat.Snapshot())
}

// historyGet serves recent persisted events for a room, oldest first. The
// caller must be an authorized participant of the room.
func (s *Server) historyGet(c echo.Context) error {
	roomID := c.Param("id")
	userID, _ := c.Get(middleware.UserIDContextKey).(string)

	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		limit = min(n, maxHistoryLimit)
	}

	events, err := s.Chat.RoomHistory(c.Request().Context(), userID, roomID, limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotAuthorized) {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "not authorized for this room"})
		}
		middleware.FromContext(c.Request().Context()).Error("Failed to read room history", "roomID", roomID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to read history"})
	}

	if events == nil {
		events = []*domain.ChatEvent{}
	}
	return c.JSON(http.StatusOK, events)
}

type systemMessageRequest struct {
	Content string `json:"content"`
}

// systemMessagePost queues an unpersisted announcement for a room. It is an
// operational endpoint: the announcement reaches whoever is joined when the
// bus delivers it.
func (s *Server) systemMessagePost(c echo.Context) error {
	roomID := c.Param("id")

	var req systemMessageRequest
	if err := c.Bind(&req); err != nil || req.Content == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "content is required"})
	}

	if err := s.Chat.SendSystemMessage(c.Request().Context(), roomID, req.Content); err != nil {
		middleware.FromContext(c.Request().Context()).Error("Failed to queue system message", "roomID", roomID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to queue announcement"})
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
}
