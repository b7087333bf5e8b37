// Package websocket is the connection lifecycle controller: it authenticates
// the transport handshake, keeps the session registry honest across
// connect/disconnect/supersession, and dispatches inbound events to the
// membership gate, the message pipeline, and the presence broadcaster.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/message"
	"github.com/nfrund/parley/internal/presence"
	"github.com/nfrund/parley/internal/pubsub"
	"github.com/nfrund/parley/internal/room"
	"github.com/nfrund/parley/internal/session"
)

// DefaultHandshakeTimeout bounds identity verification and profile lookup
// for a new connection.
const DefaultHandshakeTimeout = 10 * time.Second

// Deps are the collaborators the controller dispatches to.
type Deps struct {
	Verifier domain.IdentityVerifier
	Profiles domain.ProfileStore
	Registry *session.Registry
	Rooms    *room.Manager
	Gate     *room.Gate
	Pipeline *message.Pipeline
	Presence *presence.Broadcaster
	// Publisher receives connection lifecycle events. Optional.
	Publisher pubsub.Publisher
	// Limiter is consulted per inbound event. Optional; nil disables limiting.
	Limiter domain.RateLimiter

	HandshakeTimeout time.Duration
}

// Controller accepts WebSocket connections and routes their events.
type Controller struct {
	deps     Deps
	validate *validator.Validate
	logger   *slog.Logger
}

// NewController creates a connection controller.
func NewController(deps Deps) *Controller {
	if deps.HandshakeTimeout <= 0 {
		deps.HandshakeTimeout = DefaultHandshakeTimeout
	}
	return &Controller{
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   slog.Default().With("component", "ws-controller"),
	}
}

// Handler returns the echo handler for the WebSocket endpoint. The full
// handshake — credential extraction, identity verification, profile lookup —
// completes before the connection is upgraded; a connection that cannot
// authenticate never has event handlers attached.
func (ct *Controller) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		credential := extractCredential(c.Request())
		if credential == "" {
			return c.String(http.StatusUnauthorized, "missing bearer credential")
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), ct.deps.HandshakeTimeout)
		defer cancel()

		userID, err := ct.deps.Verifier.Verify(ctx, credential)
		if err != nil {
			ct.logger.Info("Handshake rejected: invalid credential", "error", err)
			return c.String(http.StatusUnauthorized, "invalid credential")
		}

		profile, err := ct.deps.Profiles.GetProfile(ctx, userID)
		if err != nil {
			ct.logger.Info("Handshake rejected: no profile", "userID", userID, "error", err)
			return c.String(http.StatusUnauthorized, "no profile for user")
		}

		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			InsecureSkipVerify: true, // Origin checking is the proxy's job in this deployment.
		})
		if err != nil {
			ct.logger.Error("Failed to upgrade connection", "userID", userID, "error", err)
			return err
		}

		client := newClient(uuid.NewString(), userID, *profile, conn)

		// A later handshake supersedes an earlier one; the superseded
		// connection is forcibly closed rather than left as a zombie
		// receiver of direct messages.
		if prev := ct.deps.Registry.Register(userID, client); prev != nil {
			prev.Close("session superseded by a newer connection")
		}

		ct.logger.Info("Client connected", "userID", userID, "sessionID", client.sessionID)
		ct.publishLifecycle(pubsub.TopicClientConnected, client)

		go client.writePump()
		ct.readLoop(client)
		return nil
	}
}

// extractCredential pulls the bearer credential from the handshake request:
// an Authorization header, or a token query parameter for clients that
// cannot set headers on WebSocket upgrade.
func extractCredential(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return token
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// readLoop pumps frames off the connection until it closes, dispatching each
// one on its own goroutine. Disconnect cleanup runs exactly once, here.
func (ct *Controller) readLoop(client *Client) {
	defer ct.disconnect(client)

	for {
		_, data, err := client.conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				ct.logger.Debug("WebSocket closed by client", "userID", client.userID)
			} else if err != io.EOF {
				ct.logger.Debug("WebSocket read ended", "userID", client.userID, "error", err)
			}
			return
		}

		// Handlers may suspend on store I/O; each frame runs independently so
		// a slow persist does not stall the read loop. Per-room ordering is
		// therefore persistence-completion order, by contract.
		go ct.handleFrame(client, data)
	}
}

// disconnect runs the connection's cleanup: conditional deregistration,
// leaving every joined room with a departure notice, and the lifecycle
// event. All of it is best-effort.
func (ct *Controller) disconnect(client *Client) {
	// False means a newer session superseded this one and still owns the
	// registry entry: the user is not going offline, so their rate bucket
	// and the disconnected lifecycle event belong to the live session.
	deregistered := ct.deps.Registry.Unregister(client.userID, client.sessionID)

	for _, roomID := range ct.deps.Rooms.LeaveAll(client) {
		ct.deps.Presence.Left(roomID, client, client.profile)
	}

	if deregistered {
		if f, ok := ct.deps.Limiter.(interface{ Forget(string) }); ok {
			f.Forget(client.userID)
		}
		ct.publishLifecycle(pubsub.TopicClientDisconnected, client)
	}

	client.shutdown()
	ct.logger.Info("Client disconnected", "userID", client.userID, "sessionID", client.sessionID, "deregistered", deregistered)
}

// publishLifecycle emits a connect/disconnect event on the bus so other
// modules can observe connection state without coupling to this package.
func (ct *Controller) publishLifecycle(topic string, client *Client) {
	if ct.deps.Publisher == nil {
		return
	}

	payload, _ := json.Marshal(map[string]string{
		"userID":    client.userID,
		"sessionID": client.sessionID,
	})

	go func() {
		err := ct.deps.Publisher.Publish(context.Background(), pubsub.Message{
			Topic:   topic,
			UserID:  client.userID,
			Payload: payload,
		})
		if err != nil {
			ct.logger.Error("Failed to publish lifecycle event", "topic", topic, "userID", client.userID, "error", err)
		}
	}()
}

// isMediaRejection reports whether err is any of the verifier's rejection
// reasons.
func isMediaRejection(err error) bool {
	return errors.Is(err, domain.ErrMediaNotEligible) ||
		errors.Is(err, domain.ErrMediaNotFound) ||
		errors.Is(err, domain.ErrMediaNotOwner) ||
		errors.Is(err, domain.ErrMediaNotApproved) ||
		errors.Is(err, domain.ErrMediaExpired)
}
