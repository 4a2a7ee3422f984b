package http

import (
	"context"
	"time"

	"fitness-gateway/internal/gateway/usecase"
	"fitness-gateway/internal/shared/eventbus"
	"fitness-gateway/internal/shared/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// SessionEventsHandler streams session lifecycle events to the browser so
// the UI can react when the server invalidates a session (401-triggered
// clears, password changes, logouts from other tabs).
type SessionEventsHandler struct {
	bus *eventbus.EventBus
	log logger.Logger
}

// NewSessionEventsHandler creates the websocket handler.
func NewSessionEventsHandler(bus *eventbus.EventBus, log logger.Logger) *SessionEventsHandler {
	return &SessionEventsHandler{
		bus: bus,
		log: log.WithComponent("session_events"),
	}
}

// RegisterRoutes registers the websocket endpoint (mounted at /api).
func (h *SessionEventsHandler) RegisterRoutes(router fiber.Router, middleware *SessionMiddleware) {
	group := router.Group("/session")

	group.Use("/events", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	group.Get("/events", middleware.Load(), websocket.New(h.handleConnection))
}

// eventFrame is the wire shape of one streamed event.
type eventFrame struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

func (h *SessionEventsHandler) handleConnection(conn *websocket.Conn) {
	sessionID, _ := conn.Locals(LocalsSessionID).(string)
	if sessionID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required"))
		_ = conn.Close()
		return
	}

	frames := make(chan eventFrame, 16)
	handler := func(ctx context.Context, event eventbus.Event) error {
		payload, ok := event.Data().(usecase.SessionEvent)
		if !ok || payload.SessionID != sessionID {
			return nil
		}
		// Drop rather than block: a slow client must not stall the bus.
		select {
		case frames <- eventFrame{Type: event.Type(), At: event.Timestamp()}:
		default:
		}
		return nil
	}

	unsubscribes := []func(){
		h.bus.Subscribe(eventbus.EventTypeSessionRefreshed, handler),
		h.bus.Subscribe(eventbus.EventTypeSessionCleared, handler),
		h.bus.Subscribe(eventbus.EventTypeSessionExpired, handler),
	}
	defer func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Debugf("Session events connection closed unexpectedly: %v", err)
				}
				return
			}
		}
	}()

	h.log.Debugf("Streaming session events for session %s", sessionID)

	for {
		select {
		case frame := <-frames:
			if err := conn.WriteJSON(frame); err != nil {
				h.log.Debugf("Failed to write session event: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}
