package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vizlet/vizlet/internal/controller"
	"github.com/vizlet/vizlet/internal/logging"
	"github.com/vizlet/vizlet/internal/monitoring"
	"github.com/vizlet/vizlet/internal/sandbox"
	"github.com/vizlet/vizlet/internal/types"
	"github.com/vizlet/vizlet/internal/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Handler manages WebSocket connections
type Handler struct {
	dispatcher *sandbox.Dispatcher
	controller *controller.Controller
	metrics    *monitoring.Metrics
	logger     *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(dispatcher *sandbox.Dispatcher, ctrl *controller.Controller, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Handler{
		dispatcher: dispatcher,
		controller: ctrl,
		metrics:    metrics,
		logger:     logger.Component("ws"),
	}
}

// inbound is the client message envelope.
type inbound struct {
	Type     string           `json:"type"`
	WidgetID string           `json:"widget_id,omitempty"`
	Spec     *types.WidgetSpec `json:"spec,omitempty"`
}

// conn wraps a websocket connection with a write lock, since the outcome
// forwarder and the request handler both write.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(data)
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer raw.Close()

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	connection := &conn{ws: raw}

	// Send welcome message
	connection.send(map[string]interface{}{
		"type":    "system",
		"message": "Connected to Vizlet Widget Renderer",
	})

	// Outcome messages flow to the client for watched widgets.
	var (
		watchMu sync.RWMutex
		watched = make(map[string]bool)
		all     bool
	)

	outcomes, cancel := h.dispatcher.SubscribeAll()
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case msg, ok := <-outcomes:
				if !ok {
					return
				}
				watchMu.RLock()
				interested := all || watched[msg.WidgetID]
				watchMu.RUnlock()
				if !interested {
					continue
				}
				h.metrics.RecordWSMessage("out", string(msg.Type))
				connection.send(map[string]interface{}{
					"type":        "outcome",
					"kind":        msg.Type,
					"widget_id":   msg.WidgetID,
					"fingerprint": msg.Fingerprint,
					"error":       msg.Error,
					"timestamp":   time.Now().Unix(),
				})
			case <-done:
				return
			}
		}
	}()

	// Listen for messages
	for {
		var msg inbound
		if err := raw.ReadJSON(&msg); err != nil {
			h.logger.Debug("websocket read ended", zap.Error(err))
			break
		}
		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case "watch":
			if msg.WidgetID == "*" {
				watchMu.Lock()
				all = true
				watchMu.Unlock()
				connection.send(map[string]interface{}{"type": "watching", "widget_id": "*"})
				continue
			}
			if err := utils.ValidateID(msg.WidgetID, "widget_id", true); err != nil {
				h.sendError(connection, err.Error())
				continue
			}
			watchMu.Lock()
			watched[msg.WidgetID] = true
			watchMu.Unlock()
			connection.send(map[string]interface{}{"type": "watching", "widget_id": msg.WidgetID})

		case "unwatch":
			watchMu.Lock()
			if msg.WidgetID == "*" {
				all = false
			}
			delete(watched, msg.WidgetID)
			watchMu.Unlock()

		case "render":
			h.handleRender(c, connection, msg)

		case "ping":
			connection.send(map[string]interface{}{"type": "pong"})

		default:
			h.sendError(connection, "unknown message type")
		}
	}
}

// handleRender runs a widget and streams the outcome back. The dispatcher
// also delivers the ready/error signal to watchers, so a dashboard client
// watching the widget sees the result without issuing its own render.
func (h *Handler) handleRender(c *gin.Context, connection *conn, msg inbound) {
	if msg.Spec == nil {
		h.sendError(connection, "render requires a spec")
		return
	}
	if err := utils.ValidateComponentSource(msg.Spec.ComponentSource); err != nil {
		h.sendError(connection, err.Error())
		return
	}

	spec := *msg.Spec
	if spec.ID == "" {
		spec.ID = msg.WidgetID
	}
	if err := utils.ValidateID(spec.ID, "widget_id", true); err != nil {
		h.sendError(connection, err.Error())
		return
	}

	// Watch the widget implicitly so the outcome reaches this client.
	go func() {
		outcome := h.controller.Render(c.Request.Context(), spec)
		connection.send(map[string]interface{}{
			"type":      "render_complete",
			"widget_id": spec.ID,
			"outcome":   outcome,
			"timestamp": time.Now().Unix(),
		})
	}()
}

func (h *Handler) sendError(connection *conn, msg string) error {
	return connection.send(map[string]interface{}{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	})
}
