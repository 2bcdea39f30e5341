package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/omvyx/voice-receptionist/internal/observability/metrics"
	"github.com/omvyx/voice-receptionist/internal/session"
	"github.com/omvyx/voice-receptionist/pkg/logging"
)

// Sessions is the slice of the session supervisor the transport needs.
type Sessions interface {
	StartTurn(req session.TurnRequest)
	Interrupt(callID string)
	EndCall(ctx context.Context, callID string)
}

// Handler serves the per-call websocket endpoint.
type Handler struct {
	sessions Sessions
	logger   *logging.Logger
	metrics  *metrics.TurnMetrics
	upgrader websocket.Upgrader
}

// NewHandler creates the websocket transport handler.
func NewHandler(sessions Sessions, logger *logging.Logger, m *metrics.TurnMetrics) *Handler {
	if sessions == nil {
		panic("transport: sessions required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		sessions: sessions,
		logger:   logger,
		metrics:  m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The voice platform connects server-to-server without an
			// Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeCall upgrades the connection and runs the read loop until the call
// disconnects. Route pattern: GET /calls/{callID}/ws.
func (h *Handler) ServeCall(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	if callID == "" {
		http.Error(w, "missing call id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("transport: websocket upgrade failed", "call_id", callID, "error", err)
		return
	}

	log := h.logger.WithCall(callID)
	log.Info("transport: call connected")

	writer := &connWriter{conn: conn}
	defer func() {
		// Call teardown: cancel any in-flight turn and discard state.
		h.sessions.EndCall(context.Background(), callID)
		conn.Close()
		log.Info("transport: call disconnected")
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("transport: read failed", "error", err)
			}
			return
		}

		var event InboundEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Error("transport: malformed event", "error", err)
			continue
		}
		h.dispatch(log, writer, callID, event)
	}
}

// dispatch routes one decoded event. Keepalives are answered inline and
// never touch the turn path.
func (h *Handler) dispatch(log *logging.Logger, writer *connWriter, callID string, event InboundEvent) {
	switch event.kind() {
	case kindKeepalive:
		h.metrics.ObserveKeepalive()
		if err := writer.writeJSON(keepaliveReply{
			InteractionType: interactionPingPong,
			Timestamp:       event.Timestamp,
		}); err != nil {
			log.Warn("transport: keepalive echo failed", "error", err)
		}

	case kindCallStart:
		log.Info("transport: call started", "initiator", event.Initiator)
		if event.Initiator == "agent" {
			h.startTurn(writer, callID, 0, "")
		}

	case kindResponse:
		h.startTurn(writer, callID, event.ResponseID, event.lastUserText())

	case kindInterrupt:
		log.Info("transport: interrupt received")
		h.sessions.Interrupt(callID)

	default:
		log.Warn("transport: unrecognized event",
			"interaction_type", event.InteractionType, "event", event.Event, "type", event.Type)
	}
}

func (h *Handler) startTurn(writer *connWriter, callID string, responseID int, userText string) {
	if userText == "" {
		userText = defaultUtterance
	}
	h.sessions.StartTurn(session.TurnRequest{
		CallID:     callID,
		ResponseID: responseID,
		UserText:   userText,
		Flush: func(_ context.Context, utterances []string) error {
			return writer.flush(responseID, utterances)
		},
	})
}

// connWriter serializes frame writes. Gorilla connections support one
// concurrent writer, and turn flushes race with keepalive echoes.
type connWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *connWriter) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

// flush writes a completed turn's utterances as content fragments followed
// by the empty content_complete terminator.
func (w *connWriter) flush(responseID int, utterances []string) error {
	for _, content := range utterances {
		if content == "" {
			continue
		}
		fragment := OutboundFragment{ResponseID: responseID, Content: content}
		if err := w.writeJSON(fragment); err != nil {
			return fmt.Errorf("transport: failed to write fragment: %w", err)
		}
	}
	terminator := OutboundFragment{ResponseID: responseID, ContentComplete: true}
	if err := w.writeJSON(terminator); err != nil {
		return fmt.Errorf("transport: failed to complete response: %w", err)
	}
	return nil
}
