package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/model"
	"github.com/stemsi/exstem-prep/internal/response"
	"github.com/stemsi/exstem-prep/internal/service"
	ws "github.com/stemsi/exstem-prep/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live quiz over a WebSocket.
type WSHandler struct {
	quizService *service.QuizService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(quizService *service.QuizService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		quizService: quizService,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// QuizStream godoc
// WS /ws/v1/quizzes/:id/stream
// Pushes ticks, expiry and the result; accepts quiz actions from the client.
func (h *WSHandler) QuizStream(c *gin.Context) {
	quizID := c.Param("id")

	state, err := h.quizService.Current(quizID)
	if err != nil {
		status, code := quizErrorStatus(err)
		response.Fail(c, status, code)
		return
	}
	events, cancel, err := h.quizService.Subscribe(quizID)
	if err != nil {
		status, code := quizErrorStatus(err)
		response.Fail(c, status, code)
		return
	}
	defer cancel()

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().Str("quiz_id", quizID).Logger()
	wsLog.Info().Msg("Client connected")

	if err := conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: *state}); err != nil {
		return
	}

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		h.pump(conn, events)
	}()

	for {
		var msg ws.RequestEnvelope
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}
		h.dispatch(c.Request.Context(), conn, wsLog, quizID, &msg)
	}

	cancel()
	<-pumpDone
}

// pump forwards quiz events until the subscription closes, then closes the
// connection normally.
func (h *WSHandler) pump(conn *ws.Conn, events <-chan service.Event) {
	for ev := range events {
		var err error
		switch ev.Type {
		case service.EventTick:
			err = conn.WriteTyped(ws.TickResponse{Event: ws.EventTick, RemainingSeconds: ev.RemainingSeconds})
		case service.EventExpired:
			err = conn.WriteTyped(ws.ExpiredResponse{Event: ws.EventExpired})
		case service.EventResult:
			err = conn.WriteTyped(ws.ResultResponse{Event: ws.EventResult, Result: ev.Result})
		}
		if err != nil {
			return
		}
	}
	_ = conn.CloseNormal("quiz closed")
}

func (h *WSHandler) dispatch(ctx context.Context, conn *ws.Conn, log zerolog.Logger, quizID string, msg *ws.RequestEnvelope) {
	switch msg.Action {
	case ws.ActionPing:
		conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})

	case ws.ActionAnswer:
		if msg.Choice == nil {
			conn.WriteError("choice_index is required")
			return
		}
		feedback, err := h.quizService.Answer(quizID, *msg.Choice)
		if err != nil {
			h.writeFailure(conn, err)
			return
		}
		conn.WriteTyped(ws.FeedbackResponse{Event: ws.EventFeedback, Feedback: feedback})

	case ws.ActionClear:
		h.writeState(conn, func() (*model.QuizState, error) { return h.quizService.Clear(quizID) })
	case ws.ActionNext:
		h.writeState(conn, func() (*model.QuizState, error) { return h.quizService.Next(quizID) })
	case ws.ActionPrevious:
		h.writeState(conn, func() (*model.QuizState, error) { return h.quizService.Previous(quizID) })

	case ws.ActionJump:
		if msg.Index == nil {
			conn.WriteError("index is required")
			return
		}
		index := *msg.Index
		h.writeState(conn, func() (*model.QuizState, error) { return h.quizService.Jump(quizID, index) })

	case ws.ActionSubmit:
		// The result reaches the client through the event pump.
		if _, err := h.quizService.Submit(ctx, quizID); err != nil && !errors.Is(err, service.ErrPersistFailed) {
			h.writeFailure(conn, err)
		}

	default:
		log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		conn.WriteError("unknown action: " + string(msg.Action))
	}
}

func (h *WSHandler) writeState(conn *ws.Conn, fn func() (*model.QuizState, error)) {
	state, err := fn()
	if err != nil {
		h.writeFailure(conn, err)
		return
	}
	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: *state})
}

func (h *WSHandler) writeFailure(conn *ws.Conn, err error) {
	_, code := quizErrorStatus(err)
	conn.WriteError(response.GetMessage(code))
}
