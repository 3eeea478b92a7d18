package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quizloop-service/internal/app"
	"quizloop-service/internal/domain"
	"quizloop-service/internal/sharelink"
)

const (
	maxMessageSize = 16 << 10
	writeWait      = 10 * time.Second
)

// WSHandler runs one quiz visit per WebSocket connection.
type WSHandler struct {
	flow     *app.FlowController
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(flow *app.FlowController, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		flow: flow,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

func stateMessage(snap app.Snapshot) outboundMessage[app.Snapshot] {
	return outboundMessage[app.Snapshot]{Type: "state", Payload: snap}
}

func errorMessage(err error) outboundMessage[errorBody] {
	_, body := classify(err)
	return outboundMessage[errorBody]{Type: "error", Payload: body}
}

// ServeWS upgrades the request and drives the visit addressed by
// ?slug=...&data=...[&respondentId=...].
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	slug := query.Get("slug")
	token := query.Get(sharelink.QueryParam)
	respondentID := query.Get("respondentId")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	ctx := r.Context()
	var (
		visit *app.Visit
		snap  app.Snapshot
	)
	if respondentID != "" {
		visit, snap, err = h.flow.ResumeVisit(ctx, slug, token, respondentID)
	} else {
		visit, snap, err = h.flow.StartVisit(ctx, slug, token)
	}
	if err != nil {
		if errors.Is(err, domain.ErrQuizUnavailable) {
			// same frame for a missing and an unpublished quiz
			_ = h.write(conn, stateMessage(app.UnavailableSnapshot()))
		} else {
			_ = h.write(conn, errorMessage(err))
		}
		h.closeNormal(conn)
		return
	}
	defer h.flow.EndVisit(visit.ID)

	if err := h.write(conn, stateMessage(snap)); err != nil {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug().Err(err).Str("visit_id", visit.ID).Msg("ws read ended")
			}
			return
		}

		action, err := decodeAction(inbound)
		if err != nil {
			if werr := h.write(conn, outboundMessage[errorBody]{Type: "error", Payload: errorBody{Code: "BAD_REQUEST", Message: err.Error()}}); werr != nil {
				return
			}
			continue
		}

		snap, err := h.flow.Act(ctx, visit.ID, action)
		if err != nil {
			if werr := h.write(conn, errorMessage(err)); werr != nil {
				return
			}
			if errors.Is(err, domain.ErrVisitNotFound) {
				h.closeNormal(conn)
				return
			}
		}
		if err := h.write(conn, stateMessage(snap)); err != nil {
			return
		}
	}
}

func decodeAction(msg inboundMessage) (app.Action, error) {
	var action app.Action
	if len(msg.Payload) > 0 && string(msg.Payload) != "null" {
		if err := json.Unmarshal(msg.Payload, &action); err != nil {
			return app.Action{}, errors.New("invalid " + msg.Type + " payload")
		}
	}
	action.Type = msg.Type
	return action, nil
}

func (h *WSHandler) write(conn *websocket.Conn, msg any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.log.Debug().Err(err).Msg("ws write failed")
		return err
	}
	return nil
}

func (h *WSHandler) closeNormal(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}
