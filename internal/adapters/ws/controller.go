// Package ws carries the client event protocol over a gorilla
// WebSocket: one read pump and one write pump per connection, JSON
// frames discriminated by a "type" field.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/KoushikPanda1729/lms-english/internal/app"
	"github.com/KoushikPanda1729/lms-english/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var validate = validator.New()

type Controller struct {
	Match      *app.Matchmaker
	Signal     *app.Signaling
	Registry   *app.Registry
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewController(match *app.Matchmaker, signal *app.Signaling, reg *app.Registry, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{Match: match, Signal: signal, Registry: reg, ReadLimit: readLimit, PingPeriod: pingPeriod}
}

// HandleWS upgrades an authenticated request and starts the pumps.
// The auth middleware has already resolved the user id.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	userID := domain.UserID(c.GetString("user_id"))
	log.Info().Str("module", "adapters.ws").Str("user", string(userID)).Msg("new connection")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Str("module", "adapters.ws").Err(err).Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		conn.SetReadLimit(ctl.ReadLimit)
	}

	wc := newWSConn(conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Registry.Bind(userID, wc)

	go ctl.writePump(ctx, wc)
	go ctl.readPump(ctx, cancel, userID, wc)
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.pingPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) pingPeriod() time.Duration {
	if ctl.PingPeriod > 0 {
		return ctl.PingPeriod
	}
	return 54 * time.Second
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, userID domain.UserID, c *wsConn) {
	defer func() {
		cancel()
		if last := ctl.Registry.Unbind(userID, c); last {
			// Run disconnect cleanup on a fresh context: the
			// connection context is already cancelled.
			dctx, dcancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer dcancel()
			ctl.Match.Disconnect(dctx, userID)
		}
		c.Close()
		log.Info().Str("module", "adapters.ws").Str("user", string(userID)).Msg("connection closed")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "adapters.ws").Str("user", string(userID)).Msg("readPump read error")
				}
				return
			}
			ctl.dispatch(ctx, userID, c, data)
		}
	}
}

func (ctl *Controller) dispatch(ctx context.Context, userID domain.UserID, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		ctl.sendError(c, domain.CodeBadRequest, "malformed frame")
		return
	}

	switch env.Type {
	case "find_partner":
		ctl.handleFindPartner(ctx, userID, c, data)
	case "cancel_search":
		ctl.handleCancelSearch(ctx, userID)
	case "join_room":
		ctl.handleJoinRoom(ctx, userID, c, data)
	case "webrtc_offer", "webrtc_answer", "webrtc_ice":
		ctl.handleRelay(ctx, userID, env.Type, data)
	case "end_call":
		ctl.handleEndCall(ctx, userID, c, data)
	case "ping":
		ctl.sendJSON(c, map[string]string{"type": "pong"})
	default:
		log.Warn().Str("module", "adapters.ws").Str("type", env.Type).Msg("unknown event")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c *wsConn, code, message string) {
	ctl.sendJSON(c, app.NewErrorEvent(code, message))
}

type findPartnerPayload struct {
	Level string `json:"level" validate:"omitempty,oneof=all beginner intermediate advanced"`
	Topic string `json:"topic" validate:"omitempty,max=128"`
}

type roomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

func (ctl *Controller) handleFindPartner(ctx context.Context, userID domain.UserID, c *wsConn, data []byte) {
	var p findPartnerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, domain.CodeBadRequest, "malformed find_partner payload")
		return
	}
	if err := validate.Struct(p); err != nil {
		ctl.sendError(c, domain.CodeBadRequest, "invalid level")
		return
	}

	err := ctl.Match.FindPartner(ctx, userID, domain.Level(p.Level), p.Topic)
	if err == nil {
		return
	}
	if code := domain.RejectCode(err); code != "" {
		ctl.sendError(c, code, err.Error())
		return
	}
	log.Error().Err(err).Str("module", "adapters.ws").Str("user", string(userID)).Msg("find_partner")
	ctl.sendError(c, domain.CodeInternal, "something went wrong")
}

func (ctl *Controller) handleCancelSearch(ctx context.Context, userID domain.UserID) {
	if err := ctl.Match.CancelSearch(ctx, userID); err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Str("user", string(userID)).Msg("cancel_search")
	}
}

func (ctl *Controller) handleJoinRoom(ctx context.Context, userID domain.UserID, c *wsConn, data []byte) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || validate.Struct(p) != nil {
		ctl.sendError(c, domain.CodeBadRequest, "roomId is required")
		return
	}

	err := ctl.Signal.JoinRoom(ctx, userID, domain.RoomID(p.RoomID))
	if err == nil {
		return
	}
	if code := domain.RejectCode(err); code != "" {
		ctl.sendError(c, code, err.Error())
		return
	}
	log.Error().Err(err).Str("module", "adapters.ws").Str("user", string(userID)).Msg("join_room")
	ctl.sendError(c, domain.CodeInternal, "something went wrong")
}

func (ctl *Controller) handleRelay(ctx context.Context, userID domain.UserID, kind string, data []byte) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		// Unroutable frames are dropped silently, same as frames for
		// rooms the sender does not belong to.
		return
	}
	ctl.Signal.Relay(ctx, userID, kind, domain.RoomID(p.RoomID), data)
}

func (ctl *Controller) handleEndCall(ctx context.Context, userID domain.UserID, c *wsConn, data []byte) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || validate.Struct(p) != nil {
		ctl.sendError(c, domain.CodeBadRequest, "roomId is required")
		return
	}
	ctl.Signal.EndCall(ctx, userID, domain.RoomID(p.RoomID))
}
