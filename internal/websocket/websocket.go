package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/scythe504/partybox-server/internal"
	perrors "github.com/scythe504/partybox-server/internal/errors"
	"github.com/scythe504/partybox-server/internal/game"
	"github.com/scythe504/partybox-server/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades connections and routes their events to the room
// manager.
type Handler struct {
	hub      *Hub
	manager  *game.Manager
	validate *validator.Validate
}

func NewHandler(hub *Hub, manager *game.Manager) *Handler {
	return &Handler{
		hub:      hub,
		manager:  manager,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// =============================================================================
// WEBSOCKET CONNECTION HANDLING
// =============================================================================

// HandleWebSocket upgrades the request and serves the connection until it
// closes. Closing counts as a disconnect in every room it belonged to.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("[HandleWebSocket] upgrade failed")
		return
	}

	c := newClient(utils.GenerateID(), conn)
	h.hub.register(c)
	log.Info().Str("conn", c.id).Str("remote", r.RemoteAddr).Msg("[HandleWebSocket] connection opened")

	go c.writePump()
	c.readPump(func(raw []byte) { h.route(c, raw) })

	h.manager.Disconnect(c.id)
	h.hub.unregister(c)
	log.Info().Str("conn", c.id).Msg("[HandleWebSocket] connection closed")
}

func (h *Handler) route(c *Client, raw []byte) {
	var msg internal.Message[json.RawMessage]
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Debug().Err(err).Str("conn", c.id).Msg("[route] malformed frame")
		h.fail(c, perrors.ErrInvalidPayload)
		return
	}

	var err error
	switch msg.Type {
	case internal.EventCreateRoom:
		var data internal.CreateRoomData
		if err = h.decode(msg.Data, &data); err == nil {
			key := data.RuleSetKey
			if key == "" {
				key = data.GameKey
			}
			_, err = h.manager.CreateRoom(c.id, key)
		}
	case internal.EventStartGame:
		var data internal.RoomCodeData
		if err = h.decode(msg.Data, &data); err == nil {
			err = h.manager.StartGame(data.Code, c.id)
		}
	case internal.EventReturnToMenu:
		var data internal.RoomCodeData
		if err = h.decode(msg.Data, &data); err == nil {
			err = h.manager.ReturnToMenu(data.Code, c.id)
		}
	case internal.EventSwitchGame:
		var data internal.SwitchGameData
		if err = h.decode(msg.Data, &data); err == nil {
			key := data.RuleSetKey
			if key == "" {
				key = data.GameKey
			}
			err = h.manager.SwitchGame(data.Code, c.id, key)
		}
	case internal.EventKick:
		var data internal.KickData
		if err = h.decode(msg.Data, &data); err == nil {
			err = h.manager.KickPlayer(data.Code, c.id, data.PlayerID)
		}
	case internal.EventLockRoom:
		var data internal.ToggleData
		if err = h.decode(msg.Data, &data); err == nil {
			err = h.manager.SetLocked(data.Code, c.id, data.On)
		}
	case internal.EventHideCode:
		var data internal.ToggleData
		if err = h.decode(msg.Data, &data); err == nil {
			err = h.manager.SetHideCode(data.Code, c.id, data.On)
		}
	case internal.EventJoin:
		var data internal.JoinData
		if err = h.decode(msg.Data, &data); err == nil {
			h.manager.AddPlayer(data.Code, c.id, data.Name, data.ReconnectToken)
		}
	case internal.EventGame:
		var data internal.GameEventData
		if err = h.decode(msg.Data, &data); err == nil {
			err = h.manager.DispatchEvent(data.Code, c.id, data.Type, data.Payload)
		}
	case internal.EventListGames:
		h.hub.Send(c.id, internal.Message[any]{
			Type: internal.EventGamesList,
			Data: h.manager.Registry().List(),
		})
	default:
		log.Debug().Str("conn", c.id).Str("type", msg.Type).Msg("[route] unknown event")
		return
	}

	switch {
	case err == nil:
	case errors.Is(err, perrors.ErrInvalidPayload):
		log.Debug().Err(err).Str("conn", c.id).Str("type", msg.Type).Msg("[route] rejected payload")
		h.fail(c, err)
	case msg.Type == internal.EventCreateRoom:
		log.Error().Err(err).Str("conn", c.id).Msg("[route] create room failed")
		h.fail(c, err)
	default:
		log.Debug().Err(err).Str("conn", c.id).Str("type", msg.Type).Msg("[route] event ignored")
	}
}

// decode parses and validates an event payload.
func (h *Handler) decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrInvalidPayload, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrInvalidPayload, err)
	}
	return nil
}

func (h *Handler) fail(c *Client, err error) {
	h.hub.Send(c.id, internal.Message[any]{
		Type: internal.EventError,
		Data: internal.ErrorData{Message: err.Error()},
	})
}
