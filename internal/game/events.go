package game

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/scythe504/partybox-server/internal"
	perrors "github.com/scythe504/partybox-server/internal/errors"
	"github.com/scythe504/partybox-server/internal/rules"
)

// DispatchEvent routes one game:event. Room level types are handled here
// with their own authority checks; everything else goes to the rule-set
// with free text cleaned first.
func (m *Manager) DispatchEvent(code, sender, typ string, payload map[string]any) error {
	if m.opts.Limiter != nil && !m.opts.Limiter.Allow(sender, typ) {
		log.Debug().Str("room", code).Str("sender", sender).Str("type", typ).Msg("[DispatchEvent] rate limited")
		return perrors.ErrRateLimited
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return m.within(code, func(s *session) error {
		return s.dispatch(sender, typ, payload)
	})
}

func (s *session) dispatch(sender, typ string, payload map[string]any) error {
	switch typ {
	case internal.GameUpdateSettings:
		return s.updateSettings(sender, settingsPatch(payload))
	case internal.GameKick:
		id, _ := payload["playerId"].(string)
		return s.kick(sender, id)
	case internal.GameLockRoom:
		on, _ := payload["on"].(bool)
		return s.toggle(sender, func(r *internal.Room) { r.Locked = on })
	case internal.GameHideCode:
		on, _ := payload["on"].(bool)
		return s.toggle(sender, func(r *internal.Room) { r.HideCode = on })
	case internal.GameRestartSame:
		return s.restart(sender, true)
	case internal.GameRestartNew:
		return s.restart(sender, false)
	case internal.GameVIPStart:
		return s.start(sender)
	}

	ev := rules.Event{
		Type:     typ,
		FromHost: s.isHost(sender),
		Payload:  s.cleanPayload(payload),
	}
	if p := s.room.PlayerByTransport(sender); p != nil {
		ev.PlayerID = p.ID
		ev.FromVIP = p.ID == s.room.VIPID
	}
	if ev.PlayerID == "" && !ev.FromHost {
		log.Debug().Str("room", s.room.Code).Str("sender", sender).Str("type", typ).Msg("[DispatchEvent] sender not in room")
		return perrors.ErrPlayerNotFound
	}

	s.room.Touch(s.now())
	s.game.OnEvent(s, ev)
	s.afterRules()
	s.broadcastState()
	return nil
}

func (s *session) toggle(sender string, apply func(r *internal.Room)) error {
	if !s.isHost(sender) {
		return perrors.ErrNotAuthorized
	}
	apply(s.room)
	s.room.Touch(s.now())
	log.Info().Str("room", s.room.Code).Bool("locked", s.room.Locked).Bool("hideCode", s.room.HideCode).Msg("[ToggleRoom] room flags changed")
	s.broadcastState()
	return nil
}

// settingsPatch accepts either {"settings": {...}} or the patch itself.
func settingsPatch(payload map[string]any) map[string]any {
	if nested, ok := payload["settings"].(map[string]any); ok {
		return nested
	}
	return payload
}

// cleanPayload runs every top level string through the moderator. Keys
// naming an identifier are left alone.
func (s *session) cleanPayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		text, ok := v.(string)
		if !ok || strings.HasSuffix(k, "Id") || strings.HasSuffix(k, "ID") {
			out[k] = v
			continue
		}
		out[k] = s.m.opts.Moderator.Text(text, internal.MaxTextLength)
	}
	return out
}
