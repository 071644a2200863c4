package control

import (
	"github.com/rs/zerolog"

	"github.com/elijahnyp/shutter_control/state"
)

// Router maps inbound messages onto room controller calls. It holds no
// device state: a room in the registry is live, any other room is still
// bootstrapping and its status values go to the snapshot.
type Router struct {
	registry *Registry
	snapshot *Snapshot
	log      zerolog.Logger
}

func NewRouter(registry *Registry, snapshot *Snapshot, log zerolog.Logger) *Router {
	return &Router{registry: registry, snapshot: snapshot, log: log}
}

// Dispatch handles one message and reports whether it resulted in a call
// on a room or the snapshot. Malformed and foreign topics are ignored.
func (r *Router) Dispatch(msg Message) bool {
	t, ok := ParseTopic(msg.Topic)
	if !ok || t.Area != AreaRoom {
		r.log.Trace().Str("topic", msg.Topic).Msg("ignoring topic")
		return false
	}
	switch t.Element {
	case ElementShutters:
		return r.shutter(t, msg)
	case ElementButtons:
		return r.button(t, msg)
	case ElementWindows:
		return r.window(t, msg)
	}
	r.log.Trace().Str("topic", msg.Topic).Msg("ignoring element")
	return false
}

// live returns the room for a command, dropping commands the broker
// replayed from its retained store.
func (r *Router) live(t Topic, msg Message) (*Room, bool) {
	if msg.Retained {
		r.log.Debug().Str("topic", msg.Topic).Msg("ignoring retained command")
		return nil, false
	}
	room, ok := r.registry.Get(t.AreaId)
	if !ok {
		r.log.Debug().Str("topic", msg.Topic).Msg("room not live")
	}
	return room, ok
}

func (r *Router) shutter(t Topic, msg Message) bool {
	switch t.SubArea {
	case SubStatus:
		if _, ok := r.registry.Get(t.AreaId); ok {
			return false
		}
		value, ok := msg.IntValue()
		if !ok || value < 0 || value > 100 {
			r.log.Warn().Str("topic", msg.Topic).Bytes("payload", msg.Payload).Msg("bad shutter status")
			return false
		}
		r.snapshot.RecordShutter(t.AreaId, t.ElementId, value)
		r.log.Debug().Str("room", t.AreaId).Str("shutter", t.ElementId).Int("status", value).Msg("bootstrap status")
		return true

	case SubMovement:
		room, ok := r.live(t, msg)
		if !ok {
			return false
		}
		value, _ := msg.StringValue()
		m, ok := state.ParseMovement(value)
		if !ok {
			r.log.Warn().Str("topic", msg.Topic).Bytes("payload", msg.Payload).Msg("bad movement")
			return false
		}
		return room.MovementCommand(t.ElementId, m)

	case string(state.Up), string(state.Down), string(state.Stop), SubToggle:
		room, ok := r.live(t, msg)
		if !ok {
			return false
		}
		return room.Command(t.ElementId, state.Movement(t.SubArea))
	}
	return false
}

func (r *Router) button(t Topic, msg Message) bool {
	if t.SubArea != SubActive {
		return false
	}
	value, ok := msg.BoolValue()
	if !ok {
		r.log.Warn().Str("topic", msg.Topic).Bytes("payload", msg.Payload).Msg("bad button active value")
		return false
	}
	if _, live := r.registry.Get(t.AreaId); !live {
		r.snapshot.RecordButton(t.AreaId, t.ElementId, value)
		return true
	}
	room, ok := r.live(t, msg)
	if !ok {
		return false
	}
	return room.SetButtonActive(t.ElementId, value)
}

func (r *Router) window(t Topic, msg Message) bool {
	if t.SubArea != SubStatus {
		return false
	}
	value, ok := msg.StringValue()
	if !ok {
		return false
	}
	room, ok := r.registry.Get(t.AreaId)
	if !ok {
		r.log.Debug().Str("room", t.AreaId).Str("window", t.ElementId).Str("contact", value).Msg("window status")
		return false
	}
	return room.WindowStatus(t.ElementId, value)
}
