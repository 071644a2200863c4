package control

import (
	"errors"
	"fmt"
)

// Registry maps room ids to live room controllers. It is owned by one
// Coordinator and, like Room, only touched from its loop.
type Registry struct {
	rooms map[string]*Room
	order []string
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

func (r *Registry) Get(id string) (*Room, bool) {
	room, ok := r.rooms[id]
	return room, ok
}

// Put registers a room. Registering the same id twice is a programming error.
func (r *Registry) Put(room *Room) error {
	if _, ok := r.rooms[room.Id()]; ok {
		return fmt.Errorf("room %s already registered", room.Id())
	}
	r.rooms[room.Id()] = room
	r.order = append(r.order, room.Id())
	return nil
}

func (r *Registry) Len() int { return len(r.rooms) }

// Each visits rooms in registration order.
func (r *Registry) Each(fn func(*Room)) {
	for _, id := range r.order {
		fn(r.rooms[id])
	}
}

// Close closes every room and empties the registry.
func (r *Registry) Close() error {
	var errs []error
	r.Each(func(room *Room) {
		if err := room.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	r.rooms = make(map[string]*Room)
	r.order = nil
	return errors.Join(errs...)
}
