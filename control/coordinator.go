package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/elijahnyp/shutter_control/state"
	"github.com/elijahnyp/shutter_control/util"
)

// Subscriber is the bus side the coordinator needs. The handler may be
// called from any goroutine.
type Subscriber interface {
	Subscribe(topic string, handler func(Message)) error
}

// CoordinatorParams configure NewCoordinator. Settle is how long to keep
// collecting retained status after the last status subscription before
// rooms are built.
type CoordinatorParams struct {
	Model     util.Model
	Publisher Publisher
	Factory   state.Factory
	Loop      *Loop
	Settle    time.Duration
	Logger    zerolog.Logger
}

// Coordinator bootstraps the controlled rooms and then routes live traffic
// to them. It owns the registry, the snapshot and the router.
type Coordinator struct {
	rooms    []util.Room
	registry *Registry
	snapshot *Snapshot
	router   *Router
	loop     *Loop
	pub      Publisher
	factory  state.Factory
	settle   time.Duration
	topics   Topics
	log      zerolog.Logger
}

func NewCoordinator(p CoordinatorParams) *Coordinator {
	registry, snapshot := NewRegistry(), NewSnapshot()
	return &Coordinator{
		rooms:    p.Model.ControlledRooms(),
		registry: registry,
		snapshot: snapshot,
		router:   NewRouter(registry, snapshot, p.Logger),
		loop:     p.Loop,
		pub:      p.Publisher,
		factory:  p.Factory,
		settle:   p.Settle,
		log:      p.Logger,
	}
}

// Handle queues msg for dispatch on the loop. Use it as the bus handler.
func (c *Coordinator) Handle(msg Message) {
	c.loop.Post(func() { c.router.Dispatch(msg) })
}

// Bootstrap subscribes to every shutter status (and button active) topic,
// lets retained values arrive, subscribes the shutter command topics, builds
// each room from what was collected and finally subscribes to remote window
// status. The loop must be running.
//
// Command topics are subscribed before the facades start so that a movement
// published during construction (an open window raising a shutter) comes
// back as a live echo instead of a retained replay.
func (c *Coordinator) Bootstrap(ctx context.Context, sub Subscriber) error {
	for _, room := range c.rooms {
		for _, s := range room.Shutters {
			if err := sub.Subscribe(c.topics.ShutterStatus(room.Id, s.Id), c.Handle); err != nil {
				return fmt.Errorf("bootstrap subscribe: %w", err)
			}
		}
		for _, b := range room.Buttons {
			if err := sub.Subscribe(c.topics.ButtonActive(room.Id, b.Id), c.Handle); err != nil {
				return fmt.Errorf("bootstrap subscribe: %w", err)
			}
		}
	}

	if c.settle > 0 {
		select {
		case <-time.After(c.settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for _, room := range c.rooms {
		if err := c.subscribe(sub, c.commandTopics(room)); err != nil {
			return err
		}
	}

	var buildErr error
	err := c.loop.Do(ctx, func() {
		buildErr = c.build()
	})
	if err != nil {
		return err
	}
	if buildErr != nil {
		return buildErr
	}

	// retained window status is applied, so the rooms must be live first
	for _, room := range c.rooms {
		if err := c.subscribe(sub, c.remoteWindowTopics(room)); err != nil {
			return err
		}
	}
	c.log.Info().Int("rooms", len(c.rooms)).Msg("rooms live")
	return nil
}

// build runs on the loop, so every status message queued before it has
// already been recorded.
func (c *Coordinator) build() error {
	defer c.snapshot.Clear()
	for _, cfg := range c.rooms {
		status, active := c.snapshot.Take(cfg.Id)
		room, err := NewRoom(RoomParams{
			Room:      cfg,
			Status:    status,
			Active:    active,
			Publisher: c.pub,
			Factory:   c.factory,
			Post:      c.loop.Post,
			Logger:    c.log,
		})
		if err != nil {
			return err
		}
		if err := c.registry.Put(room); err != nil {
			return errors.Join(err, room.Close())
		}
		c.log.Info().Str("room", cfg.Id).Interface("status", status).Msg("room built")
	}
	return nil
}

func (c *Coordinator) commandTopics(room util.Room) []string {
	var topics []string
	for _, s := range room.Shutters {
		topics = append(topics,
			c.topics.ShutterMovement(room.Id, s.Id),
			c.topics.ShutterCommand(room.Id, s.Id, state.Up),
			c.topics.ShutterCommand(room.Id, s.Id, state.Down),
			c.topics.ShutterCommand(room.Id, s.Id, state.Stop),
			c.topics.ShutterToggle(room.Id, s.Id),
		)
	}
	return topics
}

// remoteWindowTopics lists windows sensed elsewhere but acted on here.
func (c *Coordinator) remoteWindowTopics(room util.Room) []string {
	var topics []string
	affect := BuildAffectMaps(room)
	for _, w := range room.Windows {
		if _, ok := affect.ShutterForWindow(w.Id); ok && !w.HasSensor() {
			topics = append(topics, c.topics.WindowStatus(room.Id, w.Id))
		}
	}
	return topics
}

func (c *Coordinator) subscribe(sub Subscriber, topics []string) error {
	for _, topic := range topics {
		if err := sub.Subscribe(topic, c.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

// Inspect returns the state of every live room, read on the loop.
func (c *Coordinator) Inspect(ctx context.Context) ([]state.RoomState, error) {
	var rooms []state.RoomState
	err := c.loop.Do(ctx, func() {
		c.registry.Each(func(r *Room) {
			rooms = append(rooms, r.Status())
		})
	})
	return rooms, err
}

// InspectRoom returns one live room's state.
func (c *Coordinator) InspectRoom(ctx context.Context, id string) (state.RoomState, error) {
	var (
		rs    state.RoomState
		found bool
	)
	err := c.loop.Do(ctx, func() {
		if r, ok := c.registry.Get(id); ok {
			rs, found = r.Status(), true
		}
	})
	if err != nil {
		return rs, err
	}
	if !found {
		return rs, fmt.Errorf("%w: %s", ErrUnknownRoom, id)
	}
	return rs, nil
}

// Close releases every room's facades. Call it after the loop has stopped.
func (c *Coordinator) Close() error {
	return c.registry.Close()
}
