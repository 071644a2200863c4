package main

import (
	"context"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	. "github.com/elijahnyp/shutter_control/util"

	"github.com/elijahnyp/shutter_control/control"
)

const haInterval = 5 * time.Minute

// advertiseHA publishes a cover per controlled shutter and a window sensor
// per locally wired contact.
func advertiseHA(m Model, client MQTT.Client) {
	var topics control.Topics
	for _, room := range m.ControlledRooms() {
		for _, s := range room.Shutters {
			id := room.Id + "_" + s.Id
			cover := ConstructHACover(id, displayName(room.Label, s.Label, s.Id),
				topics.ShutterMovement(room.Id, s.Id), topics.ShutterStatus(room.Id, s.Id))
			if err := PublishHA(client, "cover", id, cover.ToJson()); err != nil {
				Logger.Error().Msgf("Error advertising shutter %s: %v", id, err)
			}
		}
		for _, w := range room.Windows {
			if !w.HasSensor() {
				continue
			}
			id := room.Id + "_" + w.Id
			contact := ConstructHAContact(id, displayName(room.Label, w.Label, w.Id), topics.WindowStatus(room.Id, w.Id))
			if err := PublishHA(client, "binary_sensor", id, contact.ToJson()); err != nil {
				Logger.Error().Msgf("Error advertising window %s: %v", id, err)
			}
		}
	}
}

func displayName(room, label, id string) string {
	if label == "" {
		label = id
	}
	if room == "" {
		return label
	}
	return room + " " + label
}

// HAAdvertiser re-advertises every five minutes so a restarted Home
// Assistant picks the entities up again.
func HAAdvertiser(ctx context.Context, m Model) {
	ticker := time.NewTicker(haInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if Client != nil && Client.IsConnected() {
				Logger.Debug().Msg("Advertising Home Assistant discovery messages")
				advertiseHA(m, Client)
			}
		}
	}
}
