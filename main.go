package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	. "github.com/elijahnyp/shutter_control/util"

	"github.com/elijahnyp/shutter_control/control"
	"github.com/elijahnyp/shutter_control/device"
)

const (
	loopQueue       = 256
	pingInterval    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

var model Model

func main() {
	LogInit("trace")
	SetupConfig()
	RegisterNewConfigListener(func() { LogInit(Config.GetString("log_level")) })
	OnNewConfig()

	if err := model.BuildModel(); err != nil {
		Logger.Fatal().Err(err).Msg("invalid room model")
	}
	if len(model.ControlledRooms()) == 0 {
		Logger.Warn().Msg("no controlled rooms configured")
	}

	factory, err := device.NewFactory(Config.GetString("gpio_chip"), Component("device"))
	if err != nil {
		Logger.Fatal().Err(err).Msg("gpio unavailable")
	}

	if Config.GetBool("ha_discovery") {
		RegisterMQTTConnectHook("haadvertise", func(client MQTT.Client) {
			advertiseHA(model, client)
		})
	}
	MqttInit()

	publisher := NewPublisherFromConfig()
	publisher.Start()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loop := control.NewLoop(loopQueue,
		time.Duration(Config.GetInt("handler_warn_ms"))*time.Millisecond, Component("loop"))
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(ctx)
	}()

	coordinator := control.NewCoordinator(control.CoordinatorParams{
		Model:     model,
		Publisher: publisher,
		Factory:   factory,
		Loop:      loop,
		Settle:    time.Duration(Config.GetInt("bootstrap_settle_ms")) * time.Millisecond,
		Logger:    Component("control"),
	})
	if err := coordinator.Bootstrap(ctx, busSubscriber{}); err != nil {
		Logger.Fatal().Err(err).Msg("bootstrap failed")
	}

	hub := NewHub()
	go hub.Run(ctx)
	publisher.OnPublish(hub.OnPublish)

	monitor := NewMonitorServer()
	registerRoutes(monitor, coordinator, hub)
	if err := monitor.Start(); err != nil {
		Logger.Error().Msgf("Error starting monitor server: %v", err)
	}
	RegisterNewConfigListener(func() { monitor.Restart() })

	go OnlinePinger(ctx)
	if Config.GetBool("ha_discovery") {
		go HAAdvertiser(ctx, model)
	}
	Logger.Info().Msg("ready")

	<-ctx.Done()
	Logger.Info().Msg("shutting down")
	<-loopDone
	if err := coordinator.Close(); err != nil {
		Logger.Error().Msgf("Error closing rooms: %v", err)
	}
	if err := factory.Close(); err != nil {
		Logger.Error().Msgf("Error closing gpio chip: %v", err)
	}
	publisher.Stop()
	MqttClose()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := monitor.Shutdown(shutdownCtx); err != nil {
		Logger.Error().Msgf("Error shutting down monitor server: %v", err)
	}
}

// OnlinePinger refreshes the retained online status.
func OnlinePinger(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if Client == nil || !Client.IsConnected() {
				continue
			}
			if token := Client.Publish(Config.GetString("online_topic"), 0, true, "online"); token.Wait() && token.Error() != nil {
				Logger.Error().Msgf("Error publishing online message: %v", token.Error())
			}
		}
	}
}
