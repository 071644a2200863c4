// Command shuttercmd drives one shutter by hand, for wiring checks.
//
//	shuttercmd --power 6 --direction 12 --move up --run 2s
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/elijahnyp/shutter_control/device"
	"github.com/elijahnyp/shutter_control/state"
	. "github.com/elijahnyp/shutter_control/util"
)

func main() {
	var (
		chip        = pflag.String("chip", "gpiochip0", "gpio chip")
		power       = pflag.Int("power", 6, "power relay line")
		direction   = pflag.Int("direction", 12, "direction relay line")
		fullCloseMs = pflag.Int("full-close-ms", 20000, "full travel time in milliseconds")
		status      = pflag.Int("status", 0, "assumed starting position, 0 open to 100 closed")
		move        = pflag.String("move", "up", "up or down")
		run         = pflag.Duration("run", 2*time.Second, "stop after this long")
		force       = pflag.Bool("force", true, "run even when the assumed position is at the end")
		logLevel    = pflag.String("log-level", "trace", "log level")
	)
	pflag.Parse()
	LogInit(*logLevel)

	m, ok := state.ParseMovement(*move)
	if !ok || (m != state.Up && m != state.Down) {
		fmt.Fprintf(os.Stderr, "--move must be up or down, got %q\n", *move)
		os.Exit(2)
	}

	factory, err := device.NewFactory(*chip, Component("shuttercmd"))
	if err != nil {
		Logger.Fatal().Err(err).Msg("unable to open chip")
	}
	defer factory.Close()

	shutter, err := factory.OpenShutter(state.ShutterOptions{
		Location:         "manual/manual",
		PowerGpio:        *power,
		DirectionGpio:    *direction,
		FullCloseMs:      *fullCloseMs,
		Status:           *status,
		Max:              DefaultMaxPosition,
		OnStatusUpdate:   func(p int) { Logger.Trace().Int("position", p).Msg("status") },
		OnMovementUpdate: func(m state.Movement) { Logger.Trace().Str("movement", string(m)).Msg("movement") },
	})
	if err != nil {
		Logger.Fatal().Err(err).Msg("unable to open shutter")
	}
	defer shutter.Close()

	if *force {
		shutter.Force(m)
	} else if m == state.Up {
		shutter.Up()
	} else {
		shutter.Down()
	}
	time.Sleep(*run)
	shutter.Stop()
	Logger.Info().Int("position", shutter.Position()).Msg("stopped")
}
