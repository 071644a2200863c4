package device

import (
	"fmt"

	gpiod "github.com/warthog618/go-gpiocdev"
)

// Edge is an input transition.
type Edge int

const (
	Rising Edge = iota
	Falling
)

type outputLine interface {
	SetValue(value int) error
	Close() error
}

type inputLine interface {
	Value() (int, error)
	Close() error
}

// lineRequester hands out lines. The gpio chip is the real one; tests use
// a fake.
type lineRequester interface {
	Output(offset, value int) (outputLine, error)
	Input(offset int, handler func(Edge)) (inputLine, error)
	Close() error
}

const consumer = "shutter_control"

type gpioChip struct {
	chip *gpiod.Chip
}

func openChip(name string) (*gpioChip, error) {
	chip, err := gpiod.NewChip(name, gpiod.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrChipUnavailable, name, err)
	}
	return &gpioChip{chip: chip}, nil
}

func (c *gpioChip) Output(offset, value int) (outputLine, error) {
	line, err := c.chip.RequestLine(offset, gpiod.AsOutput(value))
	if err != nil {
		return nil, fmt.Errorf("%w: output %d: %w", ErrLineRequest, offset, err)
	}
	return line, nil
}

func (c *gpioChip) Input(offset int, handler func(Edge)) (inputLine, error) {
	line, err := c.chip.RequestLine(offset,
		gpiod.AsInput,
		gpiod.WithPullUp,
		gpiod.WithBothEdges,
		gpiod.WithEventHandler(func(evt gpiod.LineEvent) {
			if evt.Type == gpiod.LineEventFallingEdge {
				handler(Falling)
			} else {
				handler(Rising)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: input %d: %w", ErrLineRequest, offset, err)
	}
	return line, nil
}

func (c *gpioChip) Close() error {
	return c.chip.Close()
}
