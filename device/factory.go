package device

import (
	"github.com/rs/zerolog"

	"github.com/elijahnyp/shutter_control/state"
)

// Factory builds facades on one gpio chip.
type Factory struct {
	chip lineRequester
	log  zerolog.Logger
}

// NewFactory opens the named chip, e.g. gpiochip0.
func NewFactory(chipName string, log zerolog.Logger) (*Factory, error) {
	chip, err := openChip(chipName)
	if err != nil {
		return nil, err
	}
	return &Factory{chip: chip, log: log}, nil
}

func (f *Factory) NewShutter(opts state.ShutterOptions) (state.Shutter, error) {
	return newShutter(f.chip, opts, f.log)
}

func (f *Factory) NewButton(opts state.ButtonOptions) (state.Button, error) {
	return newButton(f.chip, opts, f.log), nil
}

func (f *Factory) NewContactSensor(opts state.ContactOptions) (state.ContactSensor, error) {
	return newContact(f.chip, opts, f.log), nil
}

// Close releases the chip. Facades must be closed first.
func (f *Factory) Close() error {
	return f.chip.Close()
}
