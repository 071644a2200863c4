package control

import (
	"fmt"
	"slices"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/elijahnyp/shutter_control/state"
	"github.com/elijahnyp/shutter_control/util"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

// livingRoom has a local window on south, a remote window on west, one
// active toggle button and one inactive button.
func livingRoom() util.Room {
	return util.Room{
		Id:    "living",
		Label: "Living",
		Shutters: []util.Shutter{
			{Id: "south", Label: "south", TriggerButtons: []string{"wall"}, TriggerWindows: []string{"door"},
				PowerGpio: intp(6), DirectionGpio: intp(12), FullCloseMs: 20000},
			{Id: "west", Label: "west", PowerGpio: intp(7), DirectionGpio: intp(13), FullCloseMs: 15000},
		},
		Buttons: []util.Button{
			{Id: "wall", Label: "wall", Gpio: intp(5), Action: "toggle"},
			{Id: "spare", Label: "spare", Gpio: intp(4), Action: "up", Active: boolp(false)},
		},
		Windows: []util.Window{
			{Id: "door", Label: "door", Gpio: intp(17)},
			{Id: "westwin", Label: "westwin", AffectsShutter: "west"},
		},
	}
}

type fakeShutter struct {
	mu     sync.Mutex
	opts   state.ShutterOptions
	calls  []string
	closed bool
}

func (f *fakeShutter) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeShutter) Up()          { f.record("up") }
func (f *fakeShutter) Down()        { f.record("down") }
func (f *fakeShutter) Stop()        { f.record("stop") }
func (f *fakeShutter) Toggle()      { f.record("toggle") }
func (f *fakeShutter) SetMax(n int) { f.record(fmt.Sprintf("max:%d", n)) }

func (f *fakeShutter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeShutter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

type fakeButton struct {
	mu      sync.Mutex
	opts    state.ButtonOptions
	started bool
	starts  int
	stops   int
}

func (f *fakeButton) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	f.starts++
	return nil
}

func (f *fakeButton) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
	f.stops++
	return nil
}

type fakeContact struct {
	mu      sync.Mutex
	opts    state.ContactOptions
	started bool
}

func (f *fakeContact) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeContact) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
	return nil
}

// fakeFactory keys facades by location, "<room label>/<device label>".
type fakeFactory struct {
	mu       sync.Mutex
	shutters map[string]*fakeShutter
	buttons  map[string]*fakeButton
	contacts map[string]*fakeContact
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		shutters: make(map[string]*fakeShutter),
		buttons:  make(map[string]*fakeButton),
		contacts: make(map[string]*fakeContact),
	}
}

func (f *fakeFactory) NewShutter(opts state.ShutterOptions) (state.Shutter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeShutter{opts: opts}
	f.shutters[opts.Location] = s
	return s, nil
}

func (f *fakeFactory) NewButton(opts state.ButtonOptions) (state.Button, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := &fakeButton{opts: opts}
	f.buttons[opts.Location] = b
	return b, nil
}

func (f *fakeFactory) NewContactSensor(opts state.ContactOptions) (state.ContactSensor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeContact{opts: opts}
	f.contacts[opts.Location] = c
	return c, nil
}

func (f *fakeFactory) shutter(location string) *fakeShutter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutters[location]
}

func (f *fakeFactory) button(location string) *fakeButton {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buttons[location]
}

func (f *fakeFactory) contact(location string) *fakeContact {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contacts[location]
}

// mockFactory is for failure paths.
type mockFactory struct {
	mock.Mock
}

func (m *mockFactory) NewShutter(opts state.ShutterOptions) (state.Shutter, error) {
	args := m.Called(opts.Location)
	s, _ := args.Get(0).(state.Shutter)
	return s, args.Error(1)
}

func (m *mockFactory) NewButton(opts state.ButtonOptions) (state.Button, error) {
	args := m.Called(opts.Location)
	b, _ := args.Get(0).(state.Button)
	return b, args.Error(1)
}

func (m *mockFactory) NewContactSensor(opts state.ContactOptions) (state.ContactSensor, error) {
	args := m.Called(opts.Location)
	c, _ := args.Get(0).(state.ContactSensor)
	return c, args.Error(1)
}

type published struct {
	Topic    string
	Payload  any
	Retained bool
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *recordingPublisher) Publish(topic string, payload any, retained bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{Topic: topic, Payload: payload, Retained: retained})
}

func (p *recordingPublisher) on(topic string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, m := range p.msgs {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}
