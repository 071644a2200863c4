package device

import (
	"errors"
	"sync"
)

type fakeOutput struct {
	mu     sync.Mutex
	values []int
	closed bool
}

func (o *fakeOutput) SetValue(v int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values = append(o.values, v)
	return nil
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

func (o *fakeOutput) Value() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.values) == 0 {
		return -1
	}
	return o.values[len(o.values)-1]
}

type fakeInput struct {
	mu      sync.Mutex
	value   int
	handler func(Edge)
	closed  bool
}

func (i *fakeInput) Value() (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.value, nil
}

func (i *fakeInput) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	return nil
}

// set changes the level and raises the matching edge.
func (i *fakeInput) set(v int) {
	i.mu.Lock()
	i.value = v
	h := i.handler
	i.mu.Unlock()
	if v == 0 {
		h(Falling)
	} else {
		h(Rising)
	}
}

type fakeChip struct {
	mu      sync.Mutex
	outputs map[int]*fakeOutput
	inputs  map[int]*fakeInput
	levels  map[int]int
	fail    map[int]bool
}

func newFakeChip() *fakeChip {
	return &fakeChip{
		outputs: make(map[int]*fakeOutput),
		inputs:  make(map[int]*fakeInput),
		levels:  make(map[int]int),
		fail:    make(map[int]bool),
	}
}

func (c *fakeChip) Output(offset, value int) (outputLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail[offset] {
		return nil, ErrLineRequest
	}
	o := &fakeOutput{values: []int{value}}
	c.outputs[offset] = o
	return o, nil
}

func (c *fakeChip) Input(offset int, handler func(Edge)) (inputLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail[offset] {
		return nil, errors.Join(ErrLineRequest, errors.New("busy"))
	}
	level, ok := c.levels[offset]
	if !ok {
		level = 1
	}
	i := &fakeInput{value: level, handler: handler}
	c.inputs[offset] = i
	return i, nil
}

func (c *fakeChip) Close() error { return nil }

func (c *fakeChip) output(offset int) *fakeOutput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outputs[offset]
}

func (c *fakeChip) input(offset int) *fakeInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputs[offset]
}
