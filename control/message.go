package control

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Message is one inbound bus message. Retained is set when the broker
// replayed a stored message on subscribe.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// Value is the payload shape of every room topic.
type Value struct {
	Value any `json:"value"`
}

// Empty is published on topics that carry no value.
type Empty struct{}

type rawValue struct {
	Value json.RawMessage `json:"value"`
}

func (m Message) raw() (json.RawMessage, bool) {
	var v rawValue
	if len(bytes.TrimSpace(m.Payload)) == 0 {
		return nil, false
	}
	if err := json.Unmarshal(m.Payload, &v); err != nil || len(v.Value) == 0 {
		return nil, false
	}
	if bytes.Equal(v.Value, []byte("null")) {
		return nil, false
	}
	return v.Value, true
}

// StringValue returns payload.value as a string.
func (m Message) StringValue() (string, bool) {
	raw, ok := m.raw()
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// IntValue accepts a JSON number or a numeric string.
func (m Message) IntValue() (int, bool) {
	raw, ok := m.raw()
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(math.Round(f)), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// BoolValue accepts true/false or their string forms.
func (m Message) BoolValue() (bool, bool) {
	raw, ok := m.raw()
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, false
	}
	return b, true
}
