package util

import "errors"

// Use errors.Is() against these in calling code.
var (
	// ErrConfigInvalid wraps every problem found while validating the room model.
	ErrConfigInvalid = errors.New("config: invalid room model")

	ErrNotConnected    = errors.New("mqtt: client not connected")
	ErrPublishFailed   = errors.New("mqtt: publish failed")
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")
	ErrTimeout         = errors.New("mqtt: operation timed out")
)
