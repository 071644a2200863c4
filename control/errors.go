package control

import "errors"

var (
	ErrUnknownRoom  = errors.New("control: unknown room")
	ErrLoopStopped  = errors.New("control: loop stopped")
	ErrFacadeFailed = errors.New("control: device facade failed")
)
