package device

import "errors"

var (
	ErrChipUnavailable = errors.New("device: gpio chip unavailable")
	ErrLineRequest     = errors.New("device: gpio line request failed")
	ErrClosed          = errors.New("device: facade closed")
)
