// Package device implements the shutter, button and contact sensor facades
// on Linux GPIO character devices.
//
// A shutter is a pair of relays: power switches the motor, direction selects
// up (0) or down (1). Its position is estimated from run time against the
// configured full-close time. Buttons and contacts are inputs with pull-ups,
// so a closed circuit reads 0 and closing is a falling edge.
//
// Callbacks run on a per-facade goroutine, in the order they were raised,
// never on the caller's goroutine.
package device
