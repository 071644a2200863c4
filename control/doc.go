// Package control holds the room device graph and the topic router.
//
// Inbound bus messages are parsed into a Topic and dispatched by Router to
// the Room that owns the addressed device. Before a room is live its
// retained shutter status is collected into a Snapshot, which seeds the
// room's shutters when the Coordinator builds it. Every message and every
// facade callback runs on one Loop goroutine, so rooms hold no locks.
package control
