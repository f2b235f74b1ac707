// Package playersync keeps a local media player converged with the room's
// shared playback state. It is the client-side half of the sync protocol:
// it reconciles incoming sync-video events against the local player and
// decides which local player changes are worth broadcasting.
package playersync

// State mirrors the coarse transport state of the underlying player.
type State int

const (
	StateUnstarted State = iota
	StatePlaying
	StatePaused
	StateBuffering
)

// Player is the minimal control surface the synchronizer needs. Seeks and
// state changes issued through it may re-trigger the player's own
// callbacks; the suppress window in Synchronizer absorbs that echo.
type Player interface {
	State() State
	CurrentTime() float64
	Play()
	Pause()
	SeekTo(seconds float64)
}
