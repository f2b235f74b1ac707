package playersync

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lounge/internal/protocol"
)

const (
	// DriftThreshold is the divergence, in seconds, above which an
	// incoming event forces a corrective seek. Anything below it is
	// normal network/decoder jitter and seeking would just stutter.
	DriftThreshold = 1.5

	suppressWindow        = 300 * time.Millisecond
	timeupdateMinInterval = 500 * time.Millisecond
	seekPollInterval      = 750 * time.Millisecond
	seekDiscontinuity     = 0.5
)

// Event is an incoming playback transport event from the room.
type Event struct {
	Action      string
	CurrentTime float64
	SenderID    string
}

// EmitFunc publishes a local player action to the room.
type EmitFunc func(action string, currentTime float64)

// Synchronizer reconciles the local player against room events while
// preventing feedback loops two ways: incoming events carrying our own
// connection id are discarded, and for a short window after applying a
// reconciliation all outgoing player callbacks are swallowed.
//
// Not safe for concurrent use; the owning client session must serialize
// Apply, OnPlayerEvent and the drift tick, which Run already does when it
// is the only caller.
type Synchronizer struct {
	connID string
	player Player
	emit   EmitFunc
	clk    clock.Clock

	suppressUntil time.Time
	lastEmit      time.Time
	lastPolled    float64
	hasPolled     bool
}

// New creates a synchronizer for the given connection identity. A nil clk
// uses the wall clock; tests inject a mock.
func New(connID string, player Player, emit EmitFunc, clk clock.Clock) *Synchronizer {
	if clk == nil {
		clk = clock.New()
	}
	return &Synchronizer{connID: connID, player: player, emit: emit, clk: clk}
}

// Run owns the one clock-driven tick for manual-seek detection. It blocks
// until ctx is canceled.
func (s *Synchronizer) Run(ctx context.Context) {
	ticker := s.clk.Ticker(seekPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckDrift()
		}
	}
}

func (s *Synchronizer) suppressed() bool {
	return s.clk.Now().Before(s.suppressUntil)
}

// Apply reconciles one incoming transport event against the local player.
func (s *Synchronizer) Apply(ev Event) {
	if ev.SenderID == s.connID {
		// Origin-id filter: never react to our own echoed state.
		return
	}

	delta := math.Abs(s.player.CurrentTime() - ev.CurrentTime)

	switch ev.Action {
	case protocol.ActionPlay:
		if s.player.State() != StatePlaying {
			if delta > DriftThreshold {
				s.player.SeekTo(ev.CurrentTime)
			}
			s.player.Play()
		} else if delta > DriftThreshold {
			s.player.SeekTo(ev.CurrentTime)
		}
	case protocol.ActionPause:
		if s.player.State() != StatePaused {
			s.player.Pause()
			if delta > DriftThreshold {
				s.player.SeekTo(ev.CurrentTime)
			}
		} else if delta > DriftThreshold {
			s.player.SeekTo(ev.CurrentTime)
		}
	case protocol.ActionSeek, protocol.ActionTimeupdate:
		if delta > DriftThreshold {
			s.player.SeekTo(ev.CurrentTime)
		}
	default:
		log.Warn().Str("module", "playersync").Str("action", ev.Action).Msg("unknown sync action")
		return
	}

	// Our own programmatic seek/play/pause calls above re-trigger local
	// player callbacks; swallow them for a short window so they are not
	// re-broadcast.
	s.suppressUntil = s.clk.Now().Add(suppressWindow)
	s.lastPolled = s.player.CurrentTime()
}

// OnPlayerEvent is the hook for local player callbacks (play, pause, seek,
// timeupdate). It drops callbacks caused by a reconciliation in flight and
// rate-limits timeupdate chatter.
func (s *Synchronizer) OnPlayerEvent(action string, currentTime float64) {
	if s.suppressed() {
		return
	}
	now := s.clk.Now()
	if action == protocol.ActionTimeupdate && now.Sub(s.lastEmit) < timeupdateMinInterval {
		return
	}
	s.lastEmit = now
	s.emit(action, currentTime)
}

// CheckDrift detects user-initiated seeks while the player is paused or
// buffering, where no state-change callback fires. A discontinuity larger
// than the jitter floor, not caused by our own reconciliation, is
// broadcast as a seek.
func (s *Synchronizer) CheckDrift() {
	st := s.player.State()
	if st != StatePaused && st != StateBuffering {
		s.hasPolled = false
		return
	}
	cur := s.player.CurrentTime()
	if s.hasPolled && !s.suppressed() && math.Abs(cur-s.lastPolled) > seekDiscontinuity {
		s.lastEmit = s.clk.Now()
		s.emit(protocol.ActionSeek, cur)
	}
	s.lastPolled = cur
	s.hasPolled = true
}
