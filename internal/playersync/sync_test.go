package playersync

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dkeye/Lounge/internal/protocol"
)

type fakePlayer struct {
	state State
	time  float64

	plays  int
	pauses int
	seeks  []float64
}

func (p *fakePlayer) State() State         { return p.state }
func (p *fakePlayer) CurrentTime() float64 { return p.time }
func (p *fakePlayer) Play()                { p.plays++; p.state = StatePlaying }
func (p *fakePlayer) Pause()               { p.pauses++; p.state = StatePaused }
func (p *fakePlayer) SeekTo(s float64)     { p.seeks = append(p.seeks, s); p.time = s }

type emitted struct {
	action string
	time   float64
}

type recorder struct {
	events []emitted
}

func (r *recorder) emit(action string, t float64) {
	r.events = append(r.events, emitted{action: action, time: t})
}

func newSync(player *fakePlayer) (*Synchronizer, *recorder, *clock.Mock) {
	rec := &recorder{}
	mock := clock.NewMock()
	return New("self", player, rec.emit, mock), rec, mock
}

func TestEchoSuppression(t *testing.T) {
	player := &fakePlayer{state: StatePaused, time: 10}
	s, _, _ := newSync(player)

	// Round trip of our own action: origin id matches, nothing moves.
	s.Apply(Event{Action: protocol.ActionPlay, CurrentTime: 99, SenderID: "self"})

	if player.plays != 0 || player.pauses != 0 || len(player.seeks) != 0 {
		t.Errorf("own echo mutated player: plays=%d pauses=%d seeks=%v",
			player.plays, player.pauses, player.seeks)
	}
}

func TestThresholdConvergence(t *testing.T) {
	t.Run("below threshold no seek", func(t *testing.T) {
		player := &fakePlayer{state: StatePlaying, time: 20.0}
		s, _, _ := newSync(player)
		s.Apply(Event{Action: protocol.ActionTimeupdate, CurrentTime: 20.3, SenderID: "peer"})
		if len(player.seeks) != 0 {
			t.Errorf("seeks = %v, want none for 0.3s drift", player.seeks)
		}
	})

	t.Run("above threshold seeks to sender time", func(t *testing.T) {
		player := &fakePlayer{state: StatePlaying, time: 20.0}
		s, _, _ := newSync(player)
		s.Apply(Event{Action: protocol.ActionTimeupdate, CurrentTime: 22.0, SenderID: "peer"})
		if len(player.seeks) != 1 || player.seeks[0] != 22.0 {
			t.Errorf("seeks = %v, want [22.0]", player.seeks)
		}
	})
}

func TestPlayReconciliation(t *testing.T) {
	t.Run("paused player seeks then plays when drifted", func(t *testing.T) {
		player := &fakePlayer{state: StatePaused, time: 0}
		s, _, _ := newSync(player)
		s.Apply(Event{Action: protocol.ActionPlay, CurrentTime: 30, SenderID: "peer"})
		if player.plays != 1 {
			t.Errorf("plays = %d, want 1", player.plays)
		}
		if len(player.seeks) != 1 || player.seeks[0] != 30 {
			t.Errorf("seeks = %v, want [30]", player.seeks)
		}
	})

	t.Run("paused player plays without seek inside threshold", func(t *testing.T) {
		player := &fakePlayer{state: StatePaused, time: 29.5}
		s, _, _ := newSync(player)
		s.Apply(Event{Action: protocol.ActionPlay, CurrentTime: 30, SenderID: "peer"})
		if player.plays != 1 || len(player.seeks) != 0 {
			t.Errorf("plays = %d seeks = %v, want play with no seek", player.plays, player.seeks)
		}
	})

	t.Run("already playing only corrects drift", func(t *testing.T) {
		player := &fakePlayer{state: StatePlaying, time: 10}
		s, _, _ := newSync(player)
		s.Apply(Event{Action: protocol.ActionPlay, CurrentTime: 30, SenderID: "peer"})
		if player.plays != 0 {
			t.Errorf("plays = %d, want 0 when already playing", player.plays)
		}
		if len(player.seeks) != 1 {
			t.Errorf("seeks = %v, want drift correction", player.seeks)
		}
	})
}

func TestPauseReconciliation(t *testing.T) {
	t.Run("playing player pauses then seeks when drifted", func(t *testing.T) {
		player := &fakePlayer{state: StatePlaying, time: 5}
		s, _, _ := newSync(player)
		s.Apply(Event{Action: protocol.ActionPause, CurrentTime: 50, SenderID: "peer"})
		if player.pauses != 1 {
			t.Errorf("pauses = %d, want 1", player.pauses)
		}
		if len(player.seeks) != 1 || player.seeks[0] != 50 {
			t.Errorf("seeks = %v, want [50]", player.seeks)
		}
	})

	t.Run("already paused inside threshold is a no-op", func(t *testing.T) {
		player := &fakePlayer{state: StatePaused, time: 49.8}
		s, _, _ := newSync(player)
		s.Apply(Event{Action: protocol.ActionPause, CurrentTime: 50, SenderID: "peer"})
		if player.pauses != 0 || len(player.seeks) != 0 {
			t.Errorf("pauses = %d seeks = %v, want no mutation", player.pauses, player.seeks)
		}
	})
}

func TestSuppressWindow(t *testing.T) {
	player := &fakePlayer{state: StatePaused, time: 0}
	s, rec, mock := newSync(player)

	s.Apply(Event{Action: protocol.ActionPlay, CurrentTime: 30, SenderID: "peer"})

	// The programmatic play/seek above fires local callbacks; inside the
	// window they must not be re-broadcast.
	s.OnPlayerEvent(protocol.ActionPlay, 30)
	s.OnPlayerEvent(protocol.ActionSeek, 30)
	if len(rec.events) != 0 {
		t.Fatalf("emitted %v during suppress window, want none", rec.events)
	}

	mock.Add(301 * time.Millisecond)
	s.OnPlayerEvent(protocol.ActionPause, 31)
	if len(rec.events) != 1 || rec.events[0].action != protocol.ActionPause {
		t.Errorf("events = %v, want one pause after window expiry", rec.events)
	}
}

func TestTimeupdateRateLimit(t *testing.T) {
	player := &fakePlayer{state: StatePlaying}
	s, rec, mock := newSync(player)

	mock.Add(time.Second)
	s.OnPlayerEvent(protocol.ActionTimeupdate, 1.0)
	s.OnPlayerEvent(protocol.ActionTimeupdate, 1.2)
	mock.Add(200 * time.Millisecond)
	s.OnPlayerEvent(protocol.ActionTimeupdate, 1.4)
	mock.Add(400 * time.Millisecond)
	s.OnPlayerEvent(protocol.ActionTimeupdate, 1.8)

	if len(rec.events) != 2 {
		t.Errorf("emitted %d timeupdates, want 2 (>=500ms apart)", len(rec.events))
	}

	// Other actions are not rate limited.
	s.OnPlayerEvent(protocol.ActionPlay, 2.0)
	if len(rec.events) != 3 {
		t.Errorf("play right after timeupdate should emit, got %v", rec.events)
	}
}

func TestManualSeekDetection(t *testing.T) {
	t.Run("discontinuity while paused emits seek", func(t *testing.T) {
		player := &fakePlayer{state: StatePaused, time: 10}
		s, rec, _ := newSync(player)

		s.CheckDrift() // baseline poll
		player.time = 25
		s.CheckDrift()

		if len(rec.events) != 1 || rec.events[0].action != protocol.ActionSeek || rec.events[0].time != 25 {
			t.Errorf("events = %v, want one seek to 25", rec.events)
		}
	})

	t.Run("small drift stays quiet", func(t *testing.T) {
		player := &fakePlayer{state: StatePaused, time: 10}
		s, rec, _ := newSync(player)

		s.CheckDrift()
		player.time = 10.3
		s.CheckDrift()

		if len(rec.events) != 0 {
			t.Errorf("events = %v, want none for 0.3s drift", rec.events)
		}
	})

	t.Run("reconciliation seek is not mistaken for manual seek", func(t *testing.T) {
		player := &fakePlayer{state: StatePaused, time: 10}
		s, rec, mock := newSync(player)

		s.CheckDrift()
		s.Apply(Event{Action: protocol.ActionSeek, CurrentTime: 40, SenderID: "peer"})
		s.CheckDrift()
		mock.Add(time.Second)
		s.CheckDrift()

		if len(rec.events) != 0 {
			t.Errorf("events = %v, reconciliation must not echo as manual seek", rec.events)
		}
	})

	t.Run("baseline resets while playing", func(t *testing.T) {
		player := &fakePlayer{state: StatePlaying, time: 10}
		s, rec, _ := newSync(player)

		s.CheckDrift()
		player.time = 30
		player.state = StatePaused
		s.CheckDrift() // first paused poll only sets the baseline
		if len(rec.events) != 0 {
			t.Errorf("events = %v, want none on baseline poll", rec.events)
		}
	})
}
