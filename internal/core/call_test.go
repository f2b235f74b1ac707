package core

import (
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Lounge/internal/domain"
)

func testOffer(from, to, sdp string) PendingOffer {
	return PendingOffer{
		From:   domain.UserID(from),
		To:     domain.UserID(to),
		Offer:  webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp},
		RoomID: "r1",
	}
}

func TestCoordinator_Offer(t *testing.T) {
	t.Run("online target resolves directly", func(t *testing.T) {
		d := NewDirectory()
		c := NewCoordinator(d)
		d.Connect(newRec("c-bob", "bob", "Bob"))

		target, buffered := c.Offer(testOffer("alice", "bob", "sdp-1"))
		if buffered {
			t.Fatal("offer to online target must not buffer")
		}
		if target == nil || target.ID != "c-bob" {
			t.Errorf("target = %v, want c-bob", target)
		}
		if c.State("alice", "bob") != CallOffered {
			t.Errorf("state = %v, want offered", c.State("alice", "bob"))
		}
	})

	t.Run("offline target buffers a single slot", func(t *testing.T) {
		d := NewDirectory()
		c := NewCoordinator(d)

		for _, sdp := range []string{"sdp-1", "sdp-2", "sdp-3"} {
			if _, buffered := c.Offer(testOffer("alice", "bob", sdp)); !buffered {
				t.Fatalf("offer %s: expected buffering", sdp)
			}
		}

		po, ok := c.TakePending("bob")
		if !ok {
			t.Fatal("expected a pending offer")
		}
		if po.Offer.SDP != "sdp-3" {
			t.Errorf("pending SDP = %q, want the last one (sdp-3)", po.Offer.SDP)
		}
		if _, ok := c.TakePending("bob"); ok {
			t.Error("pending slot must be cleared after take")
		}
	})

	t.Run("later caller supersedes earlier caller", func(t *testing.T) {
		d := NewDirectory()
		c := NewCoordinator(d)
		c.Offer(testOffer("alice", "bob", "from-alice"))
		c.Offer(testOffer("carol", "bob", "from-carol"))

		po, ok := c.TakePending("bob")
		if !ok || po.From != "carol" {
			t.Errorf("pending from = %v, want carol", po.From)
		}
		if c.State("alice", "bob") != CallIdle {
			t.Error("superseded pair should drop back to idle")
		}
	})
}

func TestCoordinator_AnswerDeclineHangup(t *testing.T) {
	t.Run("answer marks pair active", func(t *testing.T) {
		d := NewDirectory()
		c := NewCoordinator(d)
		d.Connect(newRec("c-alice", "alice", "Alice"))
		d.Connect(newRec("c-bob", "bob", "Bob"))

		c.Offer(testOffer("alice", "bob", "sdp"))
		target, ok := c.Answer("bob", "alice")
		if !ok || target.ID != "c-alice" {
			t.Fatalf("answer target = %v, want c-alice", target)
		}
		if c.State("alice", "bob") != CallActive {
			t.Errorf("state = %v, want active", c.State("alice", "bob"))
		}
	})

	t.Run("answer to offline caller is dropped", func(t *testing.T) {
		d := NewDirectory()
		c := NewCoordinator(d)
		if _, ok := c.Answer("bob", "alice"); ok {
			t.Error("expected drop for offline caller")
		}
	})

	t.Run("decline clears call state", func(t *testing.T) {
		d := NewDirectory()
		c := NewCoordinator(d)
		d.Connect(newRec("c-alice", "alice", "Alice"))
		d.Connect(newRec("c-bob", "bob", "Bob"))

		c.Offer(testOffer("alice", "bob", "sdp"))
		if _, ok := c.Decline("bob", "alice"); !ok {
			t.Fatal("expected decline to resolve caller")
		}
		if c.State("alice", "bob") != CallIdle {
			t.Errorf("state after decline = %v, want idle", c.State("alice", "bob"))
		}
	})

	t.Run("decline drops a pending offer between the pair", func(t *testing.T) {
		d := NewDirectory()
		c := NewCoordinator(d)
		d.Connect(newRec("c-alice", "alice", "Alice"))

		c.Offer(testOffer("alice", "bob", "sdp"))
		c.Decline("bob", "alice")
		if _, ok := c.TakePending("bob"); ok {
			t.Error("pending offer should not survive decline")
		}
	})

	t.Run("hangup clears state and tolerates offline peer", func(t *testing.T) {
		d := NewDirectory()
		c := NewCoordinator(d)
		d.Connect(newRec("c-alice", "alice", "Alice"))
		d.Connect(newRec("c-bob", "bob", "Bob"))

		c.Offer(testOffer("alice", "bob", "sdp"))
		c.Answer("bob", "alice")
		d.Disconnect("c-bob")

		if _, ok := c.Hangup("alice", "bob"); ok {
			t.Error("hangup at departed peer must be undeliverable")
		}
		if c.State("alice", "bob") != CallIdle {
			t.Errorf("state = %v, want idle", c.State("alice", "bob"))
		}
	})
}
