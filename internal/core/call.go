package core

import (
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lounge/internal/domain"
)

// CallState is the explicit negotiation state per unordered user pair.
// The wire protocol itself is a relay and would work without it, but
// tracking it makes teardown observable instead of timing-dependent.
type CallState int

const (
	CallIdle CallState = iota
	CallOffered
	CallActive
	CallEnded
)

func (s CallState) String() string {
	switch s {
	case CallOffered:
		return "offered"
	case CallActive:
		return "active"
	case CallEnded:
		return "ended"
	default:
		return "idle"
	}
}

// PendingOffer is the one buffered call invitation held for an offline
// target. Newer offers replace it; they are never queued.
type PendingOffer struct {
	From   domain.UserID
	To     domain.UserID
	Offer  webrtc.SessionDescription
	RoomID domain.RoomID
}

type pairKey struct {
	a, b domain.UserID
}

func keyFor(x, y domain.UserID) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// Coordinator brokers one-to-one call negotiation. Addressing is by user
// identity, never by room: a call may start before either side has joined
// a shared room view. Owned by the hub loop, no locks.
type Coordinator struct {
	directory *Directory
	pending   map[domain.UserID]PendingOffer
	states    map[pairKey]CallState
}

func NewCoordinator(directory *Directory) *Coordinator {
	return &Coordinator{
		directory: directory,
		pending:   make(map[domain.UserID]PendingOffer),
		states:    make(map[pairKey]CallState),
	}
}

// Offer resolves the target and either hands back its live connection or
// buffers the offer. A buffered offer silently supersedes any earlier one
// for the same target; the superseded caller is not told.
func (c *Coordinator) Offer(po PendingOffer) (target *ConnectionRecord, buffered bool) {
	c.states[keyFor(po.From, po.To)] = CallOffered
	if rec, ok := c.directory.Resolve(po.To); ok {
		return rec, false
	}
	if prev, ok := c.pending[po.To]; ok {
		log.Warn().Str("module", "core.call").Str("to", string(po.To)).Str("superseded_from", string(prev.From)).Msg("pending offer replaced")
		delete(c.states, keyFor(prev.From, prev.To))
	}
	c.pending[po.To] = po
	log.Info().Str("module", "core.call").Str("from", string(po.From)).Str("to", string(po.To)).Msg("offer buffered for offline target")
	return nil, true
}

// TakePending pops the buffered offer for a user transitioning online.
// The hub calls this on every connect; delivery uses the same payload
// shape as a live offer.
func (c *Coordinator) TakePending(uid domain.UserID) (PendingOffer, bool) {
	po, ok := c.pending[uid]
	if ok {
		delete(c.pending, uid)
	}
	return po, ok
}

// Answer marks the pair active and resolves the caller. An answer to an
// offline caller is dropped; the caller's client is expected to time out.
func (c *Coordinator) Answer(from, to domain.UserID) (*ConnectionRecord, bool) {
	rec, ok := c.directory.Resolve(to)
	if ok {
		c.states[keyFor(from, to)] = CallActive
	}
	return rec, ok
}

// Relay resolves the target for a negotiation candidate. Pure best-effort,
// no buffering, no state change.
func (c *Coordinator) Relay(to domain.UserID) (*ConnectionRecord, bool) {
	return c.directory.Resolve(to)
}

// Decline tears the pair down. The hub must deliver both a decline and a
// synthesized hangup to the target so both ends converge on the terminal
// state from one message.
func (c *Coordinator) Decline(from, to domain.UserID) (*ConnectionRecord, bool) {
	c.clear(from, to)
	return c.directory.Resolve(to)
}

// Hangup tears the pair down; an unresolvable target is itself a
// sufficient teardown signal for that side.
func (c *Coordinator) Hangup(from, to domain.UserID) (*ConnectionRecord, bool) {
	c.clear(from, to)
	return c.directory.Resolve(to)
}

func (c *Coordinator) clear(x, y domain.UserID) {
	delete(c.states, keyFor(x, y))
	if po, ok := c.pending[y]; ok && po.From == x {
		delete(c.pending, y)
	}
	if po, ok := c.pending[x]; ok && po.From == y {
		delete(c.pending, x)
	}
}

// State reports the tracked negotiation state for a pair.
func (c *Coordinator) State(x, y domain.UserID) CallState {
	return c.states[keyFor(x, y)]
}
