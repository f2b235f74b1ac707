// Package hub is the realtime coordination core: one event loop owning
// presence, room routing and call signaling state. Every inbound
// connection event is handled to completion before the next starts, so
// the owned structures need no locking; that sequencing is what keeps
// the one-live-connection-per-user invariant safe under concurrent
// connects and disconnects.
package hub

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/dkeye/Lounge/internal/friends"
	"github.com/dkeye/Lounge/internal/protocol"
)

const resolveTimeout = 2 * time.Second

type Hub struct {
	directory *core.Directory
	rooms     *core.Router
	calls     *core.Coordinator
	friends   friends.Resolver
	events    chan any
}

func New(resolver friends.Resolver) *Hub {
	directory := core.NewDirectory()
	return &Hub{
		directory: directory,
		rooms:     core.NewRouter(),
		calls:     core.NewCoordinator(directory),
		friends:   resolver,
		events:    make(chan any, 256),
	}
}

type connectEvent struct{ rec *core.ConnectionRecord }
type disconnectEvent struct{ connID core.ConnID }
type frameEvent struct {
	connID core.ConnID
	data   []byte
}
type roomsQuery struct{ reply chan []core.RoomInfo }

// Run drains the event queue until ctx is canceled. All hub state is
// mutated from this goroutine only.
func (h *Hub) Run(ctx context.Context) {
	log.Info().Str("module", "hub").Msg("event loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "hub").Msg("event loop stopped")
			return
		case ev := <-h.events:
			h.dispatch(ev)
		}
	}
}

func (h *Hub) dispatch(ev any) {
	switch ev := ev.(type) {
	case connectEvent:
		h.onConnect(ev.rec)
	case disconnectEvent:
		h.onDisconnect(ev.connID)
	case frameEvent:
		h.onFrame(ev.connID, ev.data)
	case roomsQuery:
		ev.reply <- h.rooms.List()
	}
}

// Connect registers a freshly upgraded connection with the hub.
func (h *Hub) Connect(rec *core.ConnectionRecord) {
	h.events <- connectEvent{rec: rec}
}

// Disconnect reports that a connection's transport has gone away.
func (h *Hub) Disconnect(id core.ConnID) {
	h.events <- disconnectEvent{connID: id}
}

// Submit hands a raw inbound frame to the hub.
func (h *Hub) Submit(id core.ConnID, data []byte) {
	h.events <- frameEvent{connID: id, data: data}
}

// RoomsSnapshot returns live room occupancy, for the admin API.
func (h *Hub) RoomsSnapshot() []core.RoomInfo {
	reply := make(chan []core.RoomInfo, 1)
	h.events <- roomsQuery{reply: reply}
	return <-reply
}

func (h *Hub) onConnect(rec *core.ConnectionRecord) {
	if evicted := h.directory.Connect(rec); evicted != nil {
		// Last writer wins: the prior connection stops receiving events
		// and is closed, without an explicit kick notification.
		h.rooms.LeaveAll(evicted.ID)
		evicted.Signal.Close()
		connectionsGauge.Dec()
	}
	connectionsGauge.Inc()

	uid := rec.User.ID
	h.notifyFriends(uid, domain.StatusOnline, nil)

	// Resume-on-connect: a single buffered offer may be waiting.
	if po, ok := h.calls.TakePending(uid); ok {
		log.Info().Str("module", "hub").Str("user", string(uid)).Str("from", string(po.From)).Msg("delivering pending call offer")
		h.sendTo(rec, protocol.CallOfferOut{
			Type:   protocol.MsgCallOffer,
			From:   string(po.From),
			Offer:  po.Offer,
			RoomID: string(po.RoomID),
		})
	}
}

func (h *Hub) onDisconnect(id core.ConnID) {
	_, known := h.directory.Record(id)
	h.rooms.LeaveAll(id)
	entry, ok := h.directory.Disconnect(id)
	if known {
		connectionsGauge.Dec()
	}
	if !ok {
		// Never identified, or already evicted by a newer connection.
		return
	}
	lastSeen := entry.LastSeen
	h.notifyFriends(entry.UserID, domain.StatusOffline, &lastSeen)
}

// notifyFriends fans a presence change out to the accepted-friend set
// only. Best-effort: unresolvable or stale friends are skipped.
func (h *Hub) notifyFriends(uid domain.UserID, status domain.Status, lastSeen *time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	ids, err := h.friends.FriendsOf(ctx, uid)
	if err != nil {
		log.Warn().Err(err).Str("module", "hub").Str("user", string(uid)).Msg("friend fanout resolution failed")
		return
	}
	out := protocol.UserStatusChangeOut{
		Type:     protocol.MsgUserStatusChange,
		UserID:   string(uid),
		Status:   string(status),
		LastSeen: lastSeen,
	}
	for _, fid := range ids {
		if rec, ok := h.directory.Resolve(fid); ok {
			h.sendTo(rec, out)
		}
	}
}

// sendTo encodes and fires one frame at one connection. A send failure is
// the lazy stale-connection signal: it triggers the same cleanup as an
// explicit disconnect.
func (h *Hub) sendTo(rec *core.ConnectionRecord, v any) {
	data, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("encode outbound frame")
		return
	}
	if err := rec.Signal.TrySend(core.Frame(data)); err != nil {
		framesDropped.Inc()
		log.Warn().Err(err).Str("module", "hub").Str("conn", string(rec.ID)).Msg("send failed, cleaning up connection")
		if errors.Is(err, core.ErrConnClosed) {
			h.onDisconnect(rec.ID)
		}
	}
}

// publish encodes once and fans out to a room, then runs disconnect
// cleanup for every member whose send failed. Delivering to one
// connection never waits on another.
func (h *Hub) publish(roomID domain.RoomID, v any, exclude core.ConnID) {
	data, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("encode broadcast frame")
		return
	}
	failed := h.rooms.Publish(roomID, core.Frame(data), exclude)
	for _, rec := range failed {
		framesDropped.Inc()
		rec.Signal.Close()
		h.onDisconnect(rec.ID)
	}
}
