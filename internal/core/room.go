package core

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lounge/internal/domain"
)

// RoomState is the live session view of a room: which connections have
// joined the channel, and what is currently playing. This is distinct
// from any persisted room membership, which lives outside the hub.
type RoomState struct {
	ID      domain.RoomID
	members map[ConnID]*ConnectionRecord
	media   string
}

// Media returns the current shared media identifier, empty if none set.
func (r *RoomState) Media() string { return r.media }

func (r *RoomState) MemberCount() int { return len(r.members) }

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
}

func (r *RoomState) MembersSnapshot() []MemberDTO {
	out := make([]MemberDTO, 0, len(r.members))
	for _, rec := range r.members {
		out = append(out, MemberDTO{ID: rec.User.ID, Username: rec.User.Username})
	}
	return out
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"memberCount"`
	MediaID     string        `json:"mediaId,omitempty"`
}

// Router tracks room session membership and fans room-scoped frames out
// to every joined connection. Like Directory it is owned by the hub loop
// and carries no locks.
type Router struct {
	rooms  map[domain.RoomID]*RoomState
	joined map[ConnID]map[domain.RoomID]struct{}
}

func NewRouter() *Router {
	return &Router{
		rooms:  make(map[domain.RoomID]*RoomState),
		joined: make(map[ConnID]map[domain.RoomID]struct{}),
	}
}

func (rt *Router) getOrCreate(id domain.RoomID) *RoomState {
	room, ok := rt.rooms[id]
	if !ok {
		room = &RoomState{ID: id, members: make(map[ConnID]*ConnectionRecord)}
		rt.rooms[id] = room
	}
	return room
}

// Join adds rec to the room's live member set. Idempotent. Returns the
// room so the caller can deliver catch-up state (current media) to the
// joining connection only.
func (rt *Router) Join(rec *ConnectionRecord, roomID domain.RoomID) *RoomState {
	room := rt.getOrCreate(roomID)
	room.members[rec.ID] = rec
	set, ok := rt.joined[rec.ID]
	if !ok {
		set = make(map[domain.RoomID]struct{})
		rt.joined[rec.ID] = set
	}
	set[roomID] = struct{}{}
	log.Info().Str("module", "core.room").Str("room", string(roomID)).Str("conn", string(rec.ID)).Msg("member joined")
	return room
}

// Leave removes the member. Idempotent, no error if not a member.
func (rt *Router) Leave(id ConnID, roomID domain.RoomID) {
	if room, ok := rt.rooms[roomID]; ok {
		delete(room.members, id)
	}
	if set, ok := rt.joined[id]; ok {
		delete(set, roomID)
	}
	log.Info().Str("module", "core.room").Str("room", string(roomID)).Str("conn", string(id)).Msg("member left")
}

// LeaveAll clears every room membership of a disconnecting connection.
func (rt *Router) LeaveAll(id ConnID) {
	for roomID := range rt.joined[id] {
		if room, ok := rt.rooms[roomID]; ok {
			delete(room.members, id)
		}
	}
	delete(rt.joined, id)
}

// Publish delivers data to every member of roomID except exclude (pass
// empty ConnID to reach everyone). Delivery is fire-and-forget; members
// whose send failed are returned so the hub can run its stale-connection
// cleanup.
func (rt *Router) Publish(roomID domain.RoomID, data Frame, exclude ConnID) (failed []*ConnectionRecord) {
	room, ok := rt.rooms[roomID]
	if !ok {
		return nil
	}
	sent := 0
	for id, rec := range room.members {
		if id == exclude {
			continue
		}
		if err := rec.Signal.TrySend(data); err != nil {
			failed = append(failed, rec)
			continue
		}
		sent++
	}
	log.Debug().Str("module", "core.room").Str("room", string(roomID)).Int("sent_to", sent).Int("dropped", len(failed)).Msg("publish result")
	return failed
}

// SetMedia records the room's current shared media identifier.
func (rt *Router) SetMedia(roomID domain.RoomID, mediaID string) {
	rt.getOrCreate(roomID).media = mediaID
}

func (rt *Router) Room(roomID domain.RoomID) (*RoomState, bool) {
	room, ok := rt.rooms[roomID]
	return room, ok
}

func (rt *Router) List() []RoomInfo {
	out := make([]RoomInfo, 0, len(rt.rooms))
	for id, room := range rt.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: len(room.members), MediaID: room.media})
	}
	return out
}
