package core

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lounge/internal/domain"
)

// Directory maps user identities to their live connection and presence
// status. It is not safe for concurrent use: the hub loop is its only
// caller, which is what makes last-writer-wins eviction race-free.
type Directory struct {
	entries map[domain.UserID]*domain.PresenceEntry
	active  map[domain.UserID]ConnID
	conns   map[ConnID]*ConnectionRecord
}

func NewDirectory() *Directory {
	return &Directory{
		entries: make(map[domain.UserID]*domain.PresenceEntry),
		active:  make(map[domain.UserID]ConnID),
		conns:   make(map[ConnID]*ConnectionRecord),
	}
}

// Connect registers rec as the live connection for its user, marking the
// user online. Any prior connection for the same identity is evicted and
// returned so the caller can close it; the evicted connection simply stops
// receiving events, it is not notified.
func (d *Directory) Connect(rec *ConnectionRecord) (evicted *ConnectionRecord) {
	uid := rec.User.ID
	if prevID, ok := d.active[uid]; ok {
		evicted = d.conns[prevID]
		delete(d.conns, prevID)
		log.Info().Str("module", "core.presence").Str("user", string(uid)).Str("conn", string(prevID)).Msg("evicted stale connection")
	}
	entry, ok := d.entries[uid]
	if !ok {
		entry = &domain.PresenceEntry{UserID: uid}
		d.entries[uid] = entry
	}
	entry.Username = rec.User.Username
	entry.Status = domain.StatusOnline
	d.active[uid] = rec.ID
	d.conns[rec.ID] = rec
	log.Info().Str("module", "core.presence").Str("user", string(uid)).Str("conn", string(rec.ID)).Msg("connected")
	return evicted
}

// Disconnect marks the owning user offline and stamps last-seen. A connID
// that maps to no record (never identified, or already evicted) is a silent
// no-op. An evicted connection's late disconnect must not flip its
// successor offline, hence the active-connection check.
func (d *Directory) Disconnect(id ConnID) (*domain.PresenceEntry, bool) {
	rec, ok := d.conns[id]
	if !ok {
		return nil, false
	}
	delete(d.conns, id)
	uid := rec.User.ID
	if d.active[uid] != id {
		return nil, false
	}
	delete(d.active, uid)
	entry := d.entries[uid]
	entry.Status = domain.StatusOffline
	entry.LastSeen = time.Now()
	log.Info().Str("module", "core.presence").Str("user", string(uid)).Str("conn", string(id)).Msg("disconnected")
	return entry, true
}

// Resolve returns the live connection for uid, if any. Every targeted
// delivery in the hub goes through here.
func (d *Directory) Resolve(uid domain.UserID) (*ConnectionRecord, bool) {
	id, ok := d.active[uid]
	if !ok {
		return nil, false
	}
	rec, ok := d.conns[id]
	return rec, ok
}

// Record returns the connection record for a live connection ID.
func (d *Directory) Record(id ConnID) (*ConnectionRecord, bool) {
	rec, ok := d.conns[id]
	return rec, ok
}

// Entry returns the presence entry for uid, if the user ever connected.
func (d *Directory) Entry(uid domain.UserID) (*domain.PresenceEntry, bool) {
	e, ok := d.entries[uid]
	return e, ok
}
