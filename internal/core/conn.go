package core

import (
	"errors"

	"github.com/dkeye/Lounge/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is an encoded wire message ready to ship to a client.
type Frame []byte

// ConnID identifies a single live transport connection. A user identity
// may go through many connection IDs over its lifetime; at most one of
// them is live at a time.
type ConnID string

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// ConnectionRecord binds a live connection to its user identity.
// Created on connect, destroyed on disconnect, never persisted.
type ConnectionRecord struct {
	ID     ConnID
	User   *domain.User
	Signal SignalConnection
}
