// Package friends resolves the fanout set for presence notifications:
// given a user, which other users should hear about its status changes.
package friends

import (
	"context"

	"github.com/dkeye/Lounge/internal/domain"
)

// Resolver returns the accepted-friend set of a user. The friend graph
// itself is maintained by the request/response API outside the hub; the
// hub only reads it.
type Resolver interface {
	FriendsOf(ctx context.Context, uid domain.UserID) ([]domain.UserID, error)
}

// StaticResolver is an in-memory resolver for tests and standalone runs.
type StaticResolver struct {
	pairs map[domain.UserID]map[domain.UserID]struct{}
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{pairs: make(map[domain.UserID]map[domain.UserID]struct{})}
}

// Add records an accepted friendship in both directions.
func (s *StaticResolver) Add(a, b domain.UserID) {
	for _, p := range [][2]domain.UserID{{a, b}, {b, a}} {
		set, ok := s.pairs[p[0]]
		if !ok {
			set = make(map[domain.UserID]struct{})
			s.pairs[p[0]] = set
		}
		set[p[1]] = struct{}{}
	}
}

func (s *StaticResolver) FriendsOf(_ context.Context, uid domain.UserID) ([]domain.UserID, error) {
	out := make([]domain.UserID, 0, len(s.pairs[uid]))
	for f := range s.pairs[uid] {
		out = append(out, f)
	}
	return out, nil
}
