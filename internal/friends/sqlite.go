package friends

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/dkeye/Lounge/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS friend_requests (
	sender   TEXT NOT NULL,
	receiver TEXT NOT NULL,
	status   TEXT NOT NULL DEFAULT 'pending',
	PRIMARY KEY (sender, receiver)
);
CREATE INDEX IF NOT EXISTS idx_friend_requests_receiver ON friend_requests (receiver);
`

// SQLiteResolver reads the accepted-friend set from the same friend_requests
// table the out-of-scope CRUD API writes. A friendship is one accepted row
// in either direction.
type SQLiteResolver struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteResolver, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open friends db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init friends schema: %w", err)
	}
	return &SQLiteResolver{db: db}, nil
}

func (r *SQLiteResolver) Close() error { return r.db.Close() }

func (r *SQLiteResolver) FriendsOf(ctx context.Context, uid domain.UserID) ([]domain.UserID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sender, receiver FROM friend_requests
		 WHERE status = 'accepted' AND (sender = ? OR receiver = ?)`,
		string(uid), string(uid))
	if err != nil {
		return nil, fmt.Errorf("query friends of %s: %w", uid, err)
	}
	defer rows.Close()

	var out []domain.UserID
	for rows.Next() {
		var sender, receiver string
		if err := rows.Scan(&sender, &receiver); err != nil {
			return nil, fmt.Errorf("scan friend row: %w", err)
		}
		if domain.UserID(sender) == uid {
			out = append(out, domain.UserID(receiver))
		} else {
			out = append(out, domain.UserID(sender))
		}
	}
	return out, rows.Err()
}

// Accept records an accepted friendship. The hub itself never calls this;
// it exists for seeding and tests.
func (r *SQLiteResolver) Accept(ctx context.Context, sender, receiver domain.UserID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO friend_requests (sender, receiver, status) VALUES (?, ?, 'accepted')
		 ON CONFLICT (sender, receiver) DO UPDATE SET status = 'accepted'`,
		string(sender), string(receiver))
	if err != nil {
		return fmt.Errorf("accept friendship %s->%s: %w", sender, receiver, err)
	}
	return nil
}
