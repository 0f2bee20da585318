package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Scope wraps a pooled connection checked out for a single request. All
// repository calls within the request share it, so a request observes its
// own writes even before commit-visible ordering across connections.
type Scope struct {
	Conn *pgxpool.Conn
}

// Close releases the connection back to the pool. It MUST be called once the
// request is done to avoid exhausting the pool.
func (s *Scope) Close() {
	if s.Conn == nil {
		return
	}
	s.Conn.Release()
}

// Acquire checks out a connection from the pool for a request.
// The returned Scope MUST be closed with defer scope.Close().
func (db *DB) Acquire(ctx context.Context) (*Scope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Scope{Conn: conn}, nil
}
