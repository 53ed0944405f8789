package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bulgusearch/bulgu"
)

// Ensure Session implements bulgu.Session at compile time.
var _ bulgu.Session = (*Session)(nil)

// maxCommitAttempts bounds the retryable commit: one initial attempt plus
// len(commitDelays) retries.
const maxCommitAttempts = 5

// commitDelays returns the backoff delays between commit attempts.
// Exponential with up to 50% jitter.
func commitDelays() []time.Duration {
	return []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
	}
}

// Session is a stage-scoped transaction over the shared database. It drives
// the transaction with explicit BEGIN/COMMIT statements on a dedicated
// connection: a recoverable COMMIT failure leaves the transaction open on the
// connection, so the commit itself can be re-issued. Each pipeline stage owns
// exactly one session; the session is not safe for use from multiple
// goroutines without external coordination of Commit.
type Session struct {
	db     *DB
	conn   *sqlx.Conn
	open   bool
	delays []time.Duration
}

// NewSession returns a session bound to db. The connection is acquired and
// the transaction begun lazily on first use, and a fresh transaction begins
// after each successful Commit.
func (db *DB) NewSession() *Session {
	return &Session{db: db, delays: commitDelays()}
}

// SetCommitDelays overrides the retry backoff, used by tests to avoid real
// waits.
func (s *Session) SetCommitDelays(delays []time.Duration) { s.delays = delays }

// Conn returns the session's connection with a transaction open, acquiring
// the connection and issuing BEGIN as needed.
func (s *Session) Conn(ctx context.Context) (*sqlx.Conn, error) {
	if s.conn == nil {
		conn, err := s.db.db.Connx(ctx)
		if err != nil {
			return nil, err
		}
		s.conn = conn
	}
	if !s.open {
		if _, err := s.conn.ExecContext(ctx, "BEGIN"); err != nil {
			s.release()
			return nil, err
		}
		s.open = true
	}
	return s.conn, nil
}

// Commit commits the session's transaction. Recoverable storage errors (lock
// contention, dropped connections) are retried by re-issuing COMMIT with
// exponential backoff and jitter; any other error, or retry exhaustion,
// rolls the transaction back and the first commit error is returned.
// Committing a session with no open transaction is a no-op.
func (s *Session) Commit(ctx context.Context) error {
	if !s.open {
		return nil
	}

	var firstErr error
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		_, err := s.conn.ExecContext(ctx, "COMMIT")
		if err == nil {
			s.open = false
			s.release()
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}

		if !recoverable(err) || attempt >= len(s.delays) {
			break
		}

		select {
		case <-ctx.Done():
			s.abort()
			return ctx.Err()
		case <-time.After(jitter(s.delays[attempt])):
		}
	}

	s.abort()
	return firstErr
}

// Rollback discards the session's pending writes.
func (s *Session) Rollback() error {
	if !s.open {
		s.release()
		return nil
	}
	_, err := s.conn.ExecContext(context.Background(), "ROLLBACK")
	s.open = false
	s.release()
	return err
}

// abort discards the transaction after a failed commit. The rollback error
// is ignored; some failures already ended the transaction driver-side.
func (s *Session) abort() {
	if s.conn != nil && s.open {
		_, _ = s.conn.ExecContext(context.Background(), "ROLLBACK")
	}
	s.open = false
	s.release()
}

// release returns the connection to the pool. The sqlite backend runs on a
// single pooled connection, so a session must not hold it between
// transactions.
func (s *Session) release() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

// jitter spreads a delay by up to +50% so concurrent sessions don't retry
// in lockstep.
func jitter(d time.Duration) time.Duration {
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}

// recoverable reports whether a commit error is worth retrying. The set is
// deliberately narrow: lock contention and transient connection failures.
func recoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"database is locked",
		"sqlite_busy",
		"database table is locked",
		"connection refused",
		"connection reset",
		"broken pipe",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
