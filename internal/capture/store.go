// Package capture records sample streams into a sqlite database so a trace
// can be replayed or reported on later.
package capture

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/irtrace/internal/pulse"
	"github.com/banshee-data/irtrace/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNoSessions is returned when a capture database holds no sessions.
var ErrNoSessions = errors.New("no capture sessions recorded")

// Store is a capture database.
type Store struct {
	*sql.DB
	clock timeutil.Clock
}

// Open opens (creating if needed) the capture database at path and migrates
// it to the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{DB: db, clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenExisting opens a capture database that must already exist. Readers use
// it so a mistyped path fails instead of creating an empty database.
func OpenExisting(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("capture database: %w", err)
	}
	return Open(path)
}

// SetClock replaces the clock used to timestamp sessions and samples.
func (s *Store) SetClock(c timeutil.Clock) { s.clock = c }

// MigrateUp runs all pending migrations up to the latest version.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// Note: m is not closed here because it would close the underlying DB connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current migration version and dirty state.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger implements migrate.Logger interface
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// SessionInfo summarises a recorded session.
type SessionInfo struct {
	ID        string
	StartedAt time.Time
	Driver    string
	Device    string
	Note      string
	Samples   int64
}

// Samples are committed in batches: every flushEvery samples, once
// flushInterval has passed since the last commit, and on Flush or Close.
const (
	flushEvery    = 256
	flushInterval = time.Second
)

// Session appends samples to one recording. It is not safe for concurrent
// use.
type Session struct {
	ID    string
	store *Store
	seq   int64

	tx        *sql.Tx
	stmt      *sql.Stmt
	pending   int
	lastFlush time.Time
}

// BeginSession starts a new recording with a random identifier.
func (s *Store) BeginSession(driver, device, note string) (*Session, error) {
	id := uuid.New().String()
	now := s.clock.Now()
	_, err := s.Exec(
		`INSERT INTO sessions (session_id, started_at, driver, device, note) VALUES (?, ?, ?, ?, ?)`,
		id, now.UTC(), driver, device, note,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &Session{ID: id, store: s, lastFlush: now}, nil
}

func (r *Session) begin() error {
	tx, err := r.store.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin sample batch: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO samples (session_id, seq, duration_us, pulse, recorded_at_ns) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	r.tx, r.stmt = tx, stmt
	return nil
}

// Record appends one sample. It becomes visible to other readers at the
// next flush.
func (r *Session) Record(sample pulse.Sample) error {
	if r.tx == nil {
		if err := r.begin(); err != nil {
			return err
		}
	}
	now := r.store.clock.Now()
	_, err := r.stmt.Exec(r.ID, r.seq, sample.Duration, sample.IsMark(), now.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record sample %d: %w", r.seq, err)
	}
	r.seq++
	r.pending++
	if r.pending >= flushEvery || now.Sub(r.lastFlush) >= flushInterval {
		return r.Flush()
	}
	return nil
}

// Flush commits the samples recorded since the last flush.
func (r *Session) Flush() error {
	r.lastFlush = r.store.clock.Now()
	if r.tx == nil {
		return nil
	}
	tx := r.tx
	r.tx, r.stmt, r.pending = nil, nil, 0
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit samples: %w", err)
	}
	return nil
}

// Count is the number of samples recorded so far, flushed or not.
func (r *Session) Count() int64 { return r.seq }

// Close flushes any pending samples.
func (r *Session) Close() error {
	return r.Flush()
}

// Sessions lists recorded sessions, oldest first.
func (s *Store) Sessions() ([]SessionInfo, error) {
	rows, err := s.Query(`
		SELECT s.session_id, s.started_at, s.driver, s.device, s.note, COUNT(x.seq)
		FROM sessions s
		LEFT JOIN samples x ON x.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.started_at, s.session_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.StartedAt, &info.Driver, &info.Device, &info.Note, &info.Samples); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// LatestSession returns the most recently started session.
func (s *Store) LatestSession() (SessionInfo, error) {
	sessions, err := s.Sessions()
	if err != nil {
		return SessionInfo{}, err
	}
	if len(sessions) == 0 {
		return SessionInfo{}, ErrNoSessions
	}
	return sessions[len(sessions)-1], nil
}

// Samples returns the samples of a session in recording order.
func (s *Store) Samples(sessionID string) ([]pulse.Sample, error) {
	var exists int
	if err := s.QueryRow(`SELECT COUNT(*) FROM sessions WHERE session_id = ?`, sessionID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("session %q not found", sessionID)
	}

	rows, err := s.Query(
		`SELECT duration_us, pulse FROM samples WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pulse.Sample
	for rows.Next() {
		var (
			d      int64
			isMark bool
		)
		if err := rows.Scan(&d, &isMark); err != nil {
			return nil, err
		}
		sample := pulse.Sample{Duration: uint32(d), Polarity: pulse.Space}
		if isMark {
			sample.Polarity = pulse.Mark
		}
		out = append(out, sample)
	}
	return out, rows.Err()
}
