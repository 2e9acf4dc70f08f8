// Package storage persists the user profile and chat state to SQLite.
// The database is opened lazily and created on first use.
// If opening the DB or executing queries fails, the adapter falls back to in-memory storage.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"

	"github.com/comigor/neura-go/internal/chat"
	"github.com/comigor/neura-go/internal/config"
	"github.com/comigor/neura-go/internal/logger"
	"github.com/comigor/neura-go/internal/profile"
)

// Snapshot is the persisted record: { user, chat }.
type Snapshot struct {
	User profile.Profile `json:"user"`
	Chat chat.State      `json:"chat"`
}

type record struct {
	version int
	payload []byte
}

// Adapter reads and writes the Snapshot under a single namespaced key.
type Adapter struct {
	path  string
	key   string
	now   func() time.Time
	newID func() string

	dbOnce  sync.Once
	db      *sql.DB
	initErr error

	mu       sync.Mutex
	fallback *record // in-memory copy, always current
	latest   Snapshot
}

// Open prepares an adapter; the database itself is opened on first use.
func Open(cfg config.StorageConfig) *Adapter {
	return &Adapter{
		path:  cfg.Path,
		key:   cfg.Key,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// initDB lazily opens the SQLite database and creates the state table if it doesn't exist.
func (a *Adapter) initDB() {
	if dir := filepath.Dir(a.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			a.initErr = err
			logger.L.Warn("storage directory creation failed; using in-memory state", "error", err)
			return
		}
	}
	db, err := sql.Open("sqlite", "file:"+a.path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		a.initErr = err
		logger.L.Warn("sqlite open failed; using in-memory state", "error", err)
		return
	}
	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS persisted_state (
        key TEXT PRIMARY KEY,
        version INTEGER NOT NULL,
        payload TEXT NOT NULL,
        updated_at DATETIME
    );`); err != nil {
		a.initErr = err
		_ = db.Close()
		logger.L.Warn("sqlite table creation failed; using in-memory state", "error", err)
		return
	}
	a.db = db
	logger.L.Info("sqlite state DB initialized", "path", a.path)
}

func (a *Adapter) ready() bool {
	a.dbOnce.Do(a.initDB)
	return a.initErr == nil && a.db != nil
}

// Load reads the stored record once at startup and migrates it. It never
// fails: a missing or unreadable record yields the empty state.
func (a *Adapter) Load(ctx context.Context) Snapshot {
	rec := a.read(ctx)
	if rec == nil {
		logger.L.Info("no persisted state found", "key", a.key)
		return a.remember(Decode(nil, a.now(), a.newID))
	}
	if rec.version < CurrentVersion {
		logger.L.Info("migrating persisted state", "from", rec.version, "to", CurrentVersion)
	}
	return a.remember(Decode(rec.payload, a.now(), a.newID))
}

func (a *Adapter) remember(snap Snapshot) Snapshot {
	a.mu.Lock()
	a.latest = snap
	a.mu.Unlock()
	return snap
}

func (a *Adapter) read(ctx context.Context) *record {
	if a.ready() {
		var rec record
		var payload string
		err := a.db.QueryRowContext(ctx, `SELECT version, payload FROM persisted_state WHERE key = ?;`, a.key).Scan(&rec.version, &payload)
		switch {
		case err == nil:
			rec.payload = []byte(payload)
			return &rec
		case errors.Is(err, sql.ErrNoRows):
			return nil
		default:
			logger.L.Error("failed to read state from sqlite; falling back to memory", "error", err)
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fallback
}

// Decode parses a stored payload and brings it to the current schema. Transient
// request state is reset since nothing can be in flight at startup.
func Decode(payload []byte, now time.Time, newID func() string) Snapshot {
	var env struct {
		User json.RawMessage `json:"user"`
		Chat json.RawMessage `json:"chat"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &env); err != nil {
			logger.L.Warn("persisted state is corrupt; starting empty", "error", err)
		}
	}

	snap := Snapshot{
		User: MigrateProfile(env.User),
		Chat: MigrateChat(env.Chat, now, newID),
	}
	snap.Chat.IsLoading = false
	if snap.Chat.ActiveSessionID != "" {
		if _, ok := snap.Chat.Session(snap.Chat.ActiveSessionID); !ok {
			snap.Chat.ActiveSessionID = ""
			if len(snap.Chat.Sessions) > 0 {
				snap.Chat.ActiveSessionID = snap.Chat.Sessions[0].ID
			}
		}
	}
	return snap
}

// Save writes snap to SQLite when available and always keeps an in-memory
// copy as fallback. Failures are logged, never returned.
func (a *Adapter) Save(ctx context.Context, snap Snapshot) {
	a.flush(ctx, func(latest *Snapshot) { *latest = snap })
}

// flush applies change to the latest snapshot and writes the result, all
// under one lock so concurrent store notifications cannot regress each other.
func (a *Adapter) flush(ctx context.Context, change func(latest *Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	change(&a.latest)

	payload, err := json.Marshal(a.latest)
	if err != nil {
		logger.L.Error("failed to encode state", "error", err)
		return
	}
	a.fallback = &record{version: CurrentVersion, payload: payload}

	if a.ready() {
		_, err := a.db.ExecContext(ctx, `INSERT INTO persisted_state (key, version, payload, updated_at) VALUES (?,?,?,?)
            ON CONFLICT(key) DO UPDATE SET version = excluded.version, payload = excluded.payload, updated_at = excluded.updated_at;`,
			a.key, CurrentVersion, string(payload), a.now())
		if err != nil {
			logger.L.Error("failed to store state in sqlite; kept in memory", "error", err)
		}
	}
}

// Attach makes persistence write-through: every change to either store is
// flushed together with the latest copy of the other.
func (a *Adapter) Attach(chats *chat.Store, users *profile.Store) (detach func()) {
	a.mu.Lock()
	a.latest = Snapshot{User: users.Snapshot(), Chat: chats.Snapshot()}
	a.mu.Unlock()

	stopChat := chats.Subscribe(func(st chat.State) {
		a.flush(context.Background(), func(latest *Snapshot) { latest.Chat = st })
	})
	stopUser := users.Subscribe(func(p profile.Profile) {
		a.flush(context.Background(), func(latest *Snapshot) { latest.User = p })
	})
	return func() {
		stopChat()
		stopUser()
	}
}

// Import replaces the stored state with an exported record, which may use any
// known schema including a browser storage export.
func (a *Adapter) Import(ctx context.Context, data []byte) (Snapshot, error) {
	if !json.Valid(data) {
		return Snapshot{}, errors.New("import: not a JSON document")
	}
	snap := Decode(data, a.now(), a.newID)
	a.Save(ctx, snap)
	return snap, nil
}

// Close releases the database handle.
func (a *Adapter) Close() error {
	if a.db == nil {
		return nil
	}
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close state db: %w", err)
	}
	return nil
}
