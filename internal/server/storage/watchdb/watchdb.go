// Package watchdb records which projectors are watched so they can be
// re-detected after a restart. Writes go through a single goroutine so the
// server tick never waits on disk.
package watchdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/atomic"
	_ "modernc.org/sqlite"

	"github.com/go-theft-craft/hologram/internal/hologram/structure"
	"github.com/go-theft-craft/hologram/internal/server/world"
)

const queueSize = 4096

type opKind int

const (
	opAdd opKind = iota + 1
	opRemove
	opFlush
)

type op struct {
	kind opKind
	c    structure.Cuboid
	at   time.Time
	done chan struct{}
}

// DB is the watched-projector store.
type DB struct {
	db  *sql.DB
	log *slog.Logger

	mu      sync.RWMutex // guards ch against Close
	ch      chan op
	wg      sync.WaitGroup
	once    sync.Once
	closed  bool
	dropped atomic.Int64
}

// Open opens or creates the database at path.
func Open(path string, log *slog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open watch db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	d := &DB{db: db, log: log, ch: make(chan op, queueSize)}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()
	return d, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("apply %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS projectors (
		dimension TEXT NOT NULL,
		min_x INTEGER NOT NULL,
		min_y INTEGER NOT NULL,
		min_z INTEGER NOT NULL,
		max_x INTEGER NOT NULL,
		max_y INTEGER NOT NULL,
		max_z INTEGER NOT NULL,
		added_at TEXT NOT NULL,
		PRIMARY KEY (dimension, min_x, min_y, min_z, max_x, max_y, max_z)
	);`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// WatchAdded queues c for insertion. It never blocks; when the queue is full
// the change is dropped and counted.
func (d *DB) WatchAdded(c structure.Cuboid) { d.enqueue(op{kind: opAdd, c: c, at: time.Now()}) }

// WatchRemoved queues c for deletion.
func (d *DB) WatchRemoved(c structure.Cuboid) { d.enqueue(op{kind: opRemove, c: c}) }

// Dropped returns how many changes were lost to a full queue.
func (d *DB) Dropped() int64 { return d.dropped.Load() }

func (d *DB) enqueue(o op) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.ch <- o:
	default:
		if d.dropped.Inc() == 1 {
			d.log.Warn("watch db queue full, dropping changes")
		}
	}
}

func (d *DB) loop() {
	for o := range d.ch {
		if o.kind == opFlush {
			close(o.done)
			continue
		}
		if err := d.apply(o); err != nil {
			d.log.Error("watch db write", "cuboid", o.c.String(), "error", err)
		}
	}
}

func (d *DB) apply(o op) error {
	c := o.c
	switch o.kind {
	case opAdd:
		_, err := d.db.Exec(`INSERT OR IGNORE INTO projectors
			(dimension, min_x, min_y, min_z, max_x, max_y, max_z, added_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.Dimension, c.Min.X, c.Min.Y, c.Min.Z, c.Max.X, c.Max.Y, c.Max.Z,
			o.at.UTC().Format(time.RFC3339))
		return err
	case opRemove:
		_, err := d.db.Exec(`DELETE FROM projectors WHERE dimension = ?
			AND min_x = ? AND min_y = ? AND min_z = ?
			AND max_x = ? AND max_y = ? AND max_z = ?`,
			c.Dimension, c.Min.X, c.Min.Y, c.Min.Z, c.Max.X, c.Max.Y, c.Max.Z)
		return err
	}
	return nil
}

// Flush waits until every change queued before the call is written.
func (d *DB) Flush(ctx context.Context) error {
	done := make(chan struct{})
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return nil
	}
	select {
	case d.ch <- op{kind: opFlush, done: done}:
		d.mu.RUnlock()
	case <-ctx.Done():
		d.mu.RUnlock()
		return fmt.Errorf("flush watch db: %w", ctx.Err())
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush watch db: %w", ctx.Err())
	}
}

// Load returns the cuboids recorded for dimension in insertion order.
func (d *DB) Load(ctx context.Context, dimension string) ([]structure.Cuboid, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT min_x, min_y, min_z, max_x, max_y, max_z
		FROM projectors WHERE dimension = ? ORDER BY added_at, min_x, min_y, min_z`, dimension)
	if err != nil {
		return nil, fmt.Errorf("query projectors: %w", err)
	}
	defer rows.Close()

	var out []structure.Cuboid
	for rows.Next() {
		c := structure.Cuboid{Dimension: dimension}
		if err := rows.Scan(&c.Min.X, &c.Min.Y, &c.Min.Z, &c.Max.X, &c.Max.Y, &c.Max.Z); err != nil {
			return nil, fmt.Errorf("scan projector: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read projectors: %w", err)
	}
	return out, nil
}

// Seeds returns one seed position per recorded cuboid.
func (d *DB) Seeds(ctx context.Context, dimension string) ([]world.BlockPos, error) {
	cuboids, err := d.Load(ctx, dimension)
	if err != nil {
		return nil, err
	}
	seeds := make([]world.BlockPos, len(cuboids))
	for i, c := range cuboids {
		seeds[i] = c.Min
	}
	return seeds, nil
}

// Close drains pending writes and closes the database.
func (d *DB) Close() error {
	var err error
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.ch)
		d.mu.Unlock()
		d.wg.Wait()
		err = d.db.Close()
	})
	return err
}
