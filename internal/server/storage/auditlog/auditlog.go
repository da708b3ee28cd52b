// Package auditlog appends every projector broadcast to hourly
// zstd-compressed JSONL files.
package auditlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/go-theft-craft/hologram/internal/hologram/payload"
)

// Entry is one logged broadcast.
type Entry struct {
	Time      time.Time `json:"time"`
	Dimension string    `json:"dimension"`
	Min       [3]int    `json:"min"`
	Max       [3]int    `json:"max"`
	Model     int32     `json:"model"`
	Anim      int32     `json:"anim"`
	Ctrl      int32     `json:"ctrl"`
	Params    [4]int32  `json:"params"`
	Tick      int64     `json:"tick"`
}

// EntryFor converts a broadcast update into a log entry.
func EntryFor(u payload.BusUpdate, at time.Time) Entry {
	lo, hi := u.MinPos(), u.MaxPos()
	return Entry{
		Time:      at.UTC(),
		Dimension: u.Dimension,
		Min:       [3]int{lo.X, lo.Y, lo.Z},
		Max:       [3]int{hi.X, hi.Y, hi.Z},
		Model:     u.Model,
		Anim:      u.Anim,
		Ctrl:      u.Ctrl,
		Params:    [4]int32{u.ScaleQ, u.OffXQ, u.OffYQ, u.OffZQ},
		Tick:      u.Tick,
	}
}

// Writer rotates to a new file every UTC hour. Each process appends its own
// zstd frame, so files stay readable after restarts.
type Writer struct {
	dir    string
	prefix string
	now    func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewWriter returns a writer creating dir/prefix-YYYY-MM-DD-HH.jsonl.zst.
func NewWriter(dir, prefix string) *Writer {
	return &Writer{dir: dir, prefix: prefix, now: time.Now}
}

// Write appends v as one JSON line.
func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	if _, err := w.w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return w.w.Flush()
}

// Record logs a broadcast update.
func (w *Writer) Record(u payload.BusUpdate) error {
	return w.Write(EntryFor(u, w.now()))
}

// PathForHour returns the file used for hour (formatted 2006-01-02-15).
func (w *Writer) PathForHour(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(w.PathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

// Close flushes and closes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}
