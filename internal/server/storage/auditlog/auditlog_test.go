package auditlog

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/go-theft-craft/hologram/internal/hologram/bus"
	"github.com/go-theft-craft/hologram/internal/hologram/payload"
	"github.com/go-theft-craft/hologram/internal/hologram/structure"
	"github.com/go-theft-craft/hologram/internal/server/world"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func testUpdate(tick int64) payload.BusUpdate {
	c := structure.Cuboid{
		Dimension: world.Overworld,
		Min:       world.BlockPos{X: -3, Y: 10, Z: 0},
		Max:       world.BlockPos{X: -1, Y: 12, Z: 2},
	}
	return payload.NewBusUpdate(c, bus.Codes{Model: 3, Ctrl: 2}, bus.Params{ScaleQ: 4}, tick)
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "bus")
	now := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if err := w.Record(testUpdate(1)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := w.Record(testUpdate(2)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := w.Record(testUpdate(3)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	first := readEntries(t, w.PathForHour("2026-03-01-10"))
	if len(first) != 2 {
		t.Fatalf("10h entries = %d, want 2", len(first))
	}
	e := first[0]
	if e.Min != [3]int{-3, 10, 0} || e.Model != 3 || e.Ctrl != 2 || e.Params[0] != 4 || e.Tick != 1 {
		t.Errorf("entry = %+v", e)
	}
	if second := readEntries(t, w.PathForHour("2026-03-01-11")); len(second) != 1 || second[0].Tick != 3 {
		t.Errorf("11h entries = %+v", second)
	}
}

func TestWriterAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := range 2 {
		w := NewWriter(dir, "bus")
		w.now = func() time.Time { return now }
		if err := w.Record(testUpdate(int64(i))); err != nil {
			t.Fatalf("Record: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if got := readEntries(t, NewWriter(dir, "bus").PathForHour("2026-03-01-10")); len(got) != 2 {
		t.Errorf("entries = %d, want 2", len(got))
	}
}
