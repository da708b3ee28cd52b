package conn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/go-theft-craft/hologram/internal/hologram/payload"
	"github.com/go-theft-craft/hologram/internal/hologram/structure"
	"github.com/go-theft-craft/hologram/internal/hologram/watch"
	"github.com/go-theft-craft/hologram/internal/server/config"
	"github.com/go-theft-craft/hologram/internal/server/holo"
	"github.com/go-theft-craft/hologram/internal/server/packet"
	"github.com/go-theft-craft/hologram/internal/server/player"
	"github.com/go-theft-craft/hologram/internal/server/tick"
	"github.com/go-theft-craft/hologram/internal/server/world"
	"github.com/go-theft-craft/hologram/internal/server/world/gen"
	"github.com/go-theft-craft/hologram/pkg/protocol"
)

const glass = 95 << 4

// packetRecorder captures everything the connection writes.
type packetRecorder struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (r *packetRecorder) Read([]byte) (int, error) { return 0, io.EOF }
func (r *packetRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

// drain decodes and clears the recorded packets, keeping those with id.
func (r *packetRecorder) drain(t *testing.T, id int32) [][]byte {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	var out [][]byte
	for r.buf.Len() > 0 {
		pid, data, err := protocol.ReadRawPacket(&r.buf)
		if err != nil {
			t.Fatalf("read recorded packet: %v", err)
		}
		if pid == id {
			out = append(out, data)
		}
	}
	return out
}

// chat returns the plain text of every recorded chat message.
func (r *packetRecorder) chat(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, data := range r.drain(t, packet.ChatMessage{}.PacketID()) {
		var msg packet.ChatMessage
		if err := protocol.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal chat: %v", err)
		}
		var comp component
		if err := json.Unmarshal([]byte(msg.JSONData), &comp); err != nil {
			t.Fatalf("chat json %q: %v", msg.JSONData, err)
		}
		out = append(out, plain(comp))
	}
	return out
}

func plain(c component) string {
	s := c.Text
	for _, e := range c.Extra {
		s += plain(e)
	}
	return s
}

type broadcasts struct {
	mu      sync.Mutex
	updates []payload.BusUpdate
}

func (b *broadcasts) BroadcastBusUpdate(u payload.BusUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, u)
}

func (b *broadcasts) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.updates)
}

type testEnv struct {
	c   *Connection
	rec *packetRecorder
	out *broadcasts
	w   *world.World
}

// newTestConn creates a play-state connection standing at (1.5, 5, -4.5)
// next to a 3x3x3 projector at 0..2, 10..12, 0..2. The tick loop runs but
// never steps.
func newTestConn(t *testing.T, username string, op bool) *testEnv {
	t.Helper()
	g, err := gen.NewFlatGenerator(nil)
	if err != nil {
		t.Fatal(err)
	}
	w := world.NewWorld(world.Overworld, g)
	for x := 0; x <= 2; x++ {
		for y := 10; y <= 12; y++ {
			for z := 0; z <= 2; z++ {
				w.SetBlock(x, y, z, glass)
			}
		}
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	out := &broadcasts{}
	reg := watch.NewRegistry(watch.DefaultConfig(), structure.NewIndex(structure.NewDetector(95, 0)), out, nil, log)
	loop := tick.NewLoop(1, func(int64) {})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	cfg := config.DefaultConfig()
	if op {
		cfg.Operators = []string{username}
	}
	rec := &packetRecorder{}
	players := player.NewManager(8)
	c := &Connection{
		rw:             rec,
		cfg:            cfg,
		log:            log,
		ctx:            ctx,
		cancel:         cancel,
		world:          w,
		holo:           holo.New(w, reg, loop, log),
		players:        players,
		state:          StatePlay,
		loadedChunks:   make(map[gen.ChunkPos]struct{}),
		keepAliveAcked: true,
	}
	c.self = player.NewPlayer(players.AllocateEntityID(), OfflineUUID(username), username,
		player.Position{X: 1.5, Y: 5, Z: -4.5}, c.writePacket)
	if op {
		c.self.SetPermissionLevel(player.LevelOperator)
	}
	players.Add(c.self)
	rec.drain(t, -1)
	return &testEnv{c: c, rec: rec, out: out, w: w}
}

func (e *testEnv) run(t *testing.T, line string) []string {
	t.Helper()
	if !e.c.handleCommand(line) {
		t.Fatalf("%q not handled as a command", line)
	}
	return e.rec.chat(t)
}

func assertContains(t *testing.T, msgs []string, want string) {
	t.Helper()
	for _, m := range msgs {
		if strings.Contains(m, want) {
			return
		}
	}
	t.Errorf("no message containing %q in %q", want, msgs)
}

func TestChatIsNotACommand(t *testing.T) {
	e := newTestConn(t, "Alice", false)
	if e.c.handleCommand("hello") {
		t.Error("plain chat treated as a command")
	}
}

func TestUnknownCommand(t *testing.T) {
	e := newTestConn(t, "Alice", false)
	assertContains(t, e.run(t, "/nope"), "Unknown command: /nope")
}

func TestHelpHidesOperatorCommands(t *testing.T) {
	e := newTestConn(t, "Alice", false)
	msgs := e.run(t, "/help")
	for _, m := range msgs {
		if strings.HasPrefix(m, "/signal") {
			t.Errorf("non-operator sees %q", m)
		}
	}
	assertContains(t, msgs, "/holo")

	op := newTestConn(t, "Root", true)
	assertContains(t, op.run(t, "/help"), "/signal")
}

func TestHoloUsage(t *testing.T) {
	e := newTestConn(t, "Alice", false)
	assertContains(t, e.run(t, "/holo"), "Usage: /holo detect|map|codes|setcodes|watch|unwatch|list")
	assertContains(t, e.run(t, "/holo bogus"), "Usage: /holo")
	assertContains(t, e.run(t, "/holo detect 1 2"), "Usage: /holo detect [<x> <y> <z>]")
}

func TestHoloDetect(t *testing.T) {
	e := newTestConn(t, "Alice", false)
	assertContains(t, e.run(t, "/holo detect 1 11 1"),
		"Detected cuboid: min=(0, 10, 0) max=(2, 12, 2) size=3x3x3 volume=27")
	assertContains(t, e.run(t, "/holo detect 5 4 5"), "The given position is not a projector block: (5, 4, 5)")
}

func TestHoloDetectByGaze(t *testing.T) {
	e := newTestConn(t, "Alice", false)
	// Looking along +Z from z=-4.5 at eye height 6.62 misses the box.
	assertContains(t, e.run(t, "/holo detect"), "Look at a projector block within 20 blocks")

	e.c.self.SetPosition(1.5, 9.5, -4.5, 0, 0, true)
	assertContains(t, e.run(t, "/holo detect"), "Detected cuboid: min=(0, 10, 0)")
}

func TestHoloWatchCodesUnwatch(t *testing.T) {
	e := newTestConn(t, "Alice", false)

	assertContains(t, e.run(t, "/holo codes 1 11 1"), "Use /holo watch first.")
	assertContains(t, e.run(t, "/holo watch 0 10 0"), "Watching cuboid: min=(0, 10, 0) max=(2, 12, 2) size=3x3x3 initialPower=0")
	if e.out.len() != 1 {
		t.Errorf("broadcasts after watch = %d, want 1", e.out.len())
	}
	assertContains(t, e.run(t, "/holo watch 2 12 2"), "Already watching cuboid")
	assertContains(t, e.run(t, "/holo codes 1 11 1"), "Codes: model=0 anim=0 ctrl=0")
	assertContains(t, e.run(t, "/holo list"), "Watched projectors (1):")
	assertContains(t, e.run(t, "/holo unwatch 1 11 1"), "Unwatched cuboid at position (1, 11, 1)")
	assertContains(t, e.run(t, "/holo unwatch 1 11 1"), "No watched cuboid matched the given position.")
	assertContains(t, e.run(t, "/holo list"), "No watched projectors.")
}

func TestHoloSetCodesRequiresOperator(t *testing.T) {
	e := newTestConn(t, "Alice", false)
	e.run(t, "/holo watch 0 10 0")
	assertContains(t, e.run(t, "/holo setcodes 1 2 3 0 10 0"), noPermission)

	op := newTestConn(t, "Root", true)
	op.run(t, "/holo watch 0 10 0")
	assertContains(t, op.run(t, "/holo setcodes 7 2 3 0 10 0"),
		"Set codes for cuboid at (0, 10, 0): model=7 anim=2 ctrl=3")
	assertContains(t, op.run(t, "/holo codes 0 10 0"), "Codes: model=7 anim=2 ctrl=3")
	if op.out.len() != 2 {
		t.Errorf("broadcasts = %d, want 2", op.out.len())
	}
}

func TestHoloSetCodesRanges(t *testing.T) {
	op := newTestConn(t, "Root", true)
	for _, line := range []string{
		"/holo setcodes 256 0 0 0 10 0",
		"/holo setcodes 0 0 16 0 10 0",
		"/holo setcodes -1 0 0 0 10 0",
		"/holo setcodes x 0 0",
	} {
		assertContains(t, op.run(t, line), "Usage: /holo setcodes <model 0..255> <anim 0..255> <ctrl 0..15>")
	}
}

func TestHoloMap(t *testing.T) {
	e := newTestConn(t, "Alice", false)
	msgs := e.run(t, "/holo map 0 10 0")
	assertContains(t, msgs, "Holo Port Map: min=(0, 10, 0) max=(2, 12, 2) size=3x3x3")
	assertContains(t, msgs, "Model bits (0..7):")
	assertContains(t, msgs, "MODEL[0]: (0, 10, 0)")
	assertContains(t, msgs, "scaleQ (north center): (1, 11, 0)")
	assertContains(t, msgs, "offZQ (west center): (0, 11, 1)")
}

func TestSignalCommand(t *testing.T) {
	e := newTestConn(t, "Alice", false)
	assertContains(t, e.run(t, "/signal 0 9 0 15"), noPermission)

	op := newTestConn(t, "Root", true)
	assertContains(t, op.run(t, "/signal 0 9 0 15"), "Signal at (0, 9, 0) set to 15.")
	if got := op.w.Signal(world.BlockPos{X: 0, Y: 9, Z: 0}); got != 15 {
		t.Errorf("signal = %d, want 15", got)
	}
	assertContains(t, op.run(t, "/signal 0 9 0 16"), "Usage: /signal")
	assertContains(t, op.run(t, "/signal ~ ~ ~ 3"), "Signal at (1, 5, -5) set to 3.")
}

func TestParseCoordF(t *testing.T) {
	tests := []struct {
		in   string
		base float64
		want float64
		err  bool
	}{
		{"12", 0, 12, false},
		{"~", 7, 7, false},
		{"~-2", 7, 5, false},
		{"~x", 7, 0, true},
		{"abc", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseCoordF(tt.in, tt.base)
			if (err != nil) != tt.err {
				t.Fatalf("err = %v, want error %v", err, tt.err)
			}
			if !tt.err && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPluginWatchRequest(t *testing.T) {
	e := newTestConn(t, "Alice", false)
	msg, err := payload.NewWatchRequest(world.BlockPos{X: 1, Y: 11, Z: 1}).Message()
	if err != nil {
		t.Fatal(err)
	}
	data, err := protocol.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.c.handlePluginMessage(data); err != nil {
		t.Fatal(err)
	}
	if e.out.len() != 1 {
		t.Errorf("broadcasts = %d, want 1", e.out.len())
	}
}

func TestBlockPlaceAndDig(t *testing.T) {
	e := newTestConn(t, "Alice", false)

	// Place stained glass (95:3) on top of the grass at (4, 4, 4).
	var body bytes.Buffer
	_ = protocol.WriteField(&body, "i16", int16(95))
	_ = protocol.WriteField(&body, "i8", int8(1))
	_ = protocol.WriteField(&body, "i16", int16(3))
	body.Write([]byte{0, 8, 16, 8})
	place, err := protocol.Marshal(&packet.BlockPlacement{
		Location: protocol.EncodePosition(4, 4, 4),
		Face:     1,
		Rest:     body.Bytes(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.c.handleBlockPlace(place); err != nil {
		t.Fatal(err)
	}
	if got := e.w.GetBlock(4, 5, 4); got != 95<<4|3 {
		t.Errorf("placed state = %d, want %d", got, 95<<4|3)
	}
	if n := len(e.rec.drain(t, packet.BlockChange{}.PacketID())); n != 1 {
		t.Errorf("block changes = %d, want 1", n)
	}

	dig, err := protocol.Marshal(&packet.PlayerDigging{Status: 0, Location: protocol.EncodePosition(4, 5, 4)})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.c.handleBlockDig(dig); err != nil {
		t.Fatal(err)
	}
	if got := e.w.GetBlock(4, 5, 4); got != 0 {
		t.Errorf("dug state = %d, want air", got)
	}
}

func TestReadHeldBlock(t *testing.T) {
	if _, _, ok, err := readHeldBlock([]byte{0xFF, 0xFF}); ok || err != nil {
		t.Errorf("empty hand: ok=%v err=%v", ok, err)
	}
	if _, _, _, err := readHeldBlock(nil); !errors.Is(err, io.EOF) {
		t.Errorf("short body err = %v, want EOF", err)
	}
}

func TestOfflineUUID(t *testing.T) {
	id := OfflineUUID("Notch")
	if id.Version() != 3 {
		t.Errorf("version = %d, want 3", id.Version())
	}
	if id.Variant() != uuid.RFC4122 {
		t.Errorf("variant = %v", id.Variant())
	}
	if id != OfflineUUID("Notch") || id == OfflineUUID("notch") {
		t.Error("offline UUIDs must be stable and case-sensitive")
	}
}
