package bus

import (
	"reflect"
	"testing"

	"github.com/go-theft-craft/hologram/internal/hologram/structure"
	"github.com/go-theft-craft/hologram/internal/server/world"
)

// powerMap is a PowerSource where unlisted positions receive nothing.
type powerMap map[world.BlockPos]int

func (m powerMap) ReceivedPower(pos world.BlockPos) int { return m[pos] }

func box(minX, minY, minZ, maxX, maxY, maxZ int) structure.Cuboid {
	return structure.Cuboid{
		Dimension: world.Overworld,
		Min:       world.BlockPos{X: minX, Y: minY, Z: minZ},
		Max:       world.BlockPos{X: maxX, Y: maxY, Z: maxZ},
	}
}

func TestEdgePortsOrderAndDedup(t *testing.T) {
	c := box(0, 0, 0, 1, 2, 1)
	got := EdgePorts(c.Min, c.Max)
	want := []world.BlockPos{
		// bottom N, S (W and E lines fully covered by corners)
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1},
		// top N, S
		{X: 0, Y: 2, Z: 0}, {X: 1, Y: 2, Z: 0},
		{X: 0, Y: 2, Z: 1}, {X: 1, Y: 2, Z: 1},
		// vertical NW, NE, SW, SE interiors
		{X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 0},
		{X: 0, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EdgePorts =\n %v\nwant\n %v", got, want)
	}
	if again := EdgePorts(c.Min, c.Max); !reflect.DeepEqual(again, got) {
		t.Error("EdgePorts is not deterministic")
	}
}

func TestEdgePortsCounts(t *testing.T) {
	tests := []struct {
		name string
		c    structure.Cuboid
		want int
	}{
		{"single_block", box(0, 0, 0, 0, 0, 0), 1},
		{"flat_3x1x3", box(0, 0, 0, 2, 0, 2), 8},
		{"two_high", box(0, 0, 0, 2, 1, 2), 16},
		{"5x5x5", box(0, 64, 0, 4, 68, 4), 16*2 + 4*3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(EdgePorts(tt.c.Min, tt.c.Max)); got != tt.want {
				t.Errorf("len(EdgePorts) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReadBus(t *testing.T) {
	tests := []struct {
		name      string
		strengths []int
		start     int
		maxBits   int
		want      int
		next      int
	}{
		{"no_ports", nil, 0, 8, 0, 0},
		{"past_end", []int{5, 5}, 4, 8, 0, 4},
		{"analog_single", []int{0, 11}, 1, 8, 11, 2},
		{"analog_clamped", []int{42}, 0, 8, 15, 1},
		{"analog_negative", []int{-3}, 0, 4, 0, 1},
		{"bits", []int{1, 0, 15, 0, 7}, 0, 8, 0b10101, 5},
		{"bits_capped", []int{1, 1, 1, 1, 1, 1}, 0, 4, 0b1111, 4},
		{"offset_run", []int{0, 0, 3, 0, 1}, 2, 8, 0b101, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, next := ReadBus(tt.strengths, tt.start, tt.maxBits)
			if got != tt.want || next != tt.next {
				t.Errorf("ReadBus = (%d, %d), want (%d, %d)", got, next, tt.want, tt.next)
			}
		})
	}
}

func TestEncodeFieldsSplit(t *testing.T) {
	c := box(0, 64, 0, 4, 68, 4)
	ports := EdgePorts(c.Min, c.Max)
	power := powerMap{
		ports[0]:  15, // model bit 0
		ports[7]:  1,  // model bit 7
		ports[9]:  4,  // anim bit 1
		ports[16]: 2,  // ctrl bit 0
		ports[19]: 9,  // ctrl bit 3
		ports[20]: 15, // unused
	}
	got := Encode(power, c)
	want := Codes{Model: 0x81, Anim: 0x02, Ctrl: 0x9}
	if got != want {
		t.Errorf("Encode = %+v, want %+v", got, want)
	}
}

func TestEncodeAnalogFallbackOnTinyCuboid(t *testing.T) {
	// A 1x1x9 bar has 9 ports ordered z0, z8, z1..z7: 8 model bits then
	// one analog anim port at z7.
	c := box(0, 0, 0, 0, 0, 8)
	power := powerMap{{X: 0, Y: 0, Z: 7}: 12}
	got := Encode(power, c)
	if got != (Codes{Anim: 12}) {
		t.Errorf("Encode = %+v, want anim 12", got)
	}
}

func TestReadAllZeroInput(t *testing.T) {
	s := Read(powerMap{}, box(0, 64, 0, 4, 68, 4))
	if s != (Sample{}) {
		t.Errorf("Read of unpowered cuboid = %+v, want zero", s)
	}
}

func TestReadFaceBusFallback(t *testing.T) {
	c := box(0, 0, 0, 4, 4, 4)

	// The north param port is on a face but on no bus port.
	s := Read(powerMap{{X: 2, Y: 2, Z: 0}: 6}, c)
	if s.Power != 6 || s.ScaleQ != 6 {
		t.Fatalf("Power/ScaleQ = %d/%d, want 6/6", s.Power, s.ScaleQ)
	}
	if !s.Codes.IsZero() {
		t.Errorf("Codes = %+v, want zero when face ports are dark", s.Codes)
	}

	// The NE vertical edge at the middle layer lies past the 20 ports the
	// edge bus reads, so only the face bus decodes it.
	s = Read(powerMap{{X: 4, Y: 2, Z: 0}: 15}, c)
	if s.Codes != (Codes{Ctrl: 0b10}) {
		t.Errorf("fallback Codes = %+v, want ctrl 0b10", s.Codes)
	}
}

func TestSamplePowerEarlyExitAndStride(t *testing.T) {
	c := box(0, 0, 0, 63, 1, 1)
	if got := SamplePower(powerMap{{X: 61, Y: 1, Z: 1}: 4}, c); got != 0 {
		t.Errorf("odd X skipped by stride 2, got %d", got)
	}
	if got := SamplePower(powerMap{{X: 10, Y: 0, Z: 0}: 9, {X: 20, Y: 1, Z: 1}: 15}, c); got != 15 {
		t.Errorf("SamplePower = %d, want 15", got)
	}
}

func TestReadParams(t *testing.T) {
	c := box(0, 0, 0, 4, 4, 4)
	power := powerMap{
		{X: 2, Y: 2, Z: 0}: 5,  // north
		{X: 4, Y: 2, Z: 2}: 6,  // east
		{X: 2, Y: 2, Z: 4}: 7,  // south
		{X: 0, Y: 2, Z: 2}: 20, // west, clamped
	}
	got := ReadParams(power, c)
	want := Params{ScaleQ: 5, OffXQ: 6, OffYQ: 7, OffZQ: 15}
	if got != want {
		t.Errorf("ReadParams = %+v, want %+v", got, want)
	}
}

func TestCtrlFlags(t *testing.T) {
	tests := []struct {
		ctrl                  int
		worldLit, noDepth, nc bool
	}{
		{0, false, false, false},
		{1, false, true, false},
		{2, false, false, false},
		{3, true, false, false},
		{4, false, false, true},
		{7, true, false, true},
	}
	for _, tt := range tests {
		if WorldLit(tt.ctrl) != tt.worldLit || IgnoresDepth(tt.ctrl) != tt.noDepth || NoCull(tt.ctrl) != tt.nc {
			t.Errorf("ctrl %d: lit=%v depth=%v cull=%v", tt.ctrl, WorldLit(tt.ctrl), IgnoresDepth(tt.ctrl), NoCull(tt.ctrl))
		}
	}
}

func TestCodesClamp(t *testing.T) {
	got := Codes{Model: 300, Anim: -1, Ctrl: 16}.Clamp()
	if got != (Codes{Model: 255, Anim: 0, Ctrl: 15}) {
		t.Errorf("Clamp = %+v", got)
	}
}

func TestPortMap(t *testing.T) {
	c := box(0, 64, 0, 4, 68, 4)
	ports := PortMap(c)
	if len(ports) != 8+8+4+4 {
		t.Fatalf("len(PortMap) = %d, want 24", len(ports))
	}
	edges := EdgePorts(c.Min, c.Max)
	if ports[8].Field != "anim" || ports[8].Label != "bit0" || ports[8].Pos != edges[8] {
		t.Errorf("ports[8] = %+v", ports[8])
	}
	if last := ports[len(ports)-1]; last.Field != "param" || last.Label != "offZ" {
		t.Errorf("last port = %+v", last)
	}
}
