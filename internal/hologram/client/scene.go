package client

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"github.com/zeebo/blake3"
	"golang.org/x/text/encoding/japanese"
)

// Format is a model container format.
type Format string

// Supported model formats, in the order a model folder is searched.
const (
	FormatVRM  Format = "vrm"
	FormatGLB  Format = "glb"
	FormatGLTF Format = "gltf"
	FormatPMX  Format = "pmx"
	FormatPMD  Format = "pmd"
)

// ModelFormats lists the model extensions picked up from a folder.
var ModelFormats = []Format{FormatVRM, FormatGLB, FormatGLTF, FormatPMX, FormatPMD}

// MotionExt is the extension of standalone motion files.
const MotionExt = ".vmd"

// MotionFPS is the frame rate of VMD keyframe numbers.
const MotionFPS = 30

// ErrUnsupported is returned for files no loader understands.
var ErrUnsupported = errors.New("unsupported model format")

// Clip is one animation available for a scene.
type Clip struct {
	Name      string
	Source    string
	Keyframes int
	Duration  float64 // seconds
}

// Scene is a loaded model.
type Scene struct {
	Path   string
	Format Format
	Name   string
	Digest string
	Nodes  int
	Meshes int
	Clips  []Clip
}

// Renderable reports whether the scene has anything to draw.
func (s *Scene) Renderable() bool { return s != nil && s.Meshes > 0 }

// FormatOf maps a file name to its model format.
func FormatOf(name string) (Format, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, f := range ModelFormats {
		if string(f) == ext {
			return f, true
		}
	}
	return "", false
}

// LoadScene reads and parses the model at path.
func LoadScene(path string) (*Scene, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), ErrUnsupported)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	sum := blake3.Sum256(data)
	s := &Scene{Path: path, Format: format, Digest: hex.EncodeToString(sum[:])}

	switch format {
	case FormatGLTF:
		err = parseGLTF(s, data)
	case FormatGLB, FormatVRM:
		err = parseGLB(s, data)
	case FormatPMX:
		err = parsePMX(s, data)
	case FormatPMD:
		err = parsePMD(s, data)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return s, nil
}

type gltfDoc struct {
	Asset struct {
		Version string `json:"version"`
	} `json:"asset"`
	Scenes []struct {
		Name string `json:"name"`
	} `json:"scenes"`
	Nodes      []json.RawMessage `json:"nodes"`
	Meshes     []json.RawMessage `json:"meshes"`
	Animations []struct {
		Name     string            `json:"name"`
		Channels []json.RawMessage `json:"channels"`
		Samplers []struct {
			Input int `json:"input"`
		} `json:"samplers"`
	} `json:"animations"`
	Accessors []struct {
		Count int       `json:"count"`
		Max   []float64 `json:"max"`
	} `json:"accessors"`
}

func parseGLTF(s *Scene, data []byte) error {
	var doc gltfDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse gltf: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2") {
		return fmt.Errorf("gltf version %q: %w", doc.Asset.Version, ErrUnsupported)
	}
	if len(doc.Scenes) > 0 {
		s.Name = doc.Scenes[0].Name
	}
	s.Nodes = len(doc.Nodes)
	s.Meshes = len(doc.Meshes)

	for i, a := range doc.Animations {
		clip := Clip{Name: a.Name, Source: s.Path, Keyframes: len(a.Channels)}
		if clip.Name == "" {
			clip.Name = fmt.Sprintf("animation%d", i)
		}
		for _, sm := range a.Samplers {
			if sm.Input < 0 || sm.Input >= len(doc.Accessors) {
				return fmt.Errorf("animation %d: sampler input %d out of range", i, sm.Input)
			}
			if mx := doc.Accessors[sm.Input].Max; len(mx) > 0 {
				clip.Duration = math.Max(clip.Duration, mx[0])
			}
		}
		s.Clips = append(s.Clips, clip)
	}
	return nil
}

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbChunkJSON = 0x4E4F534A // "JSON"
)

func parseGLB(s *Scene, data []byte) error {
	if len(data) < 20 {
		return errors.New("glb: truncated header")
	}
	if binary.LittleEndian.Uint32(data[0:]) != glbMagic {
		return errors.New("glb: bad magic")
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != 2 {
		return fmt.Errorf("glb version %d: %w", v, ErrUnsupported)
	}
	if total := binary.LittleEndian.Uint32(data[8:]); int(total) > len(data) {
		return fmt.Errorf("glb: declared length %d exceeds file size %d", total, len(data))
	}
	chunkLen := int(binary.LittleEndian.Uint32(data[12:]))
	if binary.LittleEndian.Uint32(data[16:]) != glbChunkJSON {
		return errors.New("glb: first chunk is not JSON")
	}
	if 20+chunkLen > len(data) {
		return errors.New("glb: truncated JSON chunk")
	}
	return parseGLTF(s, bytes.TrimRight(data[20:20+chunkLen], " \x00"))
}

// reader is a little-endian cursor over a byte slice.
type reader struct {
	b   []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.b) {
		r.err = fmt.Errorf("truncated at offset %d", r.off)
		return nil
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out
}

func (r *reader) u8() int {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return int(b[0])
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

// sjis decodes a fixed-width, NUL padded Shift-JIS field.
func sjis(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	out, err := japanese.ShiftJIS.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func parsePMX(s *Scene, data []byte) error {
	r := &reader{b: data}
	if string(r.take(4)) != "PMX " {
		return errors.New("pmx: bad magic")
	}
	if v := r.f32(); v < 2.0 || v > 2.1 {
		return fmt.Errorf("pmx version %.1f: %w", v, ErrUnsupported)
	}
	globals := r.take(r.u8())
	if r.err != nil {
		return fmt.Errorf("pmx: %w", r.err)
	}
	utf8Text := len(globals) > 0 && globals[0] == 1

	name := r.take(int(r.u32()))
	if r.err != nil {
		return fmt.Errorf("pmx name: %w", r.err)
	}
	if utf8Text {
		s.Name = string(name)
	} else {
		u := make([]uint16, len(name)/2)
		for i := range u {
			u[i] = binary.LittleEndian.Uint16(name[i*2:])
		}
		s.Name = string(utf16.Decode(u))
	}
	s.Nodes = 1
	s.Meshes = 1
	return nil
}

func parsePMD(s *Scene, data []byte) error {
	r := &reader{b: data}
	if string(r.take(3)) != "Pmd" {
		return errors.New("pmd: bad magic")
	}
	if v := r.f32(); v != 1.0 {
		return fmt.Errorf("pmd version %.1f: %w", v, ErrUnsupported)
	}
	name := r.take(20)
	if r.err != nil {
		return fmt.Errorf("pmd: %w", r.err)
	}
	s.Name = sjis(name)
	s.Nodes = 1
	s.Meshes = 1
	return nil
}

const (
	vmdHeaderLen    = 30
	vmdBoneFrameLen = 111
	vmdMorphLen     = 23
)

// LoadMotion reads a VMD motion file as a clip.
func LoadMotion(path string) (Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, fmt.Errorf("read motion: %w", err)
	}
	clip, err := parseVMD(data)
	if err != nil {
		return Clip{}, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	clip.Source = path
	if clip.Name == "" {
		clip.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return clip, nil
}

func parseVMD(data []byte) (Clip, error) {
	r := &reader{b: data}
	header := string(r.take(vmdHeaderLen))
	nameLen := 20
	switch {
	case strings.HasPrefix(header, "Vocaloid Motion Data 0002"):
	case strings.HasPrefix(header, "Vocaloid Motion Data file"):
		nameLen = 10
	default:
		return Clip{}, errors.New("vmd: bad header")
	}
	r.take(nameLen)

	var clip Clip
	var last uint32

	bones := int(r.u32())
	for range bones {
		rec := r.take(vmdBoneFrameLen)
		if rec == nil {
			break
		}
		last = max(last, binary.LittleEndian.Uint32(rec[15:]))
	}
	clip.Keyframes = bones

	// Older files may end after the bone section.
	if r.err == nil && r.off < len(data) {
		morphs := int(r.u32())
		for range morphs {
			rec := r.take(vmdMorphLen)
			if rec == nil {
				break
			}
			last = max(last, binary.LittleEndian.Uint32(rec[15:]))
		}
		clip.Keyframes += morphs
	}
	if r.err != nil {
		return Clip{}, fmt.Errorf("vmd: %w", r.err)
	}

	clip.Duration = float64(last) / MotionFPS
	return clip, nil
}
