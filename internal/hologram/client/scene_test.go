package client

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const testGLTF = `{
  "asset": {"version": "2.0"},
  "scenes": [{"name": "cube"}],
  "nodes": [{"mesh": 0}, {}],
  "meshes": [{"primitives": []}],
  "accessors": [{"count": 2, "max": [1.5]}, {"count": 3, "max": [2.25]}],
  "animations": [
    {"name": "spin", "channels": [{}], "samplers": [{"input": 0}, {"input": 1}]},
    {"channels": [], "samplers": []}
  ]
}`

func glb(json string) []byte {
	for len(json)%4 != 0 {
		json += " "
	}
	var b bytes.Buffer
	le := func(v uint32) { _ = binary.Write(&b, binary.LittleEndian, v) }
	le(glbMagic)
	le(2)
	le(uint32(20 + len(json)))
	le(uint32(len(json)))
	le(glbChunkJSON)
	b.WriteString(json)
	return b.Bytes()
}

func vmd(boneFrames []uint32, morphFrames []uint32) []byte {
	var b bytes.Buffer
	header := make([]byte, vmdHeaderLen)
	copy(header, "Vocaloid Motion Data 0002")
	b.Write(header)
	b.Write(make([]byte, 20))

	le := func(v uint32) { _ = binary.Write(&b, binary.LittleEndian, v) }
	le(uint32(len(boneFrames)))
	for _, f := range boneFrames {
		rec := make([]byte, vmdBoneFrameLen)
		binary.LittleEndian.PutUint32(rec[15:], f)
		b.Write(rec)
	}
	le(uint32(len(morphFrames)))
	for _, f := range morphFrames {
		rec := make([]byte, vmdMorphLen)
		binary.LittleEndian.PutUint32(rec[15:], f)
		b.Write(rec)
	}
	return b.Bytes()
}

func pmx(name string) []byte {
	var b bytes.Buffer
	b.WriteString("PMX ")
	_ = binary.Write(&b, binary.LittleEndian, math.Float32bits(2.0))
	b.WriteByte(8)
	b.Write([]byte{1, 0, 4, 4, 4, 4, 4, 4}) // UTF-8 text
	_ = binary.Write(&b, binary.LittleEndian, uint32(len(name)))
	b.WriteString(name)
	return b.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadSceneGLTF(t *testing.T) {
	p := writeFile(t, t.TempDir(), "cube.gltf", []byte(testGLTF))
	s, err := LoadScene(p)
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	if s.Name != "cube" || s.Nodes != 2 || s.Meshes != 1 {
		t.Errorf("scene = %+v", s)
	}
	if len(s.Clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(s.Clips))
	}
	if s.Clips[0].Name != "spin" || s.Clips[0].Duration != 2.25 {
		t.Errorf("clip 0 = %+v", s.Clips[0])
	}
	if s.Clips[1].Name != "animation1" || s.Clips[1].Duration != 0 {
		t.Errorf("clip 1 = %+v", s.Clips[1])
	}
	if len(s.Digest) != 64 {
		t.Errorf("digest %q is not 32 hex bytes", s.Digest)
	}
}

func TestLoadSceneGLBMatchesGLTF(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"cube.glb", "avatar.vrm"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScene(writeFile(t, dir, name, glb(testGLTF)))
			if err != nil {
				t.Fatalf("LoadScene: %v", err)
			}
			if s.Meshes != 1 || len(s.Clips) != 2 {
				t.Errorf("scene = %+v", s)
			}
		})
	}
}

func TestLoadSceneDigestTracksContent(t *testing.T) {
	dir := t.TempDir()
	a, err := LoadScene(writeFile(t, dir, "a.gltf", []byte(testGLTF)))
	if err != nil {
		t.Fatal(err)
	}
	b, err := LoadScene(writeFile(t, dir, "b.gltf", []byte(testGLTF+"\n")))
	if err != nil {
		t.Fatal(err)
	}
	if a.Digest == b.Digest {
		t.Error("different files share a digest")
	}
}

func TestLoadScenePMX(t *testing.T) {
	s, err := LoadScene(writeFile(t, t.TempDir(), "m.pmx", pmx("miku")))
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	if s.Name != "miku" || !s.Renderable() {
		t.Errorf("scene = %+v", s)
	}
}

func TestLoadScenePMD(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("Pmd")
	_ = binary.Write(&b, binary.LittleEndian, math.Float32bits(1.0))
	name := make([]byte, 20)
	copy(name, "robot")
	b.Write(name)

	s, err := LoadScene(writeFile(t, t.TempDir(), "r.pmd", b.Bytes()))
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	if s.Name != "robot" {
		t.Errorf("name = %q", s.Name)
	}
}

func TestLoadSceneErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		file string
		data []byte
	}{
		{"unknown_ext", "model.obj", []byte("o cube")},
		{"bad_json", "m.gltf", []byte("{")},
		{"gltf_v1", "m.gltf", []byte(`{"asset":{"version":"1.0"}}`)},
		{"bad_sampler", "m.gltf", []byte(`{"asset":{"version":"2.0"},"animations":[{"samplers":[{"input":3}]}]}`)},
		{"glb_magic", "m.glb", make([]byte, 32)},
		{"glb_short", "m.glb", []byte("glTF")},
		{"pmx_magic", "m.pmx", []byte("PMD 1234")},
		{"pmx_truncated", "m.pmx", pmx("miku")[:20]},
		{"pmd_magic", "m.pmd", []byte("PMX ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadScene(writeFile(t, dir, tt.file, tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadScene(filepath.Join(dir, "missing.obj")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("unknown extension error = %v, want ErrUnsupported", err)
	}
}

func TestLoadMotion(t *testing.T) {
	p := writeFile(t, t.TempDir(), "dance.vmd", vmd([]uint32{0, 60}, []uint32{90}))
	c, err := LoadMotion(p)
	if err != nil {
		t.Fatalf("LoadMotion: %v", err)
	}
	if c.Name != "dance" || c.Keyframes != 3 || c.Duration != 3 {
		t.Errorf("clip = %+v", c)
	}

	bad := writeFile(t, t.TempDir(), "bad.vmd", []byte("not a motion"))
	if _, err := LoadMotion(bad); err == nil {
		t.Error("expected error for bad header")
	}
	short := vmd([]uint32{0, 60}, nil)
	short = short[:len(short)-10]
	if _, err := LoadMotion(writeFile(t, t.TempDir(), "short.vmd", short)); err == nil {
		t.Error("expected error for truncated frames")
	}
}
