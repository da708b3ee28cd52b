package conn

import (
	"context"
	"encoding/json"
	"slices"
	"testing"

	"github.com/go-theft-craft/hologram/internal/hologram/payload"
	"github.com/go-theft-craft/hologram/internal/server/packet"
	"github.com/go-theft-craft/hologram/internal/server/world"
	"github.com/go-theft-craft/hologram/pkg/protocol"
)

func TestHandshakeSelectsState(t *testing.T) {
	tests := []struct {
		name    string
		next    int32
		want    State
		wantErr bool
	}{
		{"status", 1, StateStatus, false},
		{"login", 2, StateLogin, false},
		{"invalid", 3, StateHandshake, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestConn(t, "alice", false)
			env.c.state = StateHandshake
			data, err := protocol.Marshal(&packet.Handshake{
				ProtocolVersion: packet.ProtocolVersion,
				ServerAddress:   "localhost",
				ServerPort:      25565,
				NextState:       tt.next,
			})
			if err != nil {
				t.Fatal(err)
			}
			err = env.c.handleHandshake(0x00, data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("handleHandshake error = %v, wantErr %v", err, tt.wantErr)
			}
			if env.c.state != tt.want {
				t.Errorf("state = %v, want %v", env.c.state, tt.want)
			}
		})
	}
}

func TestStatusAdvertisesHologram(t *testing.T) {
	env := newTestConn(t, "alice", false)
	env.c.state = StateStatus
	if _, _, err := env.c.holo.Watch(context.Background(), world.BlockPos{X: 0, Y: 10, Z: 0}); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	env.rec.drain(t, -1)

	if err := env.c.handleStatus(0x00, nil); err != nil {
		t.Fatalf("handleStatus: %v", err)
	}
	pkts := env.rec.drain(t, 0x00)
	if len(pkts) != 1 {
		t.Fatalf("status responses = %d, want 1", len(pkts))
	}
	var raw packet.StatusResponse
	if err := protocol.Unmarshal(pkts[0], &raw); err != nil {
		t.Fatal(err)
	}
	var resp statusResponse
	if err := json.Unmarshal([]byte(raw.Response), &resp); err != nil {
		t.Fatalf("decode status JSON: %v", err)
	}
	if resp.Version.Protocol != packet.ProtocolVersion {
		t.Errorf("protocol = %d", resp.Version.Protocol)
	}
	if resp.Hologram == nil {
		t.Fatal("status has no hologram section")
	}
	if resp.Hologram.Projectors != 1 {
		t.Errorf("projectors = %d, want 1", resp.Hologram.Projectors)
	}
	if !slices.Contains(resp.Hologram.Channels, payload.ChannelWatchRequest) {
		t.Errorf("channels = %v, missing %s", resp.Hologram.Channels, payload.ChannelWatchRequest)
	}
}

func TestStatusPingEchoesTime(t *testing.T) {
	env := newTestConn(t, "alice", false)
	env.c.state = StateStatus
	data, err := protocol.Marshal(&packet.StatusPing{Time: 1234567})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.c.handleStatus(0x01, data); err != nil {
		t.Fatalf("handleStatus: %v", err)
	}
	pkts := env.rec.drain(t, 0x01)
	if len(pkts) != 1 {
		t.Fatalf("pongs = %d, want 1", len(pkts))
	}
	var pong packet.StatusPong
	if err := protocol.Unmarshal(pkts[0], &pong); err != nil {
		t.Fatal(err)
	}
	if pong.Time != 1234567 {
		t.Errorf("pong time = %d", pong.Time)
	}
}
