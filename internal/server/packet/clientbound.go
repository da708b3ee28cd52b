package packet

// GameMode constants.
const (
	GameModeSurvival  uint8 = 0
	GameModeCreative  uint8 = 1
	GameModeAdventure uint8 = 2
	GameModeSpectator uint8 = 3
)

// DimensionOverworld is the JoinGame dimension byte for the overworld.
const DimensionOverworld int8 = 0

// DifficultyEasy is the only difficulty the server announces.
const DifficultyEasy uint8 = 1

// PlayerAbility flag bits.
const (
	AbilityInvulnerable int8 = 0x01
	AbilityFlying       int8 = 0x02
	AbilityAllowFlight  int8 = 0x04
	AbilityCreativeMode int8 = 0x08
)

// Chat positions.
const (
	ChatPositionChat   int8 = 0
	ChatPositionSystem int8 = 1
)

// KeepAlive is a heartbeat the client must echo (clientbound 0x00).
type KeepAlive struct {
	KeepAliveID int32 `mc:"varint"`
}

func (KeepAlive) PacketID() int32 { return 0x00 }

// JoinGame places the player in the world (clientbound 0x01).
type JoinGame struct {
	EntityID         int32  `mc:"i32"`
	GameMode         uint8  `mc:"u8"`
	Dimension        int8   `mc:"i8"`
	Difficulty       uint8  `mc:"u8"`
	MaxPlayers       uint8  `mc:"u8"`
	LevelType        string `mc:"string"`
	ReducedDebugInfo bool   `mc:"bool"`
}

func (JoinGame) PacketID() int32 { return 0x01 }

// ChatMessage carries a JSON chat component (clientbound 0x02).
type ChatMessage struct {
	JSONData string `mc:"string"`
	Position int8   `mc:"i8"`
}

func (ChatMessage) PacketID() int32 { return 0x02 }

// SpawnPosition sets the compass target (clientbound 0x05).
type SpawnPosition struct {
	Location int64 `mc:"position"`
}

func (SpawnPosition) PacketID() int32 { return 0x05 }

// PlayerPositionAndLook moves the client (clientbound 0x08).
type PlayerPositionAndLook struct {
	X     float64 `mc:"f64"`
	Y     float64 `mc:"f64"`
	Z     float64 `mc:"f64"`
	Yaw   float32 `mc:"f32"`
	Pitch float32 `mc:"f32"`
	Flags int8    `mc:"i8"`
}

func (PlayerPositionAndLook) PacketID() int32 { return 0x08 }

// SpawnPlayer shows another player entity (clientbound 0x0C).
// Data holds the pre-encoded body including metadata.
type SpawnPlayer struct {
	Data []byte `mc:"rest"`
}

func (SpawnPlayer) PacketID() int32 { return 0x0C }

// DestroyEntities removes entities from the client (clientbound 0x13).
type DestroyEntities struct {
	Data []byte `mc:"rest"`
}

func (DestroyEntities) PacketID() int32 { return 0x13 }

// EntityTeleport sets an absolute entity position (clientbound 0x18).
type EntityTeleport struct {
	EntityID int32 `mc:"varint"`
	X        int32 `mc:"i32"`
	Y        int32 `mc:"i32"`
	Z        int32 `mc:"i32"`
	Yaw      int8  `mc:"i8"`
	Pitch    int8  `mc:"i8"`
	OnGround bool  `mc:"bool"`
}

func (EntityTeleport) PacketID() int32 { return 0x18 }

// EntityHeadLook rotates an entity's head (clientbound 0x19).
type EntityHeadLook struct {
	EntityID int32 `mc:"varint"`
	HeadYaw  int8  `mc:"i8"`
}

func (EntityHeadLook) PacketID() int32 { return 0x19 }

// MapChunk sends one chunk column (clientbound 0x21).
type MapChunk struct {
	X         int32  `mc:"i32"`
	Z         int32  `mc:"i32"`
	GroundUp  bool   `mc:"bool"`
	BitMap    uint16 `mc:"u16"`
	ChunkData []byte `mc:"bytearray"`
}

func (MapChunk) PacketID() int32 { return 0x21 }

// BlockChange updates a single block (clientbound 0x23).
type BlockChange struct {
	Location int64 `mc:"position"`
	BlockID  int32 `mc:"varint"`
}

func (BlockChange) PacketID() int32 { return 0x23 }

// PlayerListItem updates the tab list (clientbound 0x38).
type PlayerListItem struct {
	Data []byte `mc:"rest"`
}

func (PlayerListItem) PacketID() int32 { return 0x38 }

// PlayerAbilities sets flight and creative flags (clientbound 0x39).
type PlayerAbilities struct {
	Flags        int8    `mc:"i8"`
	FlyingSpeed  float32 `mc:"f32"`
	WalkingSpeed float32 `mc:"f32"`
}

func (PlayerAbilities) PacketID() int32 { return 0x39 }

// TabCompleteResponse lists completion matches (clientbound 0x3A).
type TabCompleteResponse struct {
	Data []byte `mc:"rest"`
}

func (TabCompleteResponse) PacketID() int32 { return 0x3A }

// PluginMessage carries a custom channel payload (clientbound 0x3F).
type PluginMessage struct {
	Channel string `mc:"string"`
	Data    []byte `mc:"rest"`
}

func (PluginMessage) PacketID() int32 { return 0x3F }

// Disconnect kicks the client during play (clientbound 0x40).
type Disconnect struct {
	Reason string `mc:"string"`
}

func (Disconnect) PacketID() int32 { return 0x40 }
