package observerproto

// Version is the observer protocol version.
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeTick      = "TICK"
)

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to change what is streamed.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Chunks around the camera whose items are reported. 0 means the fast
	// area.
	ChunkRadius int `json:"chunk_radius"`
	MaxItems    int `json:"max_items"`

	Processes bool `json:"processes,omitempty"`
	Contents  bool `json:"contents,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Game            string      `json:"game"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	ShapesDigest    string      `json:"shapes_digest"`
	FireTypesDigest string      `json:"firetypes_digest"`
}

type WorldParams struct {
	TickRateHz int    `json:"tick_rate_hz"`
	ChunkSize  int    `json:"chunk_size"`
	FastRadius int    `json:"fast_radius"`
	MapChunks  int    `json:"map_chunks"`
	Seed       uint64 `json:"seed"`
}

// Server -> Client. Sent every tick.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Digest          string `json:"digest,omitempty"`

	Camera     [3]int32 `json:"camera"`
	Controlled uint16   `json:"controlled"`
	Target     uint16   `json:"target,omitempty"`

	Items     []ItemState    `json:"items"`
	Actors    []ActorState   `json:"actors,omitempty"`
	Processes []ProcessState `json:"processes,omitempty"`
	Ethereal  []uint16       `json:"ethereal,omitempty"`
	Freed     []uint16       `json:"freed,omitempty"`
}

type ItemState struct {
	ID       uint16   `json:"id"`
	Shape    uint32   `json:"shape"`
	Frame    uint32   `json:"frame"`
	Pos      [3]int32 `json:"pos"`
	Flags    uint16   `json:"flags"`
	Quality  uint16   `json:"quality,omitempty"`
	Parent   uint16   `json:"parent,omitempty"`
	Contents []uint16 `json:"contents,omitempty"`
}

type ActorState struct {
	ID     uint16 `json:"id"`
	HP     uint16 `json:"hp"`
	Mana   int16  `json:"mana"`
	Dir    uint8  `json:"dir"`
	Anim   uint32 `json:"anim"`
	Dead   bool   `json:"dead,omitempty"`
	Combat bool   `json:"combat,omitempty"`
}

type ProcessState struct {
	Pid       uint16   `json:"pid"`
	Class     string   `json:"class"`
	Item      uint16   `json:"item"`
	Type      uint16   `json:"type"`
	WaitingOn []uint16 `json:"waiting_on,omitempty"`
	Suspended bool     `json:"suspended,omitempty"`
}
