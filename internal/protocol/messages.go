package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	WorldParams     WorldParams `json:"world_params"`
	Materials       PaletteRef  `json:"materials"`
}

type WorldParams struct {
	TickRateHz int   `json:"tick_rate_hz"`
	ChunkSize  int   `json:"chunk_size"`
	Seed       int64 `json:"seed"`
	FloorY     int   `json:"floor_y"`
}

type PaletteRef struct {
	Digest  string   `json:"digest"`
	Count   int      `json:"count"`
	Palette []string `json:"palette"`
}

// CHUNKS (server -> client): dirty chunks since the last frame. Cells is the
// RLE-encoded material plane in row-major order.
type ChunkBatchMsg struct {
	Type   string       `json:"type"`
	Tick   uint64       `json:"tick"`
	Chunks []ChunkDelta `json:"chunks"`
}

type ChunkDelta struct {
	CX    int    `json:"cx"`
	CY    int    `json:"cy"`
	Cells string `json:"cells"`
}

// ACT (client -> server): edit ops queued for the next tick boundary.
type ActMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Ops             []EditOp `json:"ops"`
}

type EditOp struct {
	Op       string `json:"op"` // "set_pixel" | "add_heat"
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Material string `json:"material,omitempty"`
	Amount   int    `json:"amount,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
