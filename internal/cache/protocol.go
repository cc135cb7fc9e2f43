package cache

// Simple JSON protocol for cache daemon over a Unix domain socket.
// One request -> one response using json.Encoder/Decoder per connection.

const (
	OpGet    = "get"
	OpPut    = "put"
	OpDelete = "delete"
	OpSweep  = "sweep"
	OpStats  = "stats"
)

type Request struct {
	Op       string `json:"op"`
	Key      string `json:"key,omitempty"`
	Value    []byte `json:"value,omitempty"`
	TTLMilli int64  `json:"ttl_ms,omitempty"`
}

type Response struct {
	OK      bool   `json:"ok"`
	Value   []byte `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`
	Removed int    `json:"removed,omitempty"`
	Stats   *Stats `json:"stats,omitempty"`
}
