// Package ipc carries the daemon control protocol: newline-delimited
// JSON requests and responses over a unix socket.
package ipc

// Request is one command sent to the running daemon.
type Request struct {
	Command  string  `json:"command"`
	Name     string  `json:"name,omitempty"`
	Value    float32 `json:"value,omitempty"`
	Kind     string  `json:"kind,omitempty"`
	Language string  `json:"language,omitempty"`
	Text     string  `json:"text,omitempty"`

	Config *EndpointPayload `json:"config,omitempty"`
}

// Response is the daemon's reply. OK=false responses carry a
// human-readable Error string; no structured codes cross this boundary.
type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	Parameters []ParameterPayload `json:"parameters,omitempty"`
	Mappings   []MappingPayload   `json:"mappings,omitempty"`
	Config     *EndpointPayload   `json:"config,omitempty"`
	Results    []string           `json:"results,omitempty"`
	Removed    *bool              `json:"removed,omitempty"`
}

// ParameterPayload mirrors one avatar parameter across the socket.
type ParameterPayload struct {
	Name  string  `json:"name"`
	Kind  string  `json:"kind"`
	Value float32 `json:"value"`
}

// MappingPayload mirrors one command mapping across the socket.
type MappingPayload struct {
	CommandText   string  `json:"command_text"`
	ParameterName string  `json:"parameter_name"`
	Value         float32 `json:"value"`
}

// EndpointPayload mirrors the OSC endpoint configuration across the socket.
type EndpointPayload struct {
	TargetHost string `json:"target_host"`
	TargetPort int    `json:"target_port"`
	ListenHost string `json:"listen_host"`
	ListenPort int    `json:"listen_port"`
}
