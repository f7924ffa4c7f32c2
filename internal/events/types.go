package events

// Event type constants for kelindar/event.
const (
	TypeAnimationSpawned uint32 = iota + 1
	TypeAnimationFinished
	TypeAnimationRetired
	TypeAnimationFault
	TypeFrameRendered
	TypeShowLoaded
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// AnimationSpawnedEvent is published when a scheduled animation becomes active.
type AnimationSpawnedEvent struct {
	Name       string `json:"name" example:"basic" doc:"Animation name"`
	StartFrame int    `json:"start_frame" example:"50" doc:"Global frame the animation was scheduled for"`
	Active     int    `json:"active" example:"2" doc:"Active animations after spawning"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for AnimationSpawnedEvent.
func (e AnimationSpawnedEvent) Type() uint32 { return TypeAnimationSpawned }

// AnimationFinishedEvent is published when an animation produces its last
// frame. The animation keeps being blended until it is retired.
type AnimationFinishedEvent struct {
	Name      string `json:"name" example:"basic" doc:"Animation name"`
	Frames    int    `json:"frames" example:"191" doc:"Number of frames the animation produced"`
	Frame     int    `json:"frame" example:"241" doc:"Global frame at which the animation finished"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for AnimationFinishedEvent.
func (e AnimationFinishedEvent) Type() uint32 { return TypeAnimationFinished }

// AnimationRetiredEvent is published when a finished animation's last frame
// is folded into the persistent strip state.
type AnimationRetiredEvent struct {
	Name      string `json:"name" example:"basic" doc:"Animation name"`
	Frame     int    `json:"frame" example:"241" doc:"Global frame of retirement"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for AnimationRetiredEvent.
func (e AnimationRetiredEvent) Type() uint32 { return TypeAnimationRetired }

// AnimationFaultEvent is published when an animation breaks its frame contract.
type AnimationFaultEvent struct {
	Name      string `json:"name" example:"noise" doc:"Animation name"`
	Frame     int    `json:"frame" example:"12" doc:"Relative frame at which the fault occurred"`
	Error     string `json:"error" example:"frame has 99 pixels, strip has 100" doc:"Fault description"`
	Dropped   bool   `json:"dropped" example:"true" doc:"Whether the animation was dropped and the run continued"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for AnimationFaultEvent.
func (e AnimationFaultEvent) Type() uint32 { return TypeAnimationFault }

// FrameRenderedEvent carries one composed strip output.
type FrameRenderedEvent struct {
	Frame  int      `json:"frame" example:"120" doc:"Output sequence number"`
	Colors []string `json:"colors" doc:"Per-position colors as #rrggbb"`
}

// Type returns the event type identifier for FrameRenderedEvent.
func (e FrameRenderedEvent) Type() uint32 { return TypeFrameRendered }

// ShowLoadedEvent is published after a show file has been (re)applied.
type ShowLoadedEvent struct {
	Path      string `json:"path" example:"show.toml" doc:"Show file path"`
	Added     int    `json:"added" example:"3" doc:"Animations registered by this load"`
	Total     int    `json:"total" example:"7" doc:"Animations registered from this show so far"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ShowLoadedEvent.
func (e ShowLoadedEvent) Type() uint32 { return TypeShowLoaded }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"director" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
