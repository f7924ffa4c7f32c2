// Package models holds the request and response bodies of the HTTP API.
package models

// Health models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2026-01-15 14:30" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go compiler version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Strip models
type StripData struct {
	LEDs          int      `json:"leds" example:"100" doc:"Number of LEDs on the strip"`
	FrameDuration string   `json:"frame_duration" example:"5ms" doc:"Wall-clock time between ticks"`
	FaultPolicy   string   `json:"fault_policy" example:"abort" doc:"How animation faults are handled"`
	Frame         int      `json:"frame" example:"1200" doc:"Frames emitted so far"`
	Colors        []string `json:"colors" doc:"Last emitted color per position as #rrggbb, empty before the first frame"`
	Active        int      `json:"active" example:"2" doc:"Animations currently composited"`
	Scheduled     int      `json:"scheduled" example:"5" doc:"Animations registered in the schedule"`
	Pending       int      `json:"pending" example:"3" doc:"Scheduled animations not yet spawned"`
}

type StripResponse struct {
	Body StripData
}

// Stats models
type StatsData struct {
	Ticks        uint64 `json:"ticks" example:"1200" doc:"Ticks emitted"`
	Spawned      uint64 `json:"spawned" example:"4" doc:"Animations spawned"`
	Retired      uint64 `json:"retired" example:"2" doc:"Animations retired into the strip state"`
	Faults       uint64 `json:"faults" example:"0" doc:"Animation faults"`
	SinkErrors   uint64 `json:"sink_errors" example:"0" doc:"Failed display writes"`
	LastTickNsec int64  `json:"last_tick_ns" example:"41000" doc:"Duration of the last tick in nanoseconds"`
}

type StatsResponse struct {
	Body StatsData
}

// Animation catalogue models
type AnimationKind struct {
	Name        string `json:"name" example:"comet" doc:"Kind name used in show files"`
	Description string `json:"description" doc:"What the animation draws"`
}

type AnimationKindsResponse struct {
	Body struct {
		Kinds []AnimationKind `json:"kinds" doc:"Registered animation kinds"`
	}
}
