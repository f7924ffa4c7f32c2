package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/ledsim/internal/events"
)

// registerSSERoutes registers the strip event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "strip-events",
		Method:      http.MethodGet,
		Path:        "/api/strip/events",
		Summary:     "Strip event stream",
		Description: "Composed frames and animation lifecycle events via Server-Sent Events. Frames are throttled by the frame publisher, so slow clients may miss some.",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"frame":              events.FrameRenderedEvent{},
		"animation-spawned":  events.AnimationSpawnedEvent{},
		"animation-finished": events.AnimationFinishedEvent{},
		"animation-retired":  events.AnimationRetiredEvent{},
		"animation-fault":    events.AnimationFaultEvent{},
		"show-loaded":        events.ShowLoadedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 64)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.FrameRenderedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.AnimationSpawnedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.AnimationFinishedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.AnimationRetiredEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.AnimationFaultEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ShowLoadedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Current strip first so clients can draw before the next frame event.
		if s.options.Strip != nil {
			snap := s.options.Strip.Snapshot()
			if snap.Colors != nil {
				if err := send.Data(events.FrameRenderedEvent{Frame: snap.Frame, Colors: snap.Colors.Hex()}); err != nil {
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
