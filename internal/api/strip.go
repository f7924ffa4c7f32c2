package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/ledsim/internal/api/models"
	"github.com/smazurov/ledsim/internal/metrics"
)

// registerStripRoutes registers the strip, stats and animation catalogue routes.
func (s *Server) registerStripRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-strip",
		Method:      http.MethodGet,
		Path:        "/api/strip",
		Summary:     "Strip",
		Description: "Get the last composed frame with the schedule and active animation counts",
		Tags:        []string{"strip"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, _ *struct{}) (*models.StripResponse, error) {
		if s.options.Strip == nil {
			return nil, huma.Error503ServiceUnavailable("No director attached")
		}

		cfg := s.options.Strip.Config()
		snap := s.options.Strip.Snapshot()
		colors := snap.Colors.Hex()
		if colors == nil {
			colors = []string{}
		}
		return &models.StripResponse{
			Body: models.StripData{
				LEDs:          cfg.LEDs,
				FrameDuration: cfg.FrameDuration.String(),
				FaultPolicy:   cfg.FaultPolicy.String(),
				Frame:         snap.Frame,
				Colors:        colors,
				Active:        snap.Active,
				Scheduled:     snap.Scheduled,
				Pending:       snap.Pending,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/api/stats",
		Summary:     "Stats",
		Description: "Get director counters since start",
		Tags:        []string{"strip"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.StatsResponse, error) {
		st := metrics.Stats()
		return &models.StatsResponse{
			Body: models.StatsData{
				Ticks:        st.Ticks,
				Spawned:      st.Spawned,
				Retired:      st.Retired,
				Faults:       st.Faults,
				SinkErrors:   st.SinkErrors,
				LastTickNsec: st.LastTick.Nanoseconds(),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-animation-kinds",
		Method:      http.MethodGet,
		Path:        "/api/animations",
		Summary:     "Animation kinds",
		Description: "List the animation kinds a show file can use",
		Tags:        []string{"strip"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.AnimationKindsResponse, error) {
		resp := &models.AnimationKindsResponse{}
		resp.Body.Kinds = []models.AnimationKind{}
		if s.options.Registry != nil {
			for _, k := range s.options.Registry.Kinds() {
				resp.Body.Kinds = append(resp.Body.Kinds, models.AnimationKind{
					Name:        k.Name,
					Description: k.Description,
				})
			}
		}
		return resp, nil
	})
}
