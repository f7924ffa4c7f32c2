package show

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/ledsim/internal/animation"
	"github.com/smazurov/ledsim/internal/animations"
	"github.com/smazurov/ledsim/internal/events"
)

// Scheduler accepts animations for a start frame. *director.Director
// satisfies it.
type Scheduler interface {
	AddAnimation(startFrame int, a animation.Animation) error
}

// Loader registers show entries with a Scheduler. The schedule only ever
// grows, so a reload registers just the entries appended after those
// already applied; edits to earlier entries and removals are logged and
// ignored.
type Loader struct {
	scheduler Scheduler
	registry  *animations.Registry
	bus       *events.Bus
	logger    *slog.Logger

	mu      sync.Mutex
	applied []Entry
}

// NewLoader returns a loader registering into scheduler. bus may be nil.
func NewLoader(scheduler Scheduler, registry *animations.Registry, bus *events.Bus, logger *slog.Logger) *Loader {
	return &Loader{
		scheduler: scheduler,
		registry:  registry,
		bus:       bus,
		logger:    logger,
	}
}

// LoadFile loads path and applies it.
func (l *Loader) LoadFile(path string) (int, error) {
	s, err := Load(path)
	if err != nil {
		return 0, err
	}
	return l.Apply(path, s)
}

// Apply registers the entries of s beyond the already applied prefix and
// returns how many were added. New entries are all built before any is
// registered, so a bad entry leaves the schedule untouched.
func (l *Loader) Apply(path string, s *Show) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	known := min(len(l.applied), len(s.Animations))
	for i := range known {
		if s.Animations[i] != l.applied[i] {
			l.logger.Warn("Show entry changed after registration, keeping the original",
				"path", path, "index", i, "kind", l.applied[i].Kind)
		}
	}
	if len(s.Animations) < len(l.applied) {
		l.logger.Warn("Show entries removed after registration, they stay scheduled",
			"path", path, "removed", len(l.applied)-len(s.Animations))
	}

	fresh := s.Animations[known:]
	built := make([]animation.Animation, len(fresh))
	for i, e := range fresh {
		a, err := e.Build(l.registry)
		if err != nil {
			return 0, fmt.Errorf("animation %d: %w", known+i, err)
		}
		built[i] = a
	}

	for i, a := range built {
		if err := l.scheduler.AddAnimation(fresh[i].StartFrame, a); err != nil {
			l.publish(path, i)
			return i, fmt.Errorf("animation %d: %w", known+i, err)
		}
		l.applied = append(l.applied, fresh[i])
	}

	if len(built) > 0 {
		l.logger.Info("Show applied", "path", path, "added", len(built), "total", len(l.applied))
	} else {
		l.logger.Debug("Show unchanged", "path", path, "total", len(l.applied))
	}
	l.publish(path, len(built))
	return len(built), nil
}

// Applied returns a copy of the registered entries.
func (l *Loader) Applied() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.applied...)
}

func (l *Loader) publish(path string, added int) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(events.ShowLoadedEvent{
		Path:      path,
		Added:     added,
		Total:     len(l.applied),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
