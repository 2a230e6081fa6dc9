package events

import (
	"context"
	"sync"
	"time"
)

// ProgressTracker publishes learning:progress events at most once per
// Interval, regardless of how often Report is called, so a tight ingest
// loop calling Report per-row doesn't flood subscribers. Finish always
// publishes a final progress event unconditionally so the last count is
// never dropped.
type ProgressTracker struct {
	bus      *Bus
	entityID string
	interval time.Duration

	mu       sync.Mutex
	last     time.Time
	done     int
	total    int
	finished bool
}

// NewProgressTracker constructs a tracker that publishes under entityID
// on bus, throttled to interval.
func NewProgressTracker(bus *Bus, entityID string, total int, interval time.Duration) *ProgressTracker {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &ProgressTracker{bus: bus, entityID: entityID, total: total, interval: interval}
}

// Report records n additional completed units and publishes a
// learning:progress event if Interval has elapsed since the last
// publish.
func (p *ProgressTracker) Report(ctx context.Context, n int) {
	p.mu.Lock()
	p.done += n
	now := time.Now()
	shouldPublish := p.last.IsZero() || now.Sub(p.last) >= p.interval
	if shouldPublish {
		p.last = now
	}
	done, total := p.done, p.total
	p.mu.Unlock()

	if shouldPublish {
		p.publish(ctx, done, total)
	}
}

// Finish marks the tracker complete and publishes a final, unthrottled
// learning:progress event followed by learning:complete.
func (p *ProgressTracker) Finish(ctx context.Context) {
	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return
	}
	p.finished = true
	done, total := p.done, p.total
	p.mu.Unlock()

	p.publish(ctx, done, total)
	p.bus.Publish(ctx, Event{
		Type:      TypeLearningComplete,
		EntityID:  p.entityID,
		Payload:   map[string]any{"done": done, "total": total},
		Timestamp: time.Now(),
	})
}

func (p *ProgressTracker) publish(ctx context.Context, done, total int) {
	p.bus.Publish(ctx, Event{
		Type:      TypeLearningProgress,
		EntityID:  p.entityID,
		Payload:   map[string]any{"done": done, "total": total},
		Timestamp: time.Now(),
	})
}
