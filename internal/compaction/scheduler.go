// Package compaction is the background compaction scheduler (component
// K): a timer loop that periodically sweeps HNSW tombstones and
// zero-refcount chunks. The interval-wait/context-cancellation shape is
// grounded directly on the teacher's pkg/daemon.DaemonManager
// (waitInterval + per-daemon goroutine + WaitGroup shutdown); the
// single-flight tick guard is new, since the teacher's daemons are each
// their own goroutine and never re-enter themselves.
package compaction

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rs/zerolog"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/chunkstore"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/hnsw"
)

// Result summarizes one compaction tick.
type Result struct {
	TombstonesRemoved int
	ChunksCollected   int
	Duration          time.Duration
	Err               error
}

// Scheduler periodically compacts the HNSW index and garbage-collects
// the chunk store. Exactly one tick runs at a time: if a tick is still
// running when the timer fires again, the new fire is coalesced into the
// in-flight tick rather than queued or dropped silently.
type Scheduler struct {
	index  *hnsw.Index
	chunks *chunkstore.Store
	log    zerolog.Logger

	interval   time.Duration
	intervalMu sync.RWMutex

	group  singleflight.Group
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onTick func(Result)
}

// New constructs a Scheduler with the given default interval.
func New(index *hnsw.Index, chunks *chunkstore.Store, interval time.Duration, log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		index:    index,
		chunks:   chunks,
		log:      log,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnTick registers a callback invoked after every completed tick
// (including failed ones). Not safe to call after Start.
func (s *Scheduler) OnTick(fn func(Result)) { s.onTick = fn }

// SetInterval adjusts the tick interval for subsequent waits.
func (s *Scheduler) SetInterval(d time.Duration) {
	s.intervalMu.Lock()
	defer s.intervalMu.Unlock()
	s.interval = d
}

func (s *Scheduler) getInterval() time.Duration {
	s.intervalMu.RLock()
	defer s.intervalMu.RUnlock()
	return s.interval
}

// Start begins the background loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop cancels the loop and waits for the in-flight tick, if any, to
// finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	for s.waitInterval() {
		s.Tick()
	}
}

func (s *Scheduler) waitInterval() bool {
	timer := time.NewTimer(s.getInterval())
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Tick runs one compaction pass immediately. Concurrent callers
// (including the background loop firing mid-tick) share the single
// in-flight result via singleflight rather than running the sweep twice.
func (s *Scheduler) Tick() Result {
	v, _, _ := s.group.Do("tick", func() (any, error) {
		start := time.Now()
		res := Result{}
		res.TombstonesRemoved = s.index.Compact()
		res.ChunksCollected = s.chunks.GC()
		res.Duration = time.Since(start)

		s.log.Debug().
			Int("tombstones_removed", res.TombstonesRemoved).
			Int("chunks_collected", res.ChunksCollected).
			Dur("duration", res.Duration).
			Msg("compaction tick")

		return res, nil
	})
	res, _ := v.(Result)
	if s.onTick != nil {
		s.onTick(res)
	}
	return res
}
