package cache

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/southerncoder/tradecache/internal/config"
	"github.com/southerncoder/tradecache/internal/types"
)

// Prefetcher warms keys ahead of demand. Requests queue until Drain runs
// them; a key being generated is tracked in-flight so overlapping requests
// never invoke the generator twice.
type Prefetcher struct {
	config config.PrefetchConfig
	logger *slog.Logger

	mu       sync.Mutex
	queue    []types.PrefetchRequest
	inFlight map[string]struct{}

	group singleflight.Group

	contains func(ctx context.Context, key string) bool
	store    func(ctx context.Context, key string, value any, req types.PrefetchRequest) error
}

// NewPrefetcher wires the queue to the owning cache's lookup and store hooks.
func NewPrefetcher(
	cfg config.PrefetchConfig,
	contains func(ctx context.Context, key string) bool,
	store func(ctx context.Context, key string, value any, req types.PrefetchRequest) error,
	logger *slog.Logger,
) *Prefetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prefetcher{
		config:   cfg,
		logger:   logger.With("component", "prefetcher"),
		inFlight: make(map[string]struct{}),
		contains: contains,
		store:    store,
	}
}

// Enqueue adds a warming request. Keys already queued or in flight are
// dropped from the request; an empty remainder is discarded.
func (p *Prefetcher) Enqueue(req types.PrefetchRequest) int {
	if !p.config.Enabled || req.Generator == nil {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	queued := make(map[string]struct{})
	for _, r := range p.queue {
		for _, k := range r.Keys {
			queued[k] = struct{}{}
		}
	}

	keep := req.Keys[:0:0]
	for _, key := range req.Keys {
		if _, dup := queued[key]; dup {
			continue
		}
		if _, busy := p.inFlight[key]; busy {
			continue
		}
		keep = append(keep, key)
	}
	if len(keep) == 0 {
		return 0
	}

	req.Keys = keep
	p.queue = append(p.queue, req)

	// Highest priority drains first; stable so equal priorities keep
	// arrival order.
	sort.SliceStable(p.queue, func(i, j int) bool {
		return p.queue[i].Priority > p.queue[j].Priority
	})

	return len(keep)
}

// Drain synchronously works the queue down, at most batchSize keys per
// request round, maxConcurrent generators at a time. Returns how many keys
// were warmed (generated and stored) and how many were already cached.
func (p *Prefetcher) Drain(ctx context.Context) (warmed, alreadyCached int) {
	if !p.config.Enabled {
		return 0, 0
	}

	for {
		req, ok := p.nextBatch()
		if !ok {
			return warmed, alreadyCached
		}

		w, a := p.runBatch(ctx, req)
		warmed += w
		alreadyCached += a

		select {
		case <-ctx.Done():
			return warmed, alreadyCached
		default:
		}
	}
}

// QueueLen reports how many keys are waiting.
func (p *Prefetcher) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, req := range p.queue {
		n += len(req.Keys)
	}
	return n
}

// InFlightCount reports how many keys are being generated right now.
func (p *Prefetcher) InFlightCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inFlight)
}

// Reset drops the queue. In-flight generations are left to finish.
func (p *Prefetcher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = nil
}

// nextBatch pops up to batchSize keys from the head request and marks them
// in flight.
func (p *Prefetcher) nextBatch() (types.PrefetchRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		return types.PrefetchRequest{}, false
	}

	head := &p.queue[0]
	n := p.config.BatchSize
	if n <= 0 || n > len(head.Keys) {
		n = len(head.Keys)
	}

	batch := types.PrefetchRequest{
		Keys:      head.Keys[:n],
		Priority:  head.Priority,
		Generator: head.Generator,
		TTL:       head.TTL,
	}
	head.Keys = head.Keys[n:]
	if len(head.Keys) == 0 {
		p.queue = p.queue[1:]
	}

	for _, key := range batch.Keys {
		p.inFlight[key] = struct{}{}
	}
	return batch, true
}

func (p *Prefetcher) runBatch(ctx context.Context, req types.PrefetchRequest) (warmed, alreadyCached int) {
	defer func() {
		p.mu.Lock()
		for _, key := range req.Keys {
			delete(p.inFlight, key)
		}
		p.mu.Unlock()
	}()

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.MaxConcurrent)

	for _, key := range req.Keys {
		key := key
		g.Go(func() error {
			if p.contains(ctx, key) {
				mu.Lock()
				alreadyCached++
				mu.Unlock()
				return nil
			}

			value, err, _ := p.group.Do(key, func() (any, error) {
				return req.Generator(ctx, key)
			})
			if err != nil {
				p.logger.Warn("Prefetch generator failed", "key", key, "error", err)
				return nil
			}

			if err := p.store(ctx, key, value, req); err != nil {
				p.logger.Warn("Prefetch store failed", "key", key, "error", err)
				return nil
			}

			mu.Lock()
			warmed++
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return warmed, alreadyCached
}
