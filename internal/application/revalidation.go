package application

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/televault/televault/internal/adapters/config"
	"github.com/televault/televault/internal/adapters/metrics"
	"github.com/televault/televault/internal/domain"
	"github.com/televault/televault/pkg/contextkeys"
	"github.com/televault/televault/pkg/safego"
)

// FetchFunc re-runs the fetch path that produced a cache entry and
// returns the fresh serialized payload.
type FetchFunc func(ctx context.Context) (json.RawMessage, error)

type revalidationTask struct {
	category domain.Category
	key      string
	fetch    FetchFunc
}

// Revalidator runs the background half of stale-while-revalidate: a
// stale read returns immediately and a detached task re-fetches,
// writes through the cache and publishes a data-updated notification.
// The queue is bounded and enqueueing never blocks the caller; when
// the queue is full the task is dropped (the entry simply stays stale
// until the next read). Concurrent refreshes of the same key coalesce
// through singleflight. Once dispatched a task cannot be cancelled.
type Revalidator struct {
	cache       domain.CachePolicy
	publisher   domain.EventPublisher
	logger      domain.Logger
	cfgProvider config.Provider

	group singleflight.Group
	tasks chan revalidationTask

	startOnce sync.Once
}

// NewRevalidator creates the scheduler with the configured queue size
// and worker count.
func NewRevalidator(cfgProvider config.Provider, cache domain.CachePolicy, publisher domain.EventPublisher, logger domain.Logger) *Revalidator {
	cacheCfg := cfgProvider.Get().Cache
	queueSize := cacheCfg.RevalidateQueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Revalidator{
		cache:       cache,
		publisher:   publisher,
		logger:      logger,
		cfgProvider: cfgProvider,
		tasks:       make(chan revalidationTask, queueSize),
	}
}

// Start launches the worker pool. Workers exit when appCtx is done;
// in-flight tasks finish, queued ones are abandoned.
func (r *Revalidator) Start(appCtx context.Context) {
	r.startOnce.Do(func() {
		workers := r.cfgProvider.Get().Cache.RevalidateWorkerCount
		if workers <= 0 {
			workers = 4
		}
		for i := 0; i < workers; i++ {
			safego.Execute(appCtx, r.logger, "RevalidationWorker", func() {
				for {
					select {
					case task := <-r.tasks:
						metrics.RevalidationQueueDepth.Dec()
						r.run(appCtx, task)
					case <-appCtx.Done():
						return
					}
				}
			})
		}
		r.logger.Info(appCtx, "Revalidation scheduler started", "workers", workers, "queue_size", cap(r.tasks))
	})
}

// Enqueue schedules a background refresh for key. It never blocks:
// with a full queue the task is dropped and the stale entry is served
// until a later read re-triggers revalidation.
func (r *Revalidator) Enqueue(category domain.Category, key string, fetch FetchFunc) {
	task := revalidationTask{category: category, key: key, fetch: fetch}
	select {
	case r.tasks <- task:
		metrics.RevalidationQueueDepth.Inc()
	default:
		metrics.IncrementRevalidation("dropped")
		r.logger.Warn(context.Background(), "Revalidation queue full, dropping task", "key", key)
	}
}

// run executes one refresh. Failures are swallowed after logging: the
// caller already has usable (stale) data.
func (r *Revalidator) run(appCtx context.Context, task revalidationTask) {
	taskCtx := context.WithValue(appCtx, contextkeys.TaskIDKey, uuid.NewString())
	taskCtx = context.WithValue(taskCtx, contextkeys.CacheKeyKey, task.key)

	payload, err, shared := r.group.Do(task.key, func() (any, error) {
		fresh, ferr := task.fetch(taskCtx)
		if ferr != nil {
			return nil, ferr
		}
		r.cache.Put(taskCtx, task.category, task.key, fresh)
		return fresh, nil
	})
	if shared {
		metrics.IncrementRevalidation("deduped")
		return
	}
	if err != nil {
		metrics.IncrementRevalidation("failure")
		r.logger.Warn(taskCtx, "Background revalidation failed", "key", task.key, "error", err.Error())
		return
	}

	metrics.IncrementRevalidation("success")
	if perr := r.publisher.PublishDataUpdated(taskCtx, task.key, payload.(json.RawMessage)); perr != nil {
		r.logger.Warn(taskCtx, "Failed to publish data-updated notification", "key", task.key, "error", perr.Error())
	}
}
