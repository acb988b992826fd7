package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/electrix/tracker/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	taskTimeout    = 30 * time.Second
)

// Task is one unit of background work. Tasks sharing a Key run in the order
// they were scheduled.
type Task struct {
	Key string
	Run func(ctx context.Context) error
}

// Dispatcher runs best-effort background tasks (storage cleanup) on a fixed
// set of workers, sharded by task key.
type Dispatcher struct {
	workers []chan Task
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan Task, numWorkers),
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan Task, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Schedule queues run on the worker owning key. It never blocks the request
// path: when that worker's buffer is full the task is dropped and logged.
func (d *Dispatcher) Schedule(key string, run func(ctx context.Context) error) {
	idx := d.shardIndex(key)
	select {
	case d.workers[idx] <- Task{Key: key, Run: run}:
		metrics.CleanupQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		metrics.CleanupTasksTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().Str("key", key).Int("worker_id", idx).Msg("cleanup queue full, task dropped")
	}
}

// shardIndex maps a key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan Task) {
	depth := metrics.CleanupQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-ch:
			if !ok {
				return
			}
			depth.Dec()
			d.run(ctx, id, task)
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, id int, task Task) {
	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	if err := task.Run(taskCtx); err != nil {
		metrics.CleanupTasksTotal.WithLabelValues("error").Inc()
		d.log.Error().Err(err).
			Str("key", task.Key).
			Int("worker_id", id).
			Msg("cleanup task failed")
		return
	}
	metrics.CleanupTasksTotal.WithLabelValues("ok").Inc()
}
