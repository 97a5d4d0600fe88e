package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AsyncOptions configures batching and buffering for the findings writer.
type AsyncOptions struct {
	// BufferSize is the number of findings queued in memory. When the
	// buffer is full new findings are dropped and counted, never blocked
	// on: detection must not become an availability risk.
	BufferSize int
	// BatchSize is the target findings per storage write.
	BatchSize int
	// BatchTimeout bounds how long a partial batch waits before flushing.
	BatchTimeout time.Duration
	// StorageTimeout bounds each storage write.
	StorageTimeout time.Duration
}

// AsyncWriter batches findings into bulk storage writes on a background
// goroutine. Implements Sink.
type AsyncWriter struct {
	storage Storage
	metrics *Metrics
	log     *slog.Logger
	ch      chan Finding
	done    chan struct{}
	wg      sync.WaitGroup
	options AsyncOptions

	closeOnce sync.Once
}

// NewAsyncWriter creates the writer and starts its background goroutine.
// The returned close function flushes pending findings and stops the
// goroutine; it honors the passed context's deadline.
func NewAsyncWriter(storage Storage, opts AsyncOptions) (*AsyncWriter, func(context.Context) error, error) {
	if storage == nil {
		return nil, nil, ErrStorageNil
	}

	if opts.BufferSize == 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = 100
	}
	if opts.BatchTimeout == 0 {
		opts.BatchTimeout = 100 * time.Millisecond
	}
	if opts.StorageTimeout == 0 {
		opts.StorageTimeout = 5 * time.Second
	}

	aw := &AsyncWriter{
		storage: storage,
		log:     slog.Default(),
		ch:      make(chan Finding, opts.BufferSize),
		done:    make(chan struct{}),
		options: opts,
	}

	aw.wg.Add(1)
	go aw.worker()

	return aw, aw.Close, nil
}

// WithAsyncMetrics attaches counters for dropped findings.
func (aw *AsyncWriter) WithAsyncMetrics(metrics *Metrics) *AsyncWriter {
	aw.metrics = metrics
	return aw
}

// Submit implements Sink. Never blocks: findings that do not fit the buffer
// are dropped and counted.
func (aw *AsyncWriter) Submit(finding Finding) {
	select {
	case <-aw.done:
		aw.metrics.incDropped()
	default:
		select {
		case aw.ch <- finding:
		default:
			aw.metrics.incDropped()
			aw.log.Warn("audit finding dropped, buffer full",
				slog.String("table", finding.Table),
				slog.String("reason", string(finding.Reason)))
		}
	}
}

// Close flushes buffered findings and stops the worker.
func (aw *AsyncWriter) Close(ctx context.Context) error {
	aw.closeOnce.Do(func() {
		close(aw.done)
	})

	finished := make(chan struct{})
	go func() {
		aw.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (aw *AsyncWriter) worker() {
	defer aw.wg.Done()

	batch := make([]Finding, 0, aw.options.BatchSize)
	ticker := time.NewTicker(aw.options.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Storage writes get their own context so a closing caller cannot
		// cancel a flush mid-write.
		ctx, cancel := context.WithTimeout(context.Background(), aw.options.StorageTimeout)
		defer cancel()

		if err := aw.storage.StoreBatch(ctx, batch); err != nil {
			aw.log.Error("failed to store audit findings",
				slog.Int("count", len(batch)),
				slog.String("error", err.Error()))
		}
		batch = batch[:0]
	}

	for {
		select {
		case f := <-aw.ch:
			batch = append(batch, f)
			if len(batch) >= aw.options.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-aw.done:
			// Drain whatever made it into the buffer before shutdown.
			for {
				select {
				case f := <-aw.ch:
					batch = append(batch, f)
					if len(batch) >= aw.options.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}
