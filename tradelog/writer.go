package tradelog

import (
	"context"
	"sync"
	"time"

	"github.com/evdnx/gosig/logger"
	"github.com/evdnx/gosig/metrics"
)

// AsyncWriter decouples the evaluation loop from the store: Write never
// blocks and a failed insert is retried, then logged and dropped. The
// in-memory trade state is never rolled back.
type AsyncWriter struct {
	store   Store
	log     logger.Logger
	queue   chan Record
	retries int
	delay   time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncWriter buffers up to queueSize rows and makes retries extra
// attempts per row, waiting delay*attempt between them.
func NewAsyncWriter(store Store, log logger.Logger, queueSize, retries int, delay time.Duration) *AsyncWriter {
	if queueSize <= 0 {
		queueSize = 1
	}
	if retries < 0 {
		retries = 0
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &AsyncWriter{
		store:   store,
		log:     log,
		queue:   make(chan Record, queueSize),
		retries: retries,
		delay:   delay,
	}
}

// Start launches the drain goroutine. Inserts use ctx; once it is done the
// remaining rows fail fast and are logged.
func (w *AsyncWriter) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for r := range w.queue {
			w.insert(ctx, r)
		}
	}()
}

// Write enqueues r and reports whether it was accepted.
func (w *AsyncWriter) Write(r Record) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		metrics.TradeLogWrites.WithLabelValues("dropped").Inc()
		return false
	}
	select {
	case w.queue <- r:
		return true
	default:
		metrics.TradeLogWrites.WithLabelValues("dropped").Inc()
		w.log.Warn("tradelog_queue_full",
			logger.String("id", r.ID),
			logger.String("status", string(r.Status)),
		)
		return false
	}
}

// Close stops accepting rows and waits for the queue to drain.
func (w *AsyncWriter) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *AsyncWriter) insert(ctx context.Context, r Record) {
	var err error
	attempts := 0
retry:
	for {
		attempts++
		if err = w.store.Insert(ctx, r); err == nil {
			metrics.TradeLogWrites.WithLabelValues("ok").Inc()
			return
		}
		if attempts > w.retries || ctx.Err() != nil {
			break
		}
		metrics.TradeLogWrites.WithLabelValues("retry").Inc()
		select {
		case <-ctx.Done():
			break retry
		case <-time.After(w.delay * time.Duration(attempts)):
		}
	}
	metrics.TradeLogWrites.WithLabelValues("failed").Inc()
	w.log.Error("tradelog_write_failed",
		logger.String("id", r.ID),
		logger.String("status", string(r.Status)),
		logger.Int("attempts", attempts),
		logger.Err(err),
	)
}
