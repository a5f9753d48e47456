package analytics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/omnisearch/internal/domain/search/query"
	"github.com/kailas-cloud/omnisearch/internal/metrics"
)

// Writer persists query records.
type Writer interface {
	Append(ctx context.Context, rec query.Record) error
	Trim(ctx context.Context, before time.Time) (int64, error)
}

// LoggerConfig tunes the background writer.
type LoggerConfig struct {
	QueueSize    int
	WriteTimeout time.Duration
	// Retention drops records older than this; zero keeps everything.
	Retention    time.Duration
	TrimInterval time.Duration
}

// AsyncLogger records search queries off the request path. Records are queued and
// written by one background worker; a full queue drops the record.
type AsyncLogger struct {
	store  Writer
	cfg    LoggerConfig
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan query.Record
	done   chan struct{}
}

// NewAsyncLogger starts the background writer. Close stops it.
func NewAsyncLogger(store Writer, cfg LoggerConfig, logger *zap.Logger) *AsyncLogger {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	if cfg.TrimInterval <= 0 {
		cfg.TrimInterval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &AsyncLogger{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		queue:  make(chan query.Record, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// Log enqueues a record without blocking.
func (l *AsyncLogger) Log(rec query.Record) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		metrics.QueryLogTotal.WithLabelValues("dropped").Inc()
		return
	}
	select {
	case l.queue <- rec:
	default:
		metrics.QueryLogTotal.WithLabelValues("dropped").Inc()
		l.logger.Warn("Query log queue full, dropping record", zap.String("query", rec.Text()))
	}
}

// Close stops accepting records and waits until the queue is drained or ctx ends.
func (l *AsyncLogger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *AsyncLogger) run() {
	defer close(l.done)

	var tick <-chan time.Time
	if l.cfg.Retention > 0 {
		ticker := time.NewTicker(l.cfg.TrimInterval)
		defer ticker.Stop()
		tick = ticker.C
		l.trim()
	}

	for {
		select {
		case rec, ok := <-l.queue:
			if !ok {
				return
			}
			l.write(rec)
		case <-tick:
			l.trim()
		}
	}
}

func (l *AsyncLogger) write(rec query.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.WriteTimeout)
	defer cancel()

	if err := l.store.Append(ctx, rec); err != nil {
		metrics.QueryLogTotal.WithLabelValues("failed").Inc()
		l.logger.Warn("Failed to write query record",
			zap.String("id", rec.ID()),
			zap.Error(err),
		)
		return
	}
	metrics.QueryLogTotal.WithLabelValues("written").Inc()
}

func (l *AsyncLogger) trim() {
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.WriteTimeout)
	defer cancel()

	n, err := l.store.Trim(ctx, l.now().Add(-l.cfg.Retention))
	if err != nil {
		l.logger.Warn("Failed to trim query log", zap.Error(err))
		return
	}
	if n > 0 {
		metrics.QueryLogTotal.WithLabelValues("trimmed").Add(float64(n))
		l.logger.Info("Trimmed query log", zap.Int64("records", n))
	}
}
