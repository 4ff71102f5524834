package events

import (
	"context"
	"sync"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/result"
)

// DefaultBufferSize bounds queued events.
const DefaultBufferSize = 10000

type publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Collector queues search events and publishes them from one goroutine.
// Events are dropped when the buffer is full so searches never block on Kafka,
// and after Close.
type Collector struct {
	pub     publisher
	eventCh chan SearchEvent
	done    chan struct{}
	mu      sync.RWMutex
	started bool
	closed  bool
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// NewCollector creates a Collector. Start must be called before events flow.
func NewCollector(pub publisher, bufferSize int, logger *zap.Logger) *Collector {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		pub:     pub,
		eventCh: make(chan SearchEvent, bufferSize),
		done:    make(chan struct{}),
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Start runs the publishing loop until Close is called. Cancelling ctx does
// not stop the loop, so searches still in flight during shutdown are recorded.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(c.done)
		for ev := range c.eventCh {
			c.publish(ctx, ev)
		}
	}()
	c.logger.Info("Analytics collector started", zap.Int("buffer_size", cap(c.eventCh)))
}

// RecordSearch queues a summary of a completed search.
func (c *Collector) RecordSearch(
	ctx context.Context, index string, caller domain.Caller, q query.Query, page result.Page, stats result.Stats,
) {
	t := page.Timing()
	ev := SearchEvent{
		Type:        TypeSearch,
		RequestID:   chiMiddleware.GetReqID(ctx),
		Index:       index,
		User:        caller.User(),
		Query:       q.String(),
		Start:       page.Start(),
		Rows:        page.Rows(),
		Returned:    page.Len(),
		VisibleHits: page.VisibleHits(),
		EngineHits:  page.EngineHits(),
		Denied:      stats.Denied,
		Failed:      stats.Failed,
		Fallback:    page.Fallback().String(),
		EngineMs:    t.Engine.Milliseconds(),
		FilterMs:    t.Filter.Milliseconds(),
		HighlightMs: t.Highlight.Milliseconds(),
		Timestamp:   c.now().UTC(),
	}
	if page.VisibleHits() == 0 {
		ev.Type = TypeZeroResult
	}
	c.Track(ev)
}

// Track queues ev without blocking. Events without an ID get a random one.
func (c *Collector) Track(ev SearchEvent) {
	if ev.ID == "" {
		ev.ID = c.newID()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Debug("Analytics event dropped (collector closed)", zap.String("index", ev.Index))
		return
	}
	select {
	case c.eventCh <- ev:
	default:
		c.logger.Warn("Analytics event dropped (buffer full)", zap.String("index", ev.Index))
	}
}

// Close stops accepting events and waits for queued ones to be published.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	started := c.started
	c.mu.Unlock()

	if started {
		<-c.done
	}
}

func (c *Collector) publish(ctx context.Context, ev SearchEvent) {
	if err := c.pub.Publish(ctx, ev.Index, ev); err != nil {
		c.logger.Error("Failed to publish analytics event", zap.Error(err))
	}
}
