// Package graph publishes aggregated view changes to the knowledge graph.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/natsclient"

	"github.com/c360studio/semagg/composition"
)

// Subjects for graph ingestion.
const (
	IngestSubject = "graph.ingest.entity"
	RemoveSubject = "graph.remove.entity"
)

const defaultQueueSize = 256

// StreamPublisher publishes raw payloads to a JetStream subject.
type StreamPublisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

var _ StreamPublisher = (*natsclient.Client)(nil)

// ChangeSource is anything that delivers change batches, such as an
// aggregator view or a composition node.
type ChangeSource interface {
	Subscribe(l composition.Listener) composition.Unsubscribe
}

type batch struct {
	updated map[string]*composition.Wrapper
	removed []string
	at      time.Time
}

// Publisher forwards change batches to the graph. The listener it registers
// never blocks: batches are queued and published by a background goroutine,
// and batches arriving while the queue is full are dropped and counted.
type Publisher struct {
	client        StreamPublisher
	logger        *slog.Logger
	ingestSubject string
	removeSubject string

	queue    chan batch
	wg       sync.WaitGroup
	stopOnce sync.Once

	published atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64

	unsubscribe composition.Unsubscribe
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the publisher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSubjects overrides the ingest and remove subjects. Empty values keep
// the defaults.
func WithSubjects(ingest, remove string) Option {
	return func(p *Publisher) {
		if ingest != "" {
			p.ingestSubject = ingest
		}
		if remove != "" {
			p.removeSubject = remove
		}
	}
}

// WithQueueSize sets how many batches may wait for publication.
func WithQueueSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.queue = make(chan batch, n)
		}
	}
}

// NewPublisher creates a publisher writing through client.
func NewPublisher(client StreamPublisher, opts ...Option) *Publisher {
	p := &Publisher{
		client:        client,
		logger:        slog.Default(),
		ingestSubject: IngestSubject,
		removeSubject: RemoveSubject,
		queue:         make(chan batch, defaultQueueSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start subscribes to src and publishes its batches until ctx is cancelled
// or Stop is called.
func (p *Publisher) Start(ctx context.Context, src ChangeSource) {
	p.unsubscribe = src.Subscribe(p.enqueue)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()
}

// Stop detaches from the source, publishes what is already queued and waits
// for the background goroutine to exit.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() {
		if p.unsubscribe != nil {
			p.unsubscribe()
		}
		close(p.queue)
	})
	p.wg.Wait()
}

// Published returns the number of messages published.
func (p *Publisher) Published() int64 { return p.published.Load() }

// Dropped returns the number of batches dropped on a full queue.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

// Failed returns the number of messages that could not be published.
func (p *Publisher) Failed() int64 { return p.failed.Load() }

// PublishSnapshot synchronously publishes every entity in entities, in id
// order. Used to seed the graph before incremental batches flow.
func (p *Publisher) PublishSnapshot(ctx context.Context, entities map[string]*composition.Wrapper) error {
	ids := make([]string, 0, len(entities))
	for id := range entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := time.Now()
	for _, id := range ids {
		if err := p.publishEntity(ctx, entities[id], now); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) enqueue(updated map[string]*composition.Wrapper, removed []string) {
	b := batch{updated: updated, removed: append([]string(nil), removed...), at: time.Now()}
	select {
	case p.queue <- b:
	default:
		p.dropped.Add(1)
		p.logger.Warn("Graph publish queue full, dropping batch",
			"updated", len(updated), "removed", len(removed))
	}
}

func (p *Publisher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-p.queue:
			if !ok {
				return
			}
			p.publishBatch(ctx, b)
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context, b batch) {
	ids := make([]string, 0, len(b.updated))
	for id := range b.updated {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := p.publishEntity(ctx, b.updated[id], b.at); err != nil {
			p.failed.Add(1)
			p.logger.Warn("Failed to publish entity", "id", id, "error", err)
		}
	}
	for _, id := range b.removed {
		if err := p.publishRemoval(ctx, id, b.at); err != nil {
			p.failed.Add(1)
			p.logger.Warn("Failed to publish removal", "id", id, "error", err)
		}
	}
}

func (p *Publisher) publishEntity(ctx context.Context, w *composition.Wrapper, at time.Time) error {
	id := w.Entity.Head().ID
	payload := &EntityPayload{
		EntityID_:  EntityID(id),
		TripleData: Triples(w, EntityID, at),
		UpdatedAt:  at,
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("invalid entity %s: %w", id, err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal entity %s: %w", id, err)
	}
	if err := p.client.PublishToStream(ctx, p.ingestSubject, data); err != nil {
		return fmt.Errorf("publish entity %s: %w", id, err)
	}
	p.published.Add(1)
	return nil
}

func (p *Publisher) publishRemoval(ctx context.Context, id string, at time.Time) error {
	data, err := json.Marshal(RemovalMessage{ID: EntityID(id), RemovedAt: at})
	if err != nil {
		return fmt.Errorf("marshal removal %s: %w", id, err)
	}
	if err := p.client.PublishToStream(ctx, p.removeSubject, data); err != nil {
		return fmt.Errorf("publish removal %s: %w", id, err)
	}
	p.published.Add(1)
	return nil
}
