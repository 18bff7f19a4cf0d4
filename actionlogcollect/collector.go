// Package actionlogcollect consumes the action-log document stream and
// writes it into time-partitioned indices. The collector core is transport-
// and store-agnostic: it speaks to the stream through Source and to the
// index through Indexer, and concrete bindings live in the kafkasource and
// esindex subpackages.
package actionlogcollect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/corewire/actionlog"
)

// IndexPattern matches every time-partitioned action index.
const IndexPattern = "action-*"

// IndexFor returns the index name owning documents dated t: action-YYYY.MM.DD
// in UTC.
func IndexFor(t time.Time) string {
	return "action-" + t.UTC().Format("2006.01.02")
}

// Message is one raw record fetched from the stream, opaque except for its
// payload. The source's own bookkeeping (partition, offset) stays behind the
// Ref value, which is handed back verbatim on commit.
type Message struct {
	Value []byte
	Ref   any
}

// Source is the narrow view of the consumed stream. Fetch blocks until a
// message arrives or ctx ends. Commit acknowledges messages; the collector
// commits only after the batch containing them has been acknowledged by the
// indexer, so a crash replays rather than loses.
type Source interface {
	Fetch(ctx context.Context) (Message, error)
	Commit(ctx context.Context, msgs ...Message) error
}

// Indexer writes a batch of documents into one named index, idempotently by
// document id.
type Indexer interface {
	Upsert(ctx context.Context, index string, docs []*actionlog.ActionDocument) error
}

// CollectorConfig collects the construction parameters for a Collector.
type CollectorConfig struct {
	Source  Source
	Indexer Indexer

	// BatchSize is the max documents per indexing request. Default 250.
	BatchSize int

	// FlushInterval bounds how long a partial batch may wait. Default 1s.
	FlushInterval time.Duration
}

// Collector drives the fetch → decode → upsert → commit loop.
type Collector struct {
	source        Source
	indexer       Indexer
	batchSize     int
	flushInterval time.Duration
}

// NewCollector constructs a Collector from the given config.
func NewCollector(cfg CollectorConfig) *Collector {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 250
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	return &Collector{
		source:        cfg.Source,
		indexer:       cfg.Indexer,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
	}
}

// Run consumes until ctx is cancelled. Documents batch up to BatchSize or
// FlushInterval, whichever fills first; offsets commit only after the whole
// batch has been accepted by the indexer. Undecodable payloads are counted
// and committed past, never retried.
func (c *Collector) Run(ctx context.Context) error {
	for {
		msgs, err := c.gather(ctx)
		if err != nil {
			return err // uncommitted messages replay on restart
		}
		if err := c.flush(ctx, msgs); err != nil {
			return fmt.Errorf("flush batch: %w", err)
		}
	}
}

// gather blocks for the first message, then fills the batch until BatchSize
// or FlushInterval. A non-nil error means the consume loop should stop; any
// partial batch gathered by then stays uncommitted and replays on restart.
func (c *Collector) gather(ctx context.Context) ([]Message, error) {
	first, err := c.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	msgs := []Message{first}

	deadline, cancel := context.WithTimeout(ctx, c.flushInterval)
	defer cancel()

	for len(msgs) < c.batchSize {
		msg, err := c.source.Fetch(deadline)
		if err != nil {
			if ctx.Err() != nil {
				return msgs, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return msgs, nil // partial batch, flush it
			}
			return msgs, err
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}

func (c *Collector) flush(ctx context.Context, msgs []Message) error {
	byIndex := map[string][]*actionlog.ActionDocument{}
	for _, msg := range msgs {
		var doc actionlog.ActionDocument
		if err := json.Unmarshal(msg.Value, &doc); err != nil {
			actionlog.CountPipelineError()
			continue
		}
		index := IndexFor(doc.Date)
		byIndex[index] = append(byIndex[index], &doc)
	}

	for index, docs := range byIndex {
		if err := c.indexer.Upsert(ctx, index, docs); err != nil {
			return fmt.Errorf("upsert %d docs into %s: %w", len(docs), index, err)
		}
	}

	if err := c.source.Commit(ctx, msgs...); err != nil {
		return fmt.Errorf("commit %d messages: %w", len(msgs), err)
	}

	return nil
}
