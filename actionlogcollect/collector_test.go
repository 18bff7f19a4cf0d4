package actionlogcollect_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/corewire/actionlog"
	"github.com/corewire/actionlog/actionlogcollect"
)

type fakeSource struct {
	msgs chan actionlogcollect.Message

	mtx       sync.Mutex
	committed int
}

func newFakeSource(cap int) *fakeSource {
	return &fakeSource{msgs: make(chan actionlogcollect.Message, cap)}
}

func (s *fakeSource) Fetch(ctx context.Context) (actionlogcollect.Message, error) {
	select {
	case msg := <-s.msgs:
		return msg, nil
	case <-ctx.Done():
		return actionlogcollect.Message{}, ctx.Err()
	}
}

func (s *fakeSource) Commit(ctx context.Context, msgs ...actionlogcollect.Message) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.committed += len(msgs)
	return nil
}

func (s *fakeSource) commitCount() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.committed
}

type fakeIndexer struct {
	mtx     sync.Mutex
	upserts map[string][]string // index -> doc ids
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{upserts: map[string][]string{}}
}

func (x *fakeIndexer) Upsert(ctx context.Context, index string, docs []*actionlog.ActionDocument) error {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	for _, doc := range docs {
		x.upserts[index] = append(x.upserts[index], doc.ID)
	}
	return nil
}

func (x *fakeIndexer) snapshot() map[string][]string {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	out := map[string][]string{}
	for k, v := range x.upserts {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func encode(t *testing.T, doc actionlog.ActionDocument) actionlogcollect.Message {
	t.Helper()

	value, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return actionlogcollect.Message{Value: value}
}

func TestIndexFor(t *testing.T) {
	t.Parallel()

	// Partitioning is by UTC day, regardless of the document's zone.
	est := time.FixedZone("EST", -5*3600)
	when := time.Date(2024, 3, 1, 22, 30, 0, 0, est) // 03:30 March 2nd UTC

	if want, have := "action-2024.03.02", actionlogcollect.IndexFor(when); want != have {
		t.Errorf("want %s, have %s", want, have)
	}
}

func TestCollectorPartitionsByDay(t *testing.T) {
	t.Parallel()

	var (
		day1 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		day2 = time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	)

	source := newFakeSource(8)
	source.msgs <- encode(t, actionlog.ActionDocument{ID: "a", Date: day1})
	source.msgs <- encode(t, actionlog.ActionDocument{ID: "b", Date: day1})
	source.msgs <- encode(t, actionlog.ActionDocument{ID: "c", Date: day2})

	indexer := newFakeIndexer()
	collector := actionlogcollect.NewCollector(actionlogcollect.CollectorConfig{
		Source:        source,
		Indexer:       indexer,
		BatchSize:     10,
		FlushInterval: 20 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- collector.Run(ctx) }()

	waitFor(t, func() bool { return source.commitCount() == 3 })

	cancel()
	<-done

	want := map[string][]string{
		"action-2024.03.01": {"a", "b"},
		"action-2024.03.02": {"c"},
	}
	if diff := cmp.Diff(want, indexer.snapshot()); diff != "" {
		t.Errorf("upserts mismatch (-want +have):\n%s", diff)
	}
}

func TestCollectorCommitsPastMalformed(t *testing.T) {
	t.Parallel()

	source := newFakeSource(8)
	source.msgs <- actionlogcollect.Message{Value: []byte("not json")}
	source.msgs <- encode(t, actionlog.ActionDocument{ID: "ok", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})

	indexer := newFakeIndexer()
	collector := actionlogcollect.NewCollector(actionlogcollect.CollectorConfig{
		Source:        source,
		Indexer:       indexer,
		BatchSize:     10,
		FlushInterval: 20 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- collector.Run(ctx) }()

	// Both messages commit; only the decodable one indexes.
	waitFor(t, func() bool { return source.commitCount() == 2 })

	cancel()
	<-done

	want := map[string][]string{"action-2024.03.01": {"ok"}}
	if diff := cmp.Diff(want, indexer.snapshot()); diff != "" {
		t.Errorf("upserts mismatch (-want +have):\n%s", diff)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
