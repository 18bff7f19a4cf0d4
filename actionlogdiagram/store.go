// Package actionlogdiagram reconstructs causal diagrams from stored action
// documents: an architectural view of which apps call which, and a per-action
// view of one causal tree. Both render as Graphviz dot text.
package actionlogdiagram

import (
	"context"
	"errors"

	"github.com/corewire/actionlog"
)

// ErrNotFound is returned when a queried action id is unknown.
var ErrNotFound = errors.New("action not found")

// AggRow is one aggregated app/action/client triple with its document count.
type AggRow struct {
	App    string
	Action string
	Client string
	Count  int64
}

// Store is the narrow query surface the diagram builder needs over the
// stored action documents.
type Store interface {
	// Get returns the document with the given action id, or ErrNotFound.
	Get(ctx context.Context, id string) (*actionlog.ActionDocument, error)

	// ByIDs returns the documents with the given action ids. Unknown ids
	// are skipped, not errors.
	ByIDs(ctx context.Context, ids []string) ([]*actionlog.ActionDocument, error)

	// ByCorrelation returns up to limit documents whose correlation id set
	// intersects the given ids.
	ByCorrelation(ctx context.Context, correlationIDs []string, limit int) ([]*actionlog.ActionDocument, error)

	// Aggregate returns app/action/client triples over the last hours of
	// documents. Implementations cap the traversal at 100 apps, 500 actions
	// per app, and 100 clients per action; wide fan-out past those caps is
	// silently truncated.
	Aggregate(ctx context.Context, hours int) ([]AggRow, error)
}
