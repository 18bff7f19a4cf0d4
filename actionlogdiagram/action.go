package actionlogdiagram

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/corewire/actionlog"
)

// siblingLimit caps the number of actions gathered per causal chain.
const siblingLimit = 10000

var actionTemplate = template.Must(template.New("action").Funcs(template.FuncMap{
	"quote": quote,
}).Parse(`digraph action {
  rankdir=LR;
  node [shape=box];
{{- range .Nodes}}
  {{quote .ID}} [label={{quote .Label}}];
{{- end}}
{{- range .Edges}}
  {{quote .From}} -> {{quote .To}};
{{- end}}
}
`))

type actionNode struct {
	ID    string
	Label string
}

type actionEdge struct {
	From string
	To   string
}

type actionData struct {
	Nodes []actionNode
	Edges []actionEdge
}

// Action renders the causal diagram containing the action with the given id.
// For a root action, the tree is the root plus every action correlated to
// it. For a non-root action, the tree is rebuilt from its root set: the root
// actions themselves, fetched by id, plus every sibling sharing any of those
// correlation ids. Nodes are labeled app:action; edges follow ref ids from
// caller to callee. Returns ErrNotFound when the id is unknown.
func Action(ctx context.Context, store Store, id string) (string, error) {
	doc, err := store.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get action %s: %w", id, err)
	}

	byID := map[string]*actionlog.ActionDocument{doc.ID: doc}

	var rootIDs []string
	if doc.IsRoot {
		rootIDs = []string{doc.ID}
	} else {
		rootIDs = doc.CorrelationIDs

		roots, err := store.ByIDs(ctx, rootIDs)
		if err != nil {
			return "", fmt.Errorf("get roots %v: %w", rootIDs, err)
		}
		for _, r := range roots {
			byID[r.ID] = r
		}
	}

	siblings, err := store.ByCorrelation(ctx, rootIDs, siblingLimit)
	if err != nil {
		return "", fmt.Errorf("get siblings of %v: %w", rootIDs, err)
	}
	for _, s := range siblings {
		byID[s.ID] = s
	}

	var data actionData
	for _, d := range byID {
		data.Nodes = append(data.Nodes, actionNode{
			ID:    d.ID,
			Label: d.App + ":" + d.Action,
		})
		for _, ref := range d.RefIDs {
			if _, ok := byID[ref]; !ok {
				continue // caller outside the gathered set
			}
			data.Edges = append(data.Edges, actionEdge{From: ref, To: d.ID})
		}
	}

	sort.Slice(data.Nodes, func(i, j int) bool { return data.Nodes[i].ID < data.Nodes[j].ID })
	sort.Slice(data.Edges, func(i, j int) bool {
		if data.Edges[i].From != data.Edges[j].From {
			return data.Edges[i].From < data.Edges[j].From
		}
		return data.Edges[i].To < data.Edges[j].To
	})

	var b strings.Builder
	if err := actionTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render action diagram: %w", err)
	}
	return b.String(), nil
}
