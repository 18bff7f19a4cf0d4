package actionlogdiagram

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

var archTemplate = template.Must(template.New("arch").Funcs(template.FuncMap{
	"quote": quote,
}).Parse(`digraph arch {
  rankdir=LR;
  node [shape=box];
{{- range .Apps}}
  {{quote .}};
{{- end}}
{{- range .Edges}}
  {{quote .From}} -> {{quote .To}} [label={{quote .Label}}];
{{- end}}
}
`))

type archEdge struct {
	From  string
	To    string
	Label string
}

type archData struct {
	Apps  []string
	Edges []archEdge
}

// Arch renders the architecture diagram over the last hours of stored
// actions: nodes are apps, and an edge client → app carries the names of the
// aggregated actions the client invokes on the app. Apps named in
// excludeApps, and every edge incident to them, are omitted.
func Arch(ctx context.Context, store Store, hours int, excludeApps []string) (string, error) {
	if hours <= 0 {
		hours = 24
	}

	rows, err := store.Aggregate(ctx, hours)
	if err != nil {
		return "", fmt.Errorf("aggregate last %dh: %w", hours, err)
	}

	excluded := make(map[string]bool, len(excludeApps))
	for _, app := range excludeApps {
		excluded[app] = true
	}

	var (
		apps    = map[string]bool{}
		actions = map[[2]string][]string{} // {client, app} -> action names
	)
	for _, row := range rows {
		if excluded[row.App] || excluded[row.Client] {
			continue
		}

		apps[row.App] = true

		if row.Client == "" {
			continue // root actions have no caller
		}
		apps[row.Client] = true

		key := [2]string{row.Client, row.App}
		actions[key] = append(actions[key], row.Action)
	}

	data := archData{
		Apps: sortedKeys(apps),
	}
	for key, names := range actions {
		sort.Strings(names)
		data.Edges = append(data.Edges, archEdge{
			From:  key[0],
			To:    key[1],
			Label: strings.Join(names, "\\n"),
		})
	}
	sort.Slice(data.Edges, func(i, j int) bool {
		if data.Edges[i].From != data.Edges[j].From {
			return data.Edges[i].From < data.Edges[j].From
		}
		return data.Edges[i].To < data.Edges[j].To
	})

	var b strings.Builder
	if err := archTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render arch diagram: %w", err)
	}
	return b.String(), nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// quote produces a dot-safe double-quoted string. Dot's quoting rules only
// require escaping the quote character itself; backslashes pass through so
// that \n line breaks in labels survive.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
