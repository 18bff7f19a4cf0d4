package esindex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/corewire/actionlog"
	"github.com/corewire/actionlog/actionlogcollect"
	"github.com/corewire/actionlog/actionlogdiagram"
)

var _ actionlogdiagram.Store = (*Client)(nil)

// Aggregation traversal caps: 100 apps, 500 actions per app, 100 clients per
// action. Wide fan-out past these caps is silently truncated.
const (
	aggAppSize    = 100
	aggActionSize = 500
	aggClientSize = 100
)

// Get implements actionlogdiagram.Store.
func (c *Client) Get(ctx context.Context, id string) (*actionlog.ActionDocument, error) {
	docs, err := c.search(ctx, map[string]any{
		"query": map[string]any{
			"term": map[string]any{"id": id},
		},
		"size": 1,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, actionlogdiagram.ErrNotFound
	}
	return docs[0], nil
}

// ByIDs implements actionlogdiagram.Store.
func (c *Client) ByIDs(ctx context.Context, ids []string) ([]*actionlog.ActionDocument, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return c.search(ctx, map[string]any{
		"query": map[string]any{
			"terms": map[string]any{"id": ids},
		},
		"size": len(ids),
	})
}

// ByCorrelation implements actionlogdiagram.Store.
func (c *Client) ByCorrelation(ctx context.Context, correlationIDs []string, limit int) ([]*actionlog.ActionDocument, error) {
	if len(correlationIDs) == 0 {
		return nil, nil
	}
	return c.search(ctx, map[string]any{
		"query": map[string]any{
			"terms": map[string]any{"correlation_id": correlationIDs},
		},
		"size": limit,
	})
}

func (c *Client) search(ctx context.Context, query map[string]any) ([]*actionlog.ActionDocument, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(actionlogcollect.IndexPattern),
		c.es.Search.WithBody(strings.NewReader(string(body))),
	)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search request: %s", res.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source actionlog.ActionDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	docs := make([]*actionlog.ActionDocument, 0, len(result.Hits.Hits))
	for i := range result.Hits.Hits {
		docs = append(docs, &result.Hits.Hits[i].Source)
	}
	return docs, nil
}

// Aggregate implements actionlogdiagram.Store, with nested terms
// aggregations on app → action → client.
func (c *Client) Aggregate(ctx context.Context, hours int) ([]actionlogdiagram.AggRow, error) {
	query := map[string]any{
		"size": 0,
		"query": map[string]any{
			"range": map[string]any{
				"@timestamp": map[string]any{"gte": fmt.Sprintf("now-%dh", hours)},
			},
		},
		"aggs": map[string]any{
			"app": map[string]any{
				"terms": map[string]any{"field": "app", "size": aggAppSize},
				"aggs": map[string]any{
					"action": map[string]any{
						"terms": map[string]any{"field": "action", "size": aggActionSize},
						"aggs": map[string]any{
							"client": map[string]any{
								"terms": map[string]any{"field": "client", "size": aggClientSize},
							},
						},
					},
				},
			},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal aggregation: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(actionlogcollect.IndexPattern),
		c.es.Search.WithBody(strings.NewReader(string(body))),
	)
	if err != nil {
		return nil, fmt.Errorf("aggregation request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("aggregation request: %s", res.String())
	}

	return decodeAggRows(res.Body)
}

type termsBuckets struct {
	Buckets []aggBucket `json:"buckets"`
}

type aggBucket struct {
	Key      string       `json:"key"`
	DocCount int64        `json:"doc_count"`
	Action   termsBuckets `json:"action"`
	Client   termsBuckets `json:"client"`
}

func decodeAggRows(r io.Reader) ([]actionlogdiagram.AggRow, error) {
	var result struct {
		Aggregations struct {
			App termsBuckets `json:"app"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(r).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode aggregation response: %w", err)
	}

	var rows []actionlogdiagram.AggRow
	for _, app := range result.Aggregations.App.Buckets {
		for _, action := range app.Action.Buckets {
			if len(action.Client.Buckets) == 0 {
				rows = append(rows, actionlogdiagram.AggRow{
					App:    app.Key,
					Action: action.Key,
					Count:  action.DocCount,
				})
				continue
			}
			for _, client := range action.Client.Buckets {
				rows = append(rows, actionlogdiagram.AggRow{
					App:    app.Key,
					Action: action.Key,
					Client: client.Key,
					Count:  client.DocCount,
				})
			}
		}
	}
	return rows, nil
}
