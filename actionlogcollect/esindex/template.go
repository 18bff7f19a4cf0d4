package esindex

import (
	"context"
	"fmt"
	"strings"
)

// indexTemplate maps the fields the collector writes and the diagrams query.
// Keyword types keep the terms queries and aggregations exact-match.
const indexTemplate = `{
  "index_patterns": ["action-*"],
  "template": {
    "mappings": {
      "properties": {
        "@timestamp":     {"type": "date"},
        "id":             {"type": "keyword"},
        "app":            {"type": "keyword"},
        "host":           {"type": "keyword"},
        "action":         {"type": "keyword"},
        "client":         {"type": "keyword"},
        "result":         {"type": "keyword"},
        "error_code":     {"type": "keyword"},
        "correlation_id": {"type": "keyword"},
        "ref_id":         {"type": "keyword"},
        "is_root":        {"type": "boolean"},
        "elapsed":        {"type": "long"},
        "cpu_time":       {"type": "long"}
      }
    }
  }
}`

// EnsureTemplate installs the action index template. Idempotent; call once
// at collector startup.
func (c *Client) EnsureTemplate(ctx context.Context) error {
	res, err := c.es.Indices.PutIndexTemplate(
		"action",
		strings.NewReader(indexTemplate),
		c.es.Indices.PutIndexTemplate.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("put index template: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("put index template: %s", res.String())
	}

	return nil
}
