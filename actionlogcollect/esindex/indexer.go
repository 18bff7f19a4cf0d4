// Package esindex binds the collector and the diagram builder to
// Elasticsearch: bulk upserts into the time-partitioned action indices, and
// the query surface the diagrams are built from.
package esindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/corewire/actionlog"
	"github.com/corewire/actionlog/actionlogcollect"
)

// Client wraps an Elasticsearch client with the operations this system
// needs. It implements actionlogcollect.Indexer and actionlogdiagram.Store.
type Client struct {
	es *elasticsearch.Client
}

var _ actionlogcollect.Indexer = (*Client)(nil)

// NewClient constructs a Client against the given addresses.
func NewClient(addresses []string) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Client{es: es}, nil
}

// Upsert bulk-writes docs into index, keyed by document id, so replayed
// records overwrite rather than duplicate.
func (c *Client) Upsert(ctx context.Context, index string, docs []*actionlog.ActionDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, doc := range docs {
		meta := map[string]map[string]string{
			"index": {"_index": index, "_id": doc.ID},
		}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("encode bulk meta: %w", err)
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode document %s: %w", doc.ID, err)
		}
	}

	res, err := c.es.Bulk(bytes.NewReader(body.Bytes()), c.es.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk request: %s", res.String())
	}

	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}

	if result.Errors {
		for _, item := range result.Items {
			for _, op := range item {
				if op.Status >= 300 {
					return fmt.Errorf("bulk item failed: status %d, %s: %s", op.Status, op.Error.Type, op.Error.Reason)
				}
			}
		}
		return fmt.Errorf("bulk request reported item errors")
	}

	return nil
}
