package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"

	"github.com/corewire/actionlog/actionloghttp"
)

type searchConfig struct {
	*rootConfig

	id             string
	correlationIDs []string
	limit          int
}

func (cfg *searchConfig) register(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 'i', LongName: "id" /*             */, Value: ffval.NewValue(&cfg.id) /*                  */, NoDefault: true, Usage: "action id to fetch"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'c', LongName: "correlation-id" /* */, Value: ffval.NewUniqueList(&cfg.correlationIDs) /* */, NoDefault: true, Usage: "root action id (repeatable)"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'n', LongName: "limit" /*          */, Value: ffval.NewValueDefault(&cfg.limit, 100) /*   */, Usage: "maximum number of documents to return"})
}

func (cfg *searchConfig) Exec(ctx context.Context, args []string) error {
	if cfg.id == "" && len(cfg.correlationIDs) == 0 {
		return fmt.Errorf("either --id or --correlation-id is required")
	}

	client := actionloghttp.NewClient(http.DefaultClient, cfg.serverURI, cfg.app)

	enc := json.NewEncoder(cfg.stdout)
	if cfg.output == "prettyjson" {
		enc.SetIndent("", "    ")
	}

	if cfg.id != "" {
		cfg.debug.Printf("fetching action %s", cfg.id)
		doc, err := client.Get(ctx, cfg.id)
		if err != nil {
			return fmt.Errorf("get action: %w", err)
		}
		return enc.Encode(doc)
	}

	cfg.debug.Printf("fetching actions correlated to %v, limit %d", cfg.correlationIDs, cfg.limit)
	docs, err := client.ByCorrelation(ctx, cfg.correlationIDs, cfg.limit)
	if err != nil {
		return fmt.Errorf("query actions: %w", err)
	}

	cfg.debug.Printf("returned: %d", len(docs))

	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}
	}
	return nil
}
