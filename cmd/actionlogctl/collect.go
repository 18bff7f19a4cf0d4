package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/oklog/run"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"

	"github.com/corewire/actionlog/actionlogcollect"
	"github.com/corewire/actionlog/actionlogcollect/esindex"
	"github.com/corewire/actionlog/actionlogcollect/kafkasource"
)

type collectConfig struct {
	*rootConfig

	kafkaBrokers  []string
	groupID       string
	esAddresses   []string
	batchSize     int
	flushInterval time.Duration
}

func (cfg *collectConfig) register(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 'b', LongName: "kafka-broker" /*   */, Value: ffval.NewUniqueList(&cfg.kafkaBrokers) /*                       */, NoDefault: true, Usage: "kafka broker address (repeatable, required)"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'g', LongName: "group" /*          */, Value: ffval.NewValueDefault(&cfg.groupID, "actionlog-collector") /*   */, Usage: "kafka consumer group id"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'e', LongName: "es-addr" /*        */, Value: ffval.NewUniqueList(&cfg.esAddresses) /*                        */, NoDefault: true, Usage: "elasticsearch address (repeatable, required)"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "batch-size" /*     */, Value: ffval.NewValueDefault(&cfg.batchSize, 250) /*                   */, Usage: "max documents per indexing request"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "flush-interval" /* */, Value: ffval.NewValueDefault(&cfg.flushInterval, time.Second) /*       */, Usage: "max time a partial batch may wait"})
}

func (cfg *collectConfig) Exec(ctx context.Context, args []string) error {
	if len(cfg.kafkaBrokers) == 0 {
		return fmt.Errorf("at least one --kafka-broker is required")
	}
	if len(cfg.esAddresses) == 0 {
		return fmt.Errorf("at least one --es-addr is required")
	}

	indexer, err := esindex.NewClient(cfg.esAddresses)
	if err != nil {
		return fmt.Errorf("create indexer: %w", err)
	}

	if err := indexer.EnsureTemplate(ctx); err != nil {
		return fmt.Errorf("ensure index template: %w", err)
	}

	source := kafkasource.NewSource(cfg.kafkaBrokers, cfg.groupID)
	defer source.Close()

	collector := actionlogcollect.NewCollector(actionlogcollect.CollectorConfig{
		Source:        source,
		Indexer:       indexer,
		BatchSize:     cfg.batchSize,
		FlushInterval: cfg.flushInterval,
	})

	cfg.info.Printf("consuming from %v as %s", cfg.kafkaBrokers, cfg.groupID)
	cfg.info.Printf("indexing into %v", cfg.esAddresses)

	var group run.Group
	{
		runCtx, cancel := context.WithCancel(ctx)
		group.Add(func() error {
			return collector.Run(runCtx)
		}, func(error) {
			cancel()
		})
	}
	{
		group.Add(run.SignalHandler(ctx, os.Interrupt))
	}
	return group.Run()
}
