package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/oklog/run"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"

	"github.com/corewire/actionlog"
	"github.com/corewire/actionlog/actionlogcollect/esindex"
	"github.com/corewire/actionlog/actionlogforward"
	"github.com/corewire/actionlog/actionlogforward/kafka"
	"github.com/corewire/actionlog/actionloghttp"
)

type serveConfig struct {
	*rootConfig

	listenAddr   string
	esAddresses  []string
	kafkaBrokers []string
	filterConfig string
}

func (cfg *serveConfig) register(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "listen-addr" /*   */, Value: ffval.NewValueDefault(&cfg.listenAddr, "localhost:8001") /* */, Usage: "HTTP listen address"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'e', LongName: "es-addr" /*       */, Value: ffval.NewUniqueList(&cfg.esAddresses) /*                    */, NoDefault: true, Usage: "elasticsearch address (repeatable, required)"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'b', LongName: "kafka-broker" /*  */, Value: ffval.NewUniqueList(&cfg.kafkaBrokers) /*                   */, NoDefault: true, Usage: "kafka broker for this server's own action records (repeatable)"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "filter-config" /* */, Value: ffval.NewValue(&cfg.filterConfig) /*                        */, NoDefault: true, Usage: "YAML mask-rule file", Placeholder: "PATH"})
}

func (cfg *serveConfig) Exec(ctx context.Context, args []string) error {
	if len(cfg.esAddresses) == 0 {
		return fmt.Errorf("at least one --es-addr is required")
	}

	store, err := esindex.NewClient(cfg.esAddresses)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}

	var filter *actionlog.Filter
	if cfg.filterConfig != "" {
		filter, err = actionlog.LoadFilter(cfg.filterConfig)
		if err != nil {
			return fmt.Errorf("load filter: %w", err)
		}
		cfg.debug.Printf("filter: %s", filter)
	}

	// The server's own requests are actions too. With no broker configured
	// their records go to the debug log only.
	var (
		sink      actionlog.Sink
		forwarder *actionlogforward.Forwarder
	)
	if len(cfg.kafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.kafkaBrokers)
		defer publisher.Close()
		forwarder = actionlogforward.NewForwarder(publisher, actionlogforward.DefaultCapacity)
		sink = forwarder
	}

	manager := actionlog.NewManager(actionlog.ManagerConfig{
		App:        cfg.app,
		Sink:       sink,
		Filter:     filter,
		Decorators: []actionlog.DecoratorFunc{actionlog.LogDecorator(&logWriter{Logger: cfg.debug})},
	})

	server := actionloghttp.NewServer(manager, store)

	ln, err := net.Listen("tcp", cfg.listenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	cfg.info.Printf("listening on %s", cfg.listenAddr)

	httpServer := &http.Server{Handler: server}

	var group run.Group
	{
		group.Add(func() error {
			return httpServer.Serve(ln)
		}, func(error) {
			httpServer.Close()
		})
	}
	if forwarder != nil {
		runCtx, cancel := context.WithCancel(ctx)
		group.Add(func() error {
			return forwarder.Run(runCtx)
		}, func(error) {
			cancel()
		})
	}
	{
		group.Add(run.SignalHandler(ctx, os.Interrupt))
	}
	return group.Run()
}
