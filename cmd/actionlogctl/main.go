// actionlogctl is a CLI tool for operating the action log pipeline: querying
// stored actions, fetching diagrams, running the collector, and serving the
// query API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/oklog/run"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

func main() {
	var (
		ctx    = context.Background()
		stdin  = os.Stdin
		stdout = os.Stdout
		stderr = os.Stderr
		args   = os.Args[1:]
	)
	err := exec(ctx, stdin, stdout, stderr, args)
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.As(err, &(run.SignalError{})):
		os.Exit(0)
	case err != nil:
		fmt.Fprintf(stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func exec(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) (err error) {
	rootConfig := &rootConfig{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	rootFlags := ff.NewFlagSet("base")
	rootConfig.registerBaseFlags(rootFlags)

	rootCommand := &ff.Command{
		Name:      "actionlogctl",
		ShortHelp: "operate the action log pipeline",
		Flags:     rootFlags,
	}

	// Config for `actionlogctl search`.
	searchConfig := &searchConfig{rootConfig: rootConfig}
	searchFlags := ff.NewFlagSet("search").SetParent(rootFlags)
	searchConfig.register(searchFlags)
	searchCommand := &ff.Command{
		Name:      "search",
		ShortHelp: "fetch stored action documents from a query server",
		LongHelp:  "Fetch one action by id, or every action correlated to the given root ids.",
		Flags:     searchFlags,
		Exec:      searchConfig.Exec,
	}
	rootCommand.Subcommands = append(rootCommand.Subcommands, searchCommand)

	// Config for `actionlogctl diagram`.
	diagramConfig := &diagramConfig{rootConfig: rootConfig}
	diagramFlags := ff.NewFlagSet("diagram").SetParent(rootFlags)
	diagramConfig.register(diagramFlags)
	diagramCommand := &ff.Command{
		Name:      "diagram",
		ShortHelp: "fetch a Graphviz diagram from a query server",
		LongHelp:  "Fetch the arch diagram, or the causal diagram of one action by id.",
		Flags:     diagramFlags,
		Exec:      diagramConfig.Exec,
	}
	rootCommand.Subcommands = append(rootCommand.Subcommands, diagramCommand)

	// Config for `actionlogctl collect`.
	collectConfig := &collectConfig{rootConfig: rootConfig}
	collectFlags := ff.NewFlagSet("collect").SetParent(rootFlags)
	collectConfig.register(collectFlags)
	collectCommand := &ff.Command{
		Name:      "collect",
		ShortHelp: "consume the action-log topic into time-partitioned indices",
		Flags:     collectFlags,
		Exec:      collectConfig.Exec,
	}
	rootCommand.Subcommands = append(rootCommand.Subcommands, collectCommand)

	// Config for `actionlogctl serve`.
	serveConfig := &serveConfig{rootConfig: rootConfig}
	serveFlags := ff.NewFlagSet("serve").SetParent(rootFlags)
	serveConfig.register(serveFlags)
	serveCommand := &ff.Command{
		Name:      "serve",
		ShortHelp: "serve the document query and diagram APIs",
		Flags:     serveFlags,
		Exec:      serveConfig.Exec,
	}
	rootCommand.Subcommands = append(rootCommand.Subcommands, serveCommand)

	// Print help when appropriate.
	showHelp := true
	defer func() {
		errHelp := errors.Is(err, ff.ErrHelp) || errors.Is(err, ff.ErrNoExec)
		if showHelp || errHelp {
			fmt.Fprintf(stderr, "\n%s\n", ffhelp.Command(rootCommand))
		}
		if errHelp {
			err = nil
		}
	}()

	// Initial parsing.
	if err := rootCommand.Parse(args, ff.WithEnvVarPrefix("ACTIONLOG")); err != nil {
		return err
	}

	// Validation and set-up.
	{
		var infodst, debugdst io.Writer
		switch rootConfig.logLevel {
		case "n", "none":
			infodst, debugdst = io.Discard, io.Discard
		case "i", "info":
			infodst, debugdst = stderr, io.Discard
		case "d", "debug":
			infodst, debugdst = stderr, stderr
		default:
			return fmt.Errorf("invalid log level %q", rootConfig.logLevel)
		}
		rootConfig.info = log.New(infodst, "", 0)
		rootConfig.debug = log.New(debugdst, "[DEBUG] ", log.Lmsgprefix)
	}

	// Run errors shouldn't show help by default.
	showHelp = false

	// Run the selected command.
	return rootCommand.Run(ctx)
}
