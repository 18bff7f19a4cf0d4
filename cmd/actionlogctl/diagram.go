package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"

	"github.com/corewire/actionlog/actionloghttp"
)

type diagramConfig struct {
	*rootConfig

	hours       int
	excludeApps []string
}

func (cfg *diagramConfig) register(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "hours" /*   */, Value: ffval.NewValueDefault(&cfg.hours, 24) /*  */, Usage: "aggregation window for the arch diagram"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'x', LongName: "exclude" /* */, Value: ffval.NewUniqueList(&cfg.excludeApps) /*  */, NoDefault: true, Usage: "app to exclude from the arch diagram (repeatable)"})
}

func (cfg *diagramConfig) Exec(ctx context.Context, args []string) error {
	client := actionloghttp.NewClient(http.DefaultClient, cfg.serverURI, cfg.app)

	var path string
	switch {
	case len(args) == 0 || args[0] == "arch":
		q := url.Values{}
		q.Set("hours", fmt.Sprintf("%d", cfg.hours))
		if len(cfg.excludeApps) > 0 {
			q.Set("exclude", strings.Join(cfg.excludeApps, ","))
		}
		path = "/diagram/arch?" + q.Encode()
	case args[0] == "action":
		if len(args) < 2 {
			return fmt.Errorf("diagram action requires an action id")
		}
		path = "/diagram/action/" + url.PathEscape(args[1])
	default:
		return fmt.Errorf("unknown diagram %q (want arch or action)", args[0])
	}

	cfg.debug.Printf("fetching %s", path)

	dot, err := client.Diagram(ctx, path)
	if err != nil {
		return fmt.Errorf("fetch diagram: %w", err)
	}

	fmt.Fprint(cfg.stdout, dot)
	return nil
}
