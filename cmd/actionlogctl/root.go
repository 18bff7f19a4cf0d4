package main

import (
	"io"
	"log"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
)

type rootConfig struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	serverURI string
	app       string
	logLevel  string
	output    string

	info, debug *log.Logger
}

func (cfg *rootConfig) registerBaseFlags(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 'u', LongName: "uri" /*    */, Value: ffval.NewValueDefault(&cfg.serverURI, "localhost:8001") /*            */, Usage: "query server URI" /*                          */, Placeholder: "URI"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "app" /*    */, Value: ffval.NewValueDefault(&cfg.app, "actionlogctl") /*                    */, Usage: "app name emitted as x-client" /*              */, Placeholder: "APP"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'l', LongName: "log" /*    */, Value: ffval.NewEnum(&cfg.logLevel, "info", "i", "debug", "d", "none", "n") /* */, Usage: "log level: i/info, d/debug, n/none" /*      */, Placeholder: "LEVEL"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'o', LongName: "output" /* */, Value: ffval.NewEnum(&cfg.output, "ndjson", "prettyjson") /*                 */, Usage: "output format: ndjson, prettyjson" /*         */, Placeholder: "FORMAT"})
}

type logWriter struct{ *log.Logger }

func (w *logWriter) Write(p []byte) (int, error) {
	w.Logger.Print(string(p))
	return len(p), nil
}
