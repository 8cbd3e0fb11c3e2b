package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// options are the command line flags.
type options struct {
	ConfigDir string
	Autostart bool
	Console   bool
	LogLevel  string
	Storage   string
	Listen    string
	Version   bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := pflag.NewFlagSet("trafficsim", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.ConfigDir, "config", "c", ".", "directory containing trafficsim.cfg.json")
	fs.BoolVar(&opts.Autostart, "autostart", false, "start every intersection after boot")
	fs.BoolVar(&opts.Console, "console", false, "read dispatcher commands from stdin")
	fs.StringVar(&opts.LogLevel, "log-level", "", "override logLevel (debug, info, warn, error)")
	fs.StringVar(&opts.Storage, "storage", "", "override storage.type (memory, sqlite, postgres, websocket)")
	fs.StringVar(&opts.Listen, "listen", "", "override gateway.listen")
	fs.BoolVarP(&opts.Version, "version", "v", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}
