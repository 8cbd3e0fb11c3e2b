package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shubham78763/trafficSignal/internal/dispatcher"
	"github.com/shubham78763/trafficSignal/internal/util"
)

// runConsole dispatches one command per input line, e.g.
//
//	:INTERSECTION:CREATE: "Main & 1st" "Downtown" "41.8781,-87.6298"
//
// and writes each result as JSON. Arguments reach handlers still quoted;
// the parser unquotes them. It returns when in is exhausted.
func runConsole(in io.Reader, out io.Writer, d *dispatcher.Dispatcher) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "help" {
			fmt.Fprintln(out, strings.Join(d.Commands(), "\n"))
			continue
		}

		args := util.SplitCommandLine(line)
		result, err := d.Dispatch(dispatcher.Event{Command: util.CleanArg(args[0]), Args: args[1:], Source: dispatcher.SourceConsole})
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if result == nil {
			fmt.Fprintln(out, "ok")
			continue
		}
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, string(data))
	}
	return scanner.Err()
}
