// FILE: lixenwraith/monitor/cmd/monitor/main.go
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
)

// CLI is the command tree of the monitor tool
type CLI struct {
	Run      RunCmd      `cmd:"" help:"Monitor lines read from stdin into a session log"`
	Tail     TailCmd     `cmd:"" help:"Follow a session log file"`
	Settings SettingsCmd `cmd:"" help:"Export or validate settings files"`
	Status   StatusCmd   `cmd:"" help:"Show the latest session of a log directory"`
}

// Globals carries the output streams shared by all commands
type Globals struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
}

func main() {
	var c CLI
	ctx := kong.Parse(&c,
		kong.Name("monitor"),
		kong.Description("Diagnostic log monitor: coalescing session logs with rotation, watchdog and live tail"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true, Summary: true}),
	)

	globals := &Globals{Stdout: os.Stdout, Stderr: os.Stderr, Stdin: os.Stdin}
	if err := ctx.Run(globals); err != nil {
		fmt.Fprintf(os.Stderr, "monitor: %v\n", err)
		os.Exit(1)
	}
}
