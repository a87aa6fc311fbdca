// FILE: lixenwraith/monitor/cmd/monitor/status.go
package main

import (
	"fmt"
	"os"

	"github.com/lixenwraith/monitor"
)

// StatusCmd prints the manifest of a log directory with current file sizes
type StatusCmd struct {
	Dir string `arg:"" type:"existingdir" help:"Log directory"`
}

func (c *StatusCmd) Run(g *Globals) error {
	manifest, err := monitor.ReadManifest(c.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(g.Stdout, "started  %s\n", manifest["STARTED"])
	for _, key := range []string{"FULL", "ERRORS", "JSON"} {
		path := manifest[key]
		if path == "" {
			continue
		}
		size := "missing"
		if info, err := os.Stat(path); err == nil {
			size = fmt.Sprintf("%d bytes", info.Size())
		}
		fmt.Fprintf(g.Stdout, "%-8s %s (%s)\n", key, path, size)
	}
	return nil
}
