// FILE: lixenwraith/monitor/cmd/monitor/settings.go
package main

import (
	"fmt"
	"os"

	"github.com/lixenwraith/monitor"
)

// SettingsCmd groups the settings file commands
type SettingsCmd struct {
	Export SettingsExportCmd `cmd:"" help:"Print settings as canonical JSON"`
	Import SettingsImportCmd `cmd:"" help:"Validate a JSON settings file and print it canonically"`
	Schema SettingsSchemaCmd `cmd:"" help:"List every setting with its type and default"`
}

type SettingsExportCmd struct {
	Config string   `short:"c" type:"path" help:"TOML file with a [monitor] table"`
	Set    []string `short:"s" help:"Override a setting, key=value (repeatable)"`
}

func (c *SettingsExportCmd) Run(g *Globals) error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.ApplyOverride(c.Set...); err != nil {
		return err
	}
	data, err := monitor.ExportJSON(cfg)
	if err != nil {
		return err
	}
	_, err = g.Stdout.Write(data)
	return err
}

type SettingsImportCmd struct {
	File string `arg:"" type:"existingfile" help:"JSON settings file"`
}

func (c *SettingsImportCmd) Run(g *Globals) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	cfg, err := monitor.ImportJSON(data)
	if err != nil {
		return err
	}
	out, err := monitor.ExportJSON(cfg)
	if err != nil {
		return err
	}
	_, err = g.Stdout.Write(out)
	return err
}

type SettingsSchemaCmd struct{}

func (c *SettingsSchemaCmd) Run(g *Globals) error {
	for _, e := range monitor.Describe(monitor.DefaultConfig()) {
		fmt.Fprintf(g.Stdout, "%-26s %-7s %v\n", e.Key, e.Kind, e.Default)
	}
	return nil
}
