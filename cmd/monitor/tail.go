// FILE: lixenwraith/monitor/cmd/monitor/tail.go
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lixenwraith/monitor"
	"github.com/lixenwraith/monitor/viewer"
)

var (
	debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	noteStyle  = lipgloss.NewStyle().Faint(true).Italic(true)
)

// TailCmd follows a session file with colour by level
type TailCmd struct {
	File     string        `arg:"" type:"path" help:"Session .log or .jsonl file"`
	Level    string        `short:"l" help:"Minimum level to show"`
	Category string        `short:"C" help:"Category prefix to show"`
	Grep     string        `short:"g" help:"Case-insensitive text to match"`
	Backlog  int           `short:"n" default:"-1" help:"Lines of history to show first (-1 uses tail_lines)"`
	Idle     time.Duration `default:"0s" help:"Idle notice interval (0 uses viewer_idle_sec)"`
}

func (c *TailCmd) Run(g *Globals) error {
	def := monitor.DefaultConfig()
	backlog := c.Backlog
	if backlog < 0 {
		backlog = int(def.TailLines)
	}
	idle := c.Idle
	if idle <= 0 {
		idle = def.ViewerIdle()
	}

	v := viewer.New(c.File,
		viewer.WithBacklog(backlog),
		viewer.WithIdle(idle),
		viewer.WithTimeLayout(def.TimestampFormat),
	)
	if err := v.SetFilter(viewer.Filter{Level: c.Level, Category: c.Category, Text: c.Grep}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- v.Run(ctx) }()

	for ev := range v.Events() {
		if ev.Rotated {
			fmt.Fprintln(g.Stdout, noteStyle.Render("-- file rotated --"))
		}
		if ev.Idle {
			fmt.Fprintln(g.Stdout, noteStyle.Render(fmt.Sprintf("-- idle for %s --", idle)))
		}
		for _, l := range ev.Lines {
			fmt.Fprintln(g.Stdout, styleFor(l).Render(l.Raw))
		}
	}
	return <-errc
}

func styleFor(l viewer.Line) lipgloss.Style {
	if !l.HasLevel {
		return lipgloss.NewStyle()
	}
	switch {
	case l.Level >= monitor.LevelError:
		return errorStyle
	case l.Level >= monitor.LevelWarn:
		return warnStyle
	case l.Level < monitor.LevelInfo:
		return debugStyle
	}
	return lipgloss.NewStyle()
}
