// FILE: lixenwraith/monitor/cmd/monitor/run.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/monitor"
	"github.com/lixenwraith/monitor/compat"
)

// RunCmd pipes stdin through an engine until EOF or a signal
type RunCmd struct {
	Config      string   `short:"c" type:"path" help:"TOML file with a [monitor] table"`
	Set         []string `short:"s" help:"Override a setting, key=value (repeatable)"`
	Category    string   `default:"stdin" help:"Category of records read from stdin"`
	MetricsAddr string   `help:"Serve Prometheus metrics on this address, e.g. :9108"`
	Verbose     bool     `short:"v" help:"Log engine diagnostics to stderr"`
}

func (c *RunCmd) Run(g *Globals) error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.ApplyOverride(c.Set...); err != nil {
		return err
	}

	logger := zap.NewNop()
	if c.Verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}
	defer logger.Sync()

	hub := compat.NewHub()
	engine := monitor.Init(hub, monitor.WithLogger(logger))
	if err := engine.Start(cfg); err != nil {
		return err
	}
	defer monitor.Teardown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reading stdin cannot be cancelled, so EOF ends the run through stop
	go func() {
		w := compat.NewLineWriter(hub, c.Category)
		_, _ = io.Copy(w, g.Stdin)
		_ = w.Close()
		stop()
	}()

	group, gctx := errgroup.WithContext(ctx)
	if c.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(monitor.NewCollector(engine))
		srv := &http.Server{
			Addr:              c.MetricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		group.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	group.Go(func() error {
		<-gctx.Done()
		return nil
	})
	runErr := group.Wait()

	_ = engine.Flush(cfg.StopTimeout())
	status := engine.Status()
	if err := monitor.Teardown(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	status.State = engine.State()
	status.Health = engine.Health()

	enc := json.NewEncoder(g.Stdout)
	enc.SetIndent("", "  ")
	return errors.Join(runErr, enc.Encode(status))
}

// loadConfig reads path, or returns the defaults when path is empty
func loadConfig(path string) (*monitor.Config, error) {
	if path == "" {
		return monitor.DefaultConfig(), nil
	}
	return monitor.NewConfigFromFile(path)
}
