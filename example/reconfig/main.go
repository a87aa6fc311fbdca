// FILE: lixenwraith/monitor/example/reconfig/main.go
package main

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/monitor"
	"github.com/lixenwraith/monitor/compat"
)

// Simulate rapid reconfiguration while the host keeps logging
func main() {
	var count atomic.Int64

	hub := compat.NewHub()
	engine := monitor.New(hub)

	cfg := monitor.DefaultConfig()
	cfg.Directory = "./logs"
	if err := engine.Start(cfg); err != nil {
		fmt.Printf("Initial start error: %v\n", err)
		return
	}

	// Log something constantly
	go func() {
		for i := 0; ; i++ {
			hub.Log(monitor.LevelInfo, "host", fmt.Sprintf("Test log %d", i))
			count.Add(1)
			time.Sleep(time.Millisecond)
		}
	}()

	// Alternate routing changes (applied in place) with buffer changes (session restart)
	for i := 0; i < 10; i++ {
		next := engine.Config()
		if i%2 == 0 {
			next.BufferSize = int64(100 * (i + 1))
		} else {
			next.Level = []string{"debug", "info", "warn"}[i%3]
		}
		if err := engine.Reload(next); err != nil {
			fmt.Printf("Reload error: %v\n", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)
	stats := engine.Stats()
	fmt.Printf("Records attempted: %d, routed: %d, written: %d, dropped: %d\n",
		count.Load(), stats.Routed, stats.Written, stats.Dropped)

	if err := engine.Stop(); err != nil {
		fmt.Printf("Stop error: %v\n", err)
	}

	for _, b := range engine.Breadcrumbs(20) {
		fmt.Printf("%s %s\n", b.Time.Format("15:04:05.000"), b.Event)
	}
}
