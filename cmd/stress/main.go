// FILE: lixenwraith/monitor/cmd/stress/main.go
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lixenwraith/monitor"
	"github.com/lixenwraith/monitor/compat"
)

const (
	totalBursts     = 100
	recordsPerBurst = 500
	maxMessageSize  = 2000
	numWorkers      = 50
	// Share of records drawn from a small set of repeating messages
	repeatRatio = 0.6
)

const configFile = "stress_config.toml"

// Example TOML content for stress test
var tomlContent = `
[monitor]
  level = "debug"
  name = "stress_test"
  directory = "./logs"
  jsonl_enabled = true
  buffer_size = 500
  max_size_kb = 1024 # Force frequent rotation
  max_archives = 10
  compress_archives = true
  coalesce_window_sec = 1.0
  heartbeat_sec = 2
  watchdog_interval_sec = 1.0
`

var levels = []int64{
	monitor.LevelDebug,
	monitor.LevelInfo,
	monitor.LevelWarn,
	monitor.LevelError,
}

var repeating = []string{
	"QPainter::begin: Paint device returned engine == 0",
	"libpng warning: iCCP: known incorrect sRGB profile",
	"connection reset by peer",
	"texture cache miss for tile",
}

var hub *compat.Hub

func generateRandomMessage(size int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "
	var sb strings.Builder
	sb.Grow(size)
	for i := 0; i < size; i++ {
		sb.WriteByte(chars[rand.Intn(len(chars))])
	}
	return sb.String()
}

// recordBurst simulates a burst of host logging activity
func recordBurst(burstID int) {
	for i := 0; i < recordsPerBurst; i++ {
		level := levels[rand.Intn(len(levels))]
		msg := repeating[rand.Intn(len(repeating))]
		if rand.Float64() > repeatRatio {
			msg = generateRandomMessage(rand.Intn(maxMessageSize) + 10)
		}
		hub.Log(level, "stress", msg,
			"wkr", burstID%numWorkers,
			"bst", burstID,
			"seq", i,
		)
	}
}

// worker goroutine function
func worker(burstChan chan int, wg *sync.WaitGroup, completedBursts *atomic.Int64) {
	defer wg.Done()
	for burstID := range burstChan {
		recordBurst(burstID)
		completed := completedBursts.Add(1)
		if completed%10 == 0 || completed == totalBursts {
			fmt.Printf("\rProgress: %d/%d bursts completed", completed, totalBursts)
		}
	}
}

func main() {
	fmt.Println("--- Monitor Stress Test ---")

	if err := os.WriteFile(configFile, []byte(tomlContent), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		os.Exit(1)
	}
	cfg, err := monitor.NewConfigFromFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	_ = os.RemoveAll(cfg.Directory)

	hub = compat.NewHub()
	engine := monitor.New(hub)
	if err := engine.Start(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start monitor: %v\n", err)
		os.Exit(1)
	}
	sess, _ := engine.Session()
	fmt.Printf("Monitor started. Session log: %s\n", sess.LogPath)

	fmt.Printf("Starting stress test: %d workers, %d bursts, %d records/burst.\n",
		numWorkers, totalBursts, recordsPerBurst)
	fmt.Println("Watch for 'records were dropped' lines and duplicate summaries in the log.")
	fmt.Println("Press Ctrl+C to stop early.")

	burstChan := make(chan int, numWorkers)
	var wg sync.WaitGroup
	completedBursts := atomic.Int64{}
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	stopChan := make(chan struct{})

	go func() {
		<-sigChan
		fmt.Println("\n[Signal Received] Stopping burst generation...")
		close(stopChan)
	}()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go worker(burstChan, &wg, &completedBursts)
	}

	startTime := time.Now()
	for i := 1; i <= totalBursts; i++ {
		select {
		case burstChan <- i:
		case <-stopChan:
			fmt.Println("[Signal Received] Halting burst submission.")
			goto endLoop
		}
	}
endLoop:
	close(burstChan)

	fmt.Println("\nWaiting for workers to finish...")
	wg.Wait()
	duration := time.Since(startTime)
	finalCompleted := completedBursts.Load()

	fmt.Printf("\n--- Test Finished ---")
	fmt.Printf("\nCompleted %d/%d bursts in %v\n", finalCompleted, totalBursts, duration.Round(time.Millisecond))
	if finalCompleted > 0 && duration.Seconds() > 0 {
		perSec := float64(finalCompleted*recordsPerBurst) / duration.Seconds()
		fmt.Printf("Approximate records/sec: %.2f\n", perSec)
	}

	if err := engine.Flush(10 * time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "Flush error: %v\n", err)
	}
	stats := engine.Stats()
	if err := engine.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Monitor stop error: %v\n", err)
	} else {
		fmt.Println("Monitor stopped.")
	}

	out, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Printf("Final counters:\n%s\n", out)
	fmt.Printf("Check session files in '%s' and the config '%s'.\n", cfg.Directory, configFile)
}
