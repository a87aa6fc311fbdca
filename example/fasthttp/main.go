// FILE: lixenwraith/monitor/example/fasthttp/main.go
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/monitor"
	"github.com/lixenwraith/monitor/compat"
)

func main() {
	hub := compat.NewHub()

	// Duplicate connection errors under load collapse into summaries
	engine, err := monitor.NewBuilder().
		Directory("/var/log/fasthttp").
		Name("fasthttp").
		Level("info").
		CoalesceWindow(5 * time.Second).
		BufferSize(2048).
		Start(hub)
	if err != nil {
		panic(err)
	}
	defer engine.Stop()

	fasthttpAdapter := compat.NewFastHTTPAdapter(
		hub,
		compat.WithDefaultLevel(monitor.LevelInfo),
		compat.WithLevelDetector(customLevelDetector),
	)

	server := &fasthttp.Server{
		Handler: requestHandler,
		Logger:  fasthttpAdapter,

		Name:              "MyServer",
		Concurrency:       fasthttp.DefaultConcurrency,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		TCPKeepalive:      true,
		ReduceMemoryUsage: true,
	}

	fmt.Println("Starting server on :8080")
	if err := server.ListenAndServe(":8080"); err != nil {
		panic(err)
	}
}

func requestHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain")
	fmt.Fprintf(ctx, "Hello, world! Path: %s\n", ctx.Path())
}

func customLevelDetector(msg string) (int64, bool) {
	// Inspect specific fasthttp message patterns first
	if strings.Contains(msg, "connection cannot be served") {
		return monitor.LevelWarn, true
	}
	if strings.Contains(msg, "error when serving connection") {
		return monitor.LevelError, true
	}

	return compat.DetectLogLevel(msg)
}
