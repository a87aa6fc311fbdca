// FILE: lixenwraith/monitor/example/gnet/main.go
package main

import (
	"github.com/panjf2000/gnet/v2"

	"github.com/lixenwraith/monitor"
	"github.com/lixenwraith/monitor/compat"
)

// Example gnet event handler
type echoServer struct {
	gnet.BuiltinEventEngine
}

func (es *echoServer) OnTraffic(c gnet.Conn) gnet.Action {
	buf, _ := c.Next(-1)
	c.Write(buf)
	return gnet.None
}

func main() {
	// The hub is the host log source; gnet logs flow through it into the engine
	builder := compat.NewBuilder()

	engine, err := monitor.NewBuilder().
		Directory("/var/log/gnet").
		Name("gnet").
		Level("debug").
		JSONL(true).
		Start(builder.Hub())
	if err != nil {
		panic(err)
	}
	defer engine.Stop()

	gnetAdapter := builder.BuildStructuredGnet(compat.WithGnetCategory("gnet.echo"))

	err = gnet.Run(
		&echoServer{},
		"tcp://127.0.0.1:9000",
		gnet.WithMulticore(true),
		gnet.WithLogger(gnetAdapter),
		gnet.WithReusePort(true),
	)
	if err != nil {
		panic(err)
	}
}
