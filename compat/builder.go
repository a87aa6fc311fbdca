// FILE: lixenwraith/monitor/compat/builder.go
package compat

import (
	"go.uber.org/zap"
)

// Builder creates adapters that publish into one shared Hub. Without WithHub
// a new hub is created on first use.
type Builder struct {
	hub *Hub
}

// NewBuilder creates a new adapter builder
func NewBuilder() *Builder {
	return &Builder{}
}

// WithHub sets the hub the adapters publish into; nil is ignored
func (b *Builder) WithHub(h *Hub) *Builder {
	if h != nil {
		b.hub = h
	}
	return b
}

// Hub returns the shared hub, creating it if necessary
func (b *Builder) Hub() *Hub {
	if b.hub == nil {
		b.hub = NewHub()
	}
	return b.hub
}

// BuildGnet creates a gnet adapter
func (b *Builder) BuildGnet(opts ...GnetOption) *GnetAdapter {
	return NewGnetAdapter(b.Hub(), opts...)
}

// BuildStructuredGnet creates a gnet adapter that extracts key=value fields
func (b *Builder) BuildStructuredGnet(opts ...GnetOption) *StructuredGnetAdapter {
	return NewStructuredGnetAdapter(b.Hub(), opts...)
}

// BuildFastHTTP creates a fasthttp adapter
func (b *Builder) BuildFastHTTP(opts ...FastHTTPOption) *FastHTTPAdapter {
	return NewFastHTTPAdapter(b.Hub(), opts...)
}

// BuildZap creates a zap logger whose entries go to the hub under category
func (b *Builder) BuildZap(category string, opts ...zap.Option) *zap.Logger {
	return NewZapLogger(b.Hub(), category, opts...)
}

// BuildWriter creates a line writer for category
func (b *Builder) BuildWriter(category string) *LineWriter {
	return NewLineWriter(b.Hub(), category)
}

// --- Example Usage ---
//
//	hub := compat.NewHub()
//	engine := monitor.Init(hub)
//	if err := engine.Start(cfg); err != nil { /* handle error */ }
//	defer monitor.Teardown()
//
//	b := compat.NewBuilder().WithHub(hub)
//	go gnet.Run(events, "tcp://:9000", gnet.WithLogger(b.BuildGnet()))
//	server := &fasthttp.Server{Handler: handler, Logger: b.BuildFastHTTP()}
//	log.SetOutput(b.BuildWriter("stdlog"))
