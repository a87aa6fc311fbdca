// FILE: lixenwraith/monitor/webhook.go
package monitor

import (
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// webhook posts selected records to an HTTP endpoint from its own goroutine.
// Delivery is best effort: a full queue drops, a failed post is counted and not retried.
type webhook struct {
	client  *fasthttp.Client
	url     string
	timeout time.Duration
	queue   chan []byte

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	onResult func(err error)
}

// newWebhook starts a webhook worker for cfg, or returns nil when none is configured
func (e *Engine) newWebhook(cfg *Config) *webhook {
	if cfg.WebhookURL == "" {
		return nil
	}
	size := cfg.WebhookQueue
	if size < 1 {
		size = 1
	}
	w := &webhook{
		client: &fasthttp.Client{
			Name:                "lixenwraith-monitor",
			Dial:                e.dial,
			ReadTimeout:         cfg.WebhookTimeout(),
			WriteTimeout:        cfg.WebhookTimeout(),
			MaxIdleConnDuration: 30 * time.Second,
		},
		url:     cfg.WebhookURL,
		timeout: cfg.WebhookTimeout(),
		queue:   make(chan []byte, size),
		onResult: func(err error) {
			if err == nil {
				e.state.WebhookSent.Add(1)
				return
			}
			if e.state.WebhookFailed.Add(1) == 1 {
				e.logger.Warn("monitor webhook delivery failed", zap.Error(err))
			}
			e.crumb("webhook delivery failed: %v", err)
		},
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// enqueue hands a payload to the worker without blocking
func (w *webhook) enqueue(body []byte) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	select {
	case w.queue <- append([]byte(nil), body...):
		return true
	default:
		return false
	}
}

func (w *webhook) run() {
	defer w.wg.Done()
	for body := range w.queue {
		w.onResult(w.post(body))
	}
}

// post performs one delivery attempt
func (w *webhook) post(body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(w.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := w.client.DoTimeout(req, resp, w.timeout); err != nil {
		return &DeliveryError{URL: w.url, Err: err}
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return &DeliveryError{URL: w.url, Status: code}
	}
	return nil
}

// stop closes the queue and waits up to timeout for pending deliveries
func (w *webhook) stop(timeout time.Duration) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
	w.client.CloseIdleConnections()
}
