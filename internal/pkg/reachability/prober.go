package reachability

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Prober drives a Notifier by periodically requesting a health URL. Any
// HTTP response below 500 counts as connected.
type Prober struct {
	url      string
	client   *http.Client
	interval time.Duration
	notifier *Notifier
}

func NewProber(url string, interval time.Duration, timeout time.Duration, notifier *Notifier) *Prober {
	return &Prober{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		interval: interval,
		notifier: notifier,
	}
}

// Check probes once and updates the notifier.
func (p *Prober) Check(ctx context.Context) bool {
	connected := p.probe(ctx)
	p.notifier.Set(connected)
	return connected
}

func (p *Prober) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		slog.Error("Reachability probe request invalid", "url", p.url, "error", err)
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		slog.Debug("Reachability probe failed", "url", p.url, "error", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// Run probes until ctx is cancelled.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}
