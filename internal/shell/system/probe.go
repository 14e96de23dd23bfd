package system

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// =============================================================================
// HTTP Health Probe
// =============================================================================

// Prober performs the post-activation HTTP check against the deployed
// service. The probe runs from the operator's machine, so it exercises the
// full path through the firewall and reverse proxy rather than asking the
// supervisor alone.
type Prober struct {
	url    string
	client *http.Client
}

// NewProber creates a prober for the given URL.
func NewProber(url string, timeout time.Duration) *Prober {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Prober{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Probe issues a GET and treats any response below 500 as healthy; the
// service answering 401/404 still proves the process is up and routed.
func (p *Prober) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("probe %s: server error %d", p.url, resp.StatusCode)
	}
	return nil
}
