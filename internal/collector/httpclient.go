package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"SolarBudget/internal/apperror"
)

const defaultTimeout = 30 * time.Second

// HTTPOptions configures the shared upstream client.
type HTTPOptions struct {
	ProxyURL string
	Timeout  time.Duration
	// RPS and Burst bound the request rate towards one provider; RPS <= 0 disables limiting.
	RPS   float64
	Burst int
}

type upstream struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newUpstream(opts HTTPOptions) *upstream {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if opts.ProxyURL != "" {
		if u, err := url.Parse(opts.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	u := &upstream{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		u.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return u
}

// get performs a GET and returns the body of a 200 response.
// Network, status and timeout failures are classified as transient.
func (u *upstream) get(ctx context.Context, endpoint string, header http.Header) ([]byte, error) {
	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			return nil, apperror.Transient("rate limit wait", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, apperror.Transient("request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Transient("read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Transient(fmt.Sprintf("status %d, body: %s", resp.StatusCode, truncate(body, 256)), nil)
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
