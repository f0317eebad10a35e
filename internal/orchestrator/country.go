package orchestrator

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// CountryCode returns the client's two-letter ISO country code, used only
// for OFAC gating and server-side routing. The probe is memoized for the
// life of the process: Cloudflare's trace endpoint first, ipinfo.io as a
// fallback, "US" if both fail.
func (c *Client) CountryCode(ctx context.Context) string {
	c.countryOnce.Do(func() {
		if cc, ok := probeCloudflare(ctx); ok {
			c.countryCode = cc
			return
		}
		if cc, ok := probeIPInfo(ctx); ok {
			c.countryCode = cc
			return
		}
		c.countryCode = "US"
	})
	return c.countryCode
}

var probeHTTPClient = &http.Client{Timeout: 5 * time.Second}

func probeCloudflare(ctx context.Context) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.cloudflare.com/cdn-cgi/trace", nil)
	if err != nil {
		return "", false
	}
	resp, err := probeHTTPClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(body), "\n") {
		if strings.HasPrefix(line, "loc=") {
			cc := strings.TrimSpace(strings.TrimPrefix(line, "loc="))
			if len(cc) == 2 {
				return strings.ToUpper(cc), true
			}
		}
	}
	return "", false
}

func probeIPInfo(ctx context.Context) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://ipinfo.io/country", nil)
	if err != nil {
		return "", false
	}
	resp, err := probeHTTPClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", false
	}
	cc := strings.ToUpper(strings.TrimSpace(string(body)))
	if len(cc) == 2 {
		return cc, true
	}
	return "", false
}
