package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"
)

// DefaultResolverURL is a plain-text what-is-my-IP service.
const DefaultResolverURL = "https://icanhazip.com"

// HTTPResolver discovers this host's externally reachable IPv4 address by
// asking a plain-text echo service over HTTP.
type HTTPResolver struct {
	URL    string
	Client *http.Client
}

// NewHTTPResolver returns a resolver against the default service with a
// bounded request timeout.
func NewHTTPResolver() *HTTPResolver {
	return &HTTPResolver{
		URL:    DefaultResolverURL,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Resolve fetches and parses the external address. Only IPv4 results are
// accepted: the rendezvous wire format carries dotted-quad addresses.
func (r *HTTPResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("resolve address: %w", err)
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("resolve address: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("resolve address: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("resolve address: read body: %w", err)
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(string(body)))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("resolve address: parse %q: %w", strings.TrimSpace(string(body)), err)
	}
	if addr.Is4In6() {
		addr = addr.Unmap()
	}
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("resolve address: got non-IPv4 address %s", addr)
	}
	return addr, nil
}
