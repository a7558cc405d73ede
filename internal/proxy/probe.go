package proxy

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	xproxy "golang.org/x/net/proxy"
)

// NewTransport builds an http.Transport that routes through the endpoint.
// SOCKS5 endpoints get a dialer from x/net/proxy; HTTP(S) endpoints use the
// standard proxy URL mechanism. A nil endpoint yields a direct transport.
func NewTransport(ep *Endpoint, timeout time.Duration) (*http.Transport, error) {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}

	tr := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		IdleConnTimeout:       timeout,
		TLSHandshakeTimeout:   timeout / 2,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if ep == nil {
		return tr, nil
	}

	switch ep.Scheme {
	case "socks5":
		var auth *xproxy.Auth
		if ep.Username != "" {
			auth = &xproxy.Auth{User: ep.Username, Password: ep.Password}
		}
		d, err := xproxy.SOCKS5("tcp", ep.Key(), auth, dialer)
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer for %s: %w", ep.Key(), err)
		}
		cd, ok := d.(xproxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks5 dialer for %s does not support context", ep.Key())
		}
		tr.DialContext = cd.DialContext
	default:
		tr.Proxy = http.ProxyURL(ep.URL())
	}
	return tr, nil
}

// Probe checks that the endpoint can actually reach the outside world by
// requesting a lightweight echo URL through it. Used by the harvester to
// filter candidates before they enter the pool.
func Probe(ctx context.Context, ep *Endpoint, probeURL string, timeout time.Duration) error {
	tr, err := NewTransport(ep, timeout)
	if err != nil {
		return err
	}
	defer tr.CloseIdleConnections()

	client := &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return fmt.Errorf("probe via %s: status %d", ep.Key(), resp.StatusCode)
	}
	return nil
}
