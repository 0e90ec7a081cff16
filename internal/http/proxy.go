// Package http builds the HTTP client the backend API client runs on:
// proxy modes, no_proxy bypass, NTLM and transport timeouts.
package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http/httpproxy"

	"github.com/invdash/invdash/internal/config"
	"github.com/invdash/invdash/internal/constants"
)

// Proxy modes accepted in [proxy] mode.
const (
	ProxyNone   = "no-proxy"
	ProxySystem = "system"
	ProxyBasic  = "basic"
	ProxyNTLM   = "ntlm"
)

const defaultProxyPort = 8080

// ConfigureHTTPClient returns a client routed according to cfg's proxy mode.
// basic and ntlm without a host connect directly with a warning.
func ConfigureHTTPClient(cfg *config.Config) (*nethttp.Client, error) {
	transport := newTransport()
	client := &nethttp.Client{Transport: transport, Timeout: cfg.Timeout}
	if client.Timeout <= 0 {
		client.Timeout = constants.DefaultHTTPTimeout
	}

	mode := strings.ToLower(cfg.ProxyMode)
	switch mode {
	case ProxyNone, "":
		return client, nil

	case ProxySystem:
		transport.Proxy = nethttp.ProxyFromEnvironment

	case ProxyBasic, ProxyNTLM:
		if cfg.ProxyHost == "" {
			log.Warn().Str("mode", mode).Msg("Proxy host missing, connecting directly")
			return client, nil
		}
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy)
		if NeedsProxyPassword(cfg) {
			log.Warn().Msg("Proxy user set without a password; proxy auth is off until " + config.EnvProxyPassword + " is set")
		}
		if mode == ProxyNTLM {
			client.Transport = ntlmssp.Negotiator{RoundTripper: transport}
		}

	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", cfg.ProxyMode)
	}

	if cfg.ProxyWarmup && (mode == ProxySystem || cfg.ProxyPassword != "") {
		if err := warmupProxy(client, cfg.BaseURL); err != nil {
			return nil, fmt.Errorf("proxy warmup failed: %w", err)
		}
	}
	return client, nil
}

func newTransport() *nethttp.Transport {
	return &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   constants.HTTPDialTimeout,
			KeepAlive: constants.HTTPDialKeepAlive,
		}).DialContext,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
	}
}

// buildProxyURL embeds credentials only when both user and password are
// set; an empty password in the URL breaks auth on some proxies.
func buildProxyURL(cfg *config.Config) *url.URL {
	port := cfg.ProxyPort
	if port == 0 {
		port = defaultProxyPort
	}
	u := &url.URL{Scheme: "http", Host: net.JoinHostPort(cfg.ProxyHost, fmt.Sprint(port))}
	if cfg.ProxyUser != "" && cfg.ProxyPassword != "" {
		u.User = url.UserPassword(cfg.ProxyUser, cfg.ProxyPassword)
	}
	return u
}

// warmupProxy sends one liveness request through the proxy so a broken
// proxy fails at startup instead of on the first upload.
func warmupProxy(client *nethttp.Client, baseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), constants.ProxyWarmupTimeout)
	defer cancel()

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, strings.TrimRight(baseURL, "/")+"/grand-total", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("warmup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("warmup request returned server error: %d", resp.StatusCode)
	}
	return nil
}

// proxyFuncWithBypass routes every request through proxyURL except hosts
// matched by noProxy (names, *.wildcards, CIDRs; comma separated).
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string) func(*nethttp.Request) (*url.URL, error) {
	if noProxy == "" {
		return nethttp.ProxyURL(proxyURL)
	}
	pc := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	match := pc.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		u, err := match(req.URL)
		if u == nil {
			log.Debug().Str("host", req.URL.Host).Msg("Proxy bypass (direct connection)")
		}
		return u, err
	}
}

// NeedsProxyPassword reports an authenticating proxy mode with a user but
// no password.
func NeedsProxyPassword(cfg *config.Config) bool {
	switch strings.ToLower(cfg.ProxyMode) {
	case ProxyBasic, ProxyNTLM:
		return cfg.ProxyUser != "" && cfg.ProxyPassword == ""
	}
	return false
}
