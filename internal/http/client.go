package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/invdash/invdash/internal/config"
)

// CreateClient returns the HTTP client used for backend calls: proxy
// support from ConfigureHTTPClient plus HTTP/2 when talking to the backend
// directly.
//
// The overall client timeout is cleared; uploads and downloads are long
// and every call carries its own context deadline instead.
func CreateClient(cfg *config.Config) (*nethttp.Client, error) {
	baseClient, err := ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	tr, ok := baseClient.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport in ntlmssp.Negotiator; leave it alone
		baseClient.Timeout = 0
		return baseClient, nil
	}

	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	// Proxies often mishandle HTTP/2 multiplexing; DISABLE_HTTP2 forces
	// HTTP/1.1 for debugging.
	if proxyActive(cfg) || os.Getenv("DISABLE_HTTP2") == "true" {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	baseClient.Transport = tr
	baseClient.Timeout = 0

	return baseClient, nil
}

func proxyActive(cfg *config.Config) bool {
	switch cfg.ProxyMode {
	case ProxyNone, "":
		return false
	case ProxySystem:
		return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		return true
	}
}
