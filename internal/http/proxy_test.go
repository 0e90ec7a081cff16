package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/Azure/go-ntlmssp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invdash/invdash/internal/config"
)

func TestProxyFuncWithBypass(t *testing.T) {
	proxyURL, err := url.Parse("http://proxy.corp:8080")
	require.NoError(t, err)

	tests := []struct {
		name       string
		noProxy    string
		url        string
		wantBypass bool
	}{
		{"empty list always proxies", "", "https://api.example.com/data", false},
		{"wildcard subdomain", "*.example.com", "https://api.example.com/data", true},
		{"exact domain", "example.com", "https://example.com/data", true},
		{"bare domain covers subdomains", "example.com", "https://api.example.com/data", true},
		{"cidr", "10.0.0.0/8", "http://10.1.2.3:8080/api", true},
		{"non-matching host", "*.internal.corp,10.0.0.0/8", "https://reports.example.org/local-files", false},
		{"list wildcard", "*.example.com, 192.168.0.0/16, internal.corp", "https://api.example.com/data", true},
		{"list cidr", "*.example.com, 192.168.0.0/16, internal.corp", "http://192.168.1.100/api", true},
		{"list exact", "*.example.com, 192.168.0.0/16, internal.corp", "https://internal.corp/status", true},
		{"list miss", "*.example.com, 192.168.0.0/16, internal.corp", "https://reports.example.org/local-files", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, tt.url, nil)
			require.NoError(t, err)

			got, err := proxyFuncWithBypass(proxyURL, tt.noProxy)(req)
			require.NoError(t, err)
			if tt.wantBypass {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, "proxy.corp:8080", got.Host)
		})
	}
}

func TestConfigureHTTPClient_Modes(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		host      string
		wantErr   bool
		wantProxy bool
		wantNTLM  bool
	}{
		{"no proxy", ProxyNone, "", false, false, false},
		{"empty mode", "", "", false, false, false},
		{"system", ProxySystem, "", false, true, false},
		{"basic", ProxyBasic, "proxy.corp", false, true, false},
		{"basic without host connects directly", ProxyBasic, "", false, false, false},
		{"ntlm", ProxyNTLM, "proxy.corp", false, false, true},
		{"ntlm without host connects directly", ProxyNTLM, "", false, false, false},
		{"unknown", "socks", "", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			cfg.ProxyMode = tt.mode
			cfg.ProxyHost = tt.host

			client, err := ConfigureHTTPClient(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			if tt.wantNTLM {
				assert.IsType(t, ntlmssp.Negotiator{}, client.Transport)
				return
			}
			tr, ok := client.Transport.(*http.Transport)
			require.True(t, ok, "got %T", client.Transport)
			assert.Equal(t, tt.wantProxy, tr.Proxy != nil)
		})
	}
}

func TestConfigureHTTPClient_Warmup(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/grand-total", r.URL.Path)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	cfg := config.NewConfig()
	cfg.BaseURL = srv.URL
	cfg.ProxyMode = ProxySystem
	cfg.ProxyWarmup = true

	_, err := ConfigureHTTPClient(cfg)
	require.NoError(t, err)

	status.Store(http.StatusBadGateway)
	_, err = ConfigureHTTPClient(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proxy warmup failed")
}

func TestBuildProxyURL(t *testing.T) {
	cfg := config.NewConfig()
	cfg.ProxyHost = "proxy.corp"
	cfg.ProxyUser = "svc"

	u := buildProxyURL(cfg)
	assert.Equal(t, "proxy.corp:8080", u.Host, "default port")
	assert.Nil(t, u.User, "no credentials without a password")

	cfg.ProxyPort = 3128
	cfg.ProxyPassword = "pw"
	u = buildProxyURL(cfg)
	assert.Equal(t, "proxy.corp:3128", u.Host)
	require.NotNil(t, u.User)
	assert.Equal(t, "svc", u.User.Username())
}

func TestNeedsProxyPassword(t *testing.T) {
	cfg := config.NewConfig()
	cfg.ProxyMode = ProxyBasic
	cfg.ProxyUser = "svc"
	assert.True(t, NeedsProxyPassword(cfg))

	cfg.ProxyMode = ProxyNTLM
	assert.True(t, NeedsProxyPassword(cfg))

	cfg.ProxyPassword = "pw"
	assert.False(t, NeedsProxyPassword(cfg))

	cfg.ProxyMode = ProxySystem
	cfg.ProxyPassword = ""
	assert.False(t, NeedsProxyPassword(cfg), "system mode never asks")
}

func TestCreateClient_NoTimeout(t *testing.T) {
	client, err := CreateClient(config.NewConfig())
	require.NoError(t, err)
	assert.Zero(t, client.Timeout)
}
