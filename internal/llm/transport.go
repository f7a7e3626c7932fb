package llm

import (
	"net/http"
	"net/url"
	"time"
)

// newProxyFunc routes model traffic through the configured proxies.
// With none configured it falls back to the environment.
func newProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// newHTTPClient builds the client every provider talks through
func newHTTPClient(config Config, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = newProxyFunc(config.HTTPProxy, config.HTTPSProxy)
	return &http.Client{Timeout: timeout, Transport: transport}
}
