package llm

import (
	"net/http"
	"testing"
	"time"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := newProxyFunc("http://plain:3128", "http://secure:3129")

	req, _ := http.NewRequest(http.MethodGet, "https://api.openai.com/v1/models", nil)
	u, err := proxy(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if u == nil || u.Host != "secure:3129" {
		t.Errorf("Expected HTTPS proxy for https request, got %v", u)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://localhost:11434/api/tags", nil)
	u, err = proxy(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if u == nil || u.Host != "plain:3128" {
		t.Errorf("Expected HTTP proxy for http request, got %v", u)
	}
}

func TestNewHTTPClient(t *testing.T) {
	c := newHTTPClient(Config{HTTPSProxy: "http://secure:3129"}, 5*time.Second)
	if c.Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Expected *http.Transport, got %T", c.Transport)
	}

	req, _ := http.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil)
	u, err := tr.Proxy(req)
	if err != nil || u == nil || u.Host != "secure:3129" {
		t.Errorf("Expected configured proxy, got %v (%v)", u, err)
	}
}
