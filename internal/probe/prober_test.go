package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sentra-scan/sentra/internal/cache"
	"github.com/sentra-scan/sentra/internal/model"
)

func testConfig() model.ProbeConfig {
	return model.ProbeConfig{
		DNSTimeout:   500 * time.Millisecond,
		TCPTimeout:   2 * time.Second,
		HTTPTimeout:  3 * time.Second,
		UserAgent:    "Sentra-test/1.0",
		MaxBodyBytes: 1 << 20,
	}
}

func testTarget(t *testing.T, raw string) *model.ScanTarget {
	t.Helper()
	target, err := model.NormalizeTarget(raw)
	if err != nil {
		t.Fatalf("normalize %q: %v", raw, err)
	}
	return target
}

// newTestProber wires a prober whose network stages are stubbed.
func newTestProber(store cache.Store) *Prober {
	p := New(testConfig(), store, time.Hour, nil)
	p.resolve = func(ctx context.Context, host string) ([]net.IP, error) {
		return []net.IP{net.ParseIP("203.0.113.10")}, nil
	}
	p.reversePTR = func(ctx context.Context, ip net.IP) ([]string, error) {
		return nil, nil
	}
	p.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		client, server := net.Pipe()
		_ = server.Close()
		return client, nil
	}
	p.httpGet = func(ctx context.Context, url string) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("<html><body>ok</body></html>")),
		}, nil
	}
	return p
}

func TestProbe_DNSFailureIsOffline(t *testing.T) {
	p := newTestProber(cache.Nop{})
	p.resolve = func(ctx context.Context, host string) ([]net.IP, error) {
		return nil, fmt.Errorf("NXDOMAIN")
	}

	result := p.Probe(context.Background(), testTarget(t, "https://gone.example.com"))
	if result.Status != model.StatusOffline {
		t.Errorf("status = %v, want OFFLINE", result.Status)
	}
	if result.Pipeline != model.PipelinePassive {
		t.Errorf("pipeline = %v, want PASSIVE", result.Pipeline)
	}
	if result.DNSResolved {
		t.Error("dns_resolved should be false")
	}
	if _, ok := result.Evidence["dns_error"]; !ok {
		t.Error("missing dns_error evidence")
	}
}

func TestProbe_SinkholeIPSkipsActiveProbing(t *testing.T) {
	p := newTestProber(cache.Nop{})
	p.resolve = func(ctx context.Context, host string) ([]net.IP, error) {
		return []net.IP{net.ParseIP("192.42.118.4")}, nil // Shadowserver range
	}
	dialed := false
	p.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialed = true
		return nil, fmt.Errorf("should not dial")
	}

	result := p.Probe(context.Background(), testTarget(t, "https://sinkholed.example.com"))
	if result.Status != model.StatusSinkhole || result.Pipeline != model.PipelineSinkhole {
		t.Errorf("got %v/%v, want SINKHOLE/SINKHOLE", result.Status, result.Pipeline)
	}
	if dialed {
		t.Error("sinkhole pipeline must skip active probing")
	}
}

func TestProbe_SinkholePTR(t *testing.T) {
	p := newTestProber(cache.Nop{})
	p.reversePTR = func(ctx context.Context, ip net.IP) ([]string, error) {
		return []string{"host4.sinkhole.shadowserver.org"}, nil
	}

	result := p.Probe(context.Background(), testTarget(t, "https://bot-c2.example.com"))
	if result.Status != model.StatusSinkhole {
		t.Errorf("status = %v, want SINKHOLE", result.Status)
	}
	if result.Evidence["sinkhole_ptr"] == "" {
		t.Error("missing sinkhole_ptr evidence")
	}
}

func TestProbe_TCPFailureIsOffline(t *testing.T) {
	p := newTestProber(cache.Nop{})
	p.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, fmt.Errorf("connection refused")
	}

	result := p.Probe(context.Background(), testTarget(t, "https://closed.example.com"))
	if result.Status != model.StatusOffline {
		t.Errorf("status = %v, want OFFLINE", result.Status)
	}
	if !result.DNSResolved || result.TCPConnected {
		t.Errorf("stage flags wrong: dns=%v tcp=%v", result.DNSResolved, result.TCPConnected)
	}
}

func probeVia(t *testing.T, handler http.HandlerFunc) *model.ReachabilityResult {
	t.Helper()
	server := httptest.NewServer(handler)
	defer server.Close()

	p := newTestProber(cache.Nop{})
	p.httpGet = func(ctx context.Context, url string) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		if err != nil {
			return nil, err
		}
		return server.Client().Do(req)
	}
	return p.Probe(context.Background(), testTarget(t, "https://site.example.com"))
}

func TestProbe_ParkedPage(t *testing.T) {
	result := probeVia(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>This domain is parked free, courtesy of SedoParking.com</body></html>")
	})
	if result.Status != model.StatusParked || result.Pipeline != model.PipelineParked {
		t.Errorf("got %v/%v, want PARKED/PARKED", result.Status, result.Pipeline)
	}
}

func TestProbe_WAFChallenge(t *testing.T) {
	result := probeVia(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "<html><title>Just a moment...</title><body>Checking your browser before accessing</body></html>")
	})
	if result.Status != model.StatusWAFChallenge || result.Pipeline != model.PipelineWAF {
		t.Errorf("got %v/%v, want WAF_CHALLENGE/WAF", result.Status, result.Pipeline)
	}
}

func TestProbe_OnlineFullPipeline(t *testing.T) {
	result := probeVia(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", "max-age=63072000")
		fmt.Fprint(w, "<html><body>Welcome to our store</body></html>")
	})
	if result.Status != model.StatusOnline || result.Pipeline != model.PipelineFull {
		t.Errorf("got %v/%v, want ONLINE/FULL", result.Status, result.Pipeline)
	}
	if !result.HTTPOk || result.StatusCode != 200 {
		t.Errorf("http flags wrong: ok=%v code=%d", result.HTTPOk, result.StatusCode)
	}
	if result.Headers["Strict-Transport-Security"] == "" {
		t.Error("expected captured HSTS header")
	}
	if result.Body == "" {
		t.Error("expected body snapshot for content checks")
	}
}

func TestProbe_CacheShortCircuits(t *testing.T) {
	store := cache.NewMemoryStore(time.Minute, time.Minute)
	p := newTestProber(store)

	first := p.Probe(context.Background(), testTarget(t, "https://cached.example.com"))

	// Second probe must not touch the network at all.
	p.resolve = func(ctx context.Context, host string) ([]net.IP, error) {
		t.Fatal("resolve called on cache hit")
		return nil, nil
	}
	second := p.Probe(context.Background(), testTarget(t, "https://cached.example.com"))

	if second.Status != first.Status || second.ResolvedIP != first.ResolvedIP {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}
}
