package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/sentra-scan/sentra/internal/cache"
	"github.com/sentra-scan/sentra/internal/model"
	"github.com/sentra-scan/sentra/internal/util"
)

// Prober classifies a target into a pipeline mode via escalating DNS,
// TCP, and HTTP probes. A failed stage is terminal for that attempt; the
// prober never retries (the orchestrator decides whether to re-scan).
type Prober struct {
	cfg       model.ProbeConfig
	store     cache.Store
	ttl       time.Duration
	dnsServer string
	logger    *slog.Logger
	robots    *util.RobotsChecker

	// Injectable for tests.
	resolve    func(ctx context.Context, host string) ([]net.IP, error)
	reversePTR func(ctx context.Context, ip net.IP) ([]string, error)
	dial       func(ctx context.Context, network, addr string) (net.Conn, error)
	httpGet    func(ctx context.Context, url string) (*http.Response, error)
}

// New creates a Prober. store may be cache.Nop{} to disable the
// reachability cache.
func New(cfg model.ProbeConfig, store cache.Store, ttl time.Duration, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Prober{
		cfg:       cfg,
		store:     store,
		ttl:       ttl,
		dnsServer: systemDNSServer(),
		logger:    logger,
	}
	p.resolve = p.resolveDNS
	p.reversePTR = p.lookupPTR
	p.dial = (&net.Dialer{Timeout: cfg.TCPTimeout}).DialContext

	client := &http.Client{
		Timeout: cfg.HTTPTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}
	p.httpGet = func(ctx context.Context, url string) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", cfg.UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return client.Do(req)
	}

	return p
}

// UseRobots enables robots.txt politeness: a disallowed path downgrades
// the scan to the passive pipeline instead of fetching content.
func (p *Prober) UseRobots(checker *util.RobotsChecker) {
	p.robots = checker
}

// Probe classifies the target. A cache hit under the hostname
// short-circuits the entire probe.
func (p *Prober) Probe(ctx context.Context, target *model.ScanTarget) *model.ReachabilityResult {
	if data, found := p.store.Get(cache.NamespaceReachability, target.Hostname); found {
		var cached model.ReachabilityResult
		if err := json.Unmarshal(data, &cached); err == nil {
			p.logger.Debug("reachability cache hit", "hostname", target.Hostname, "status", cached.Status)
			return &cached
		}
	}

	result := p.probe(ctx, target)

	if data, err := json.Marshal(result); err == nil {
		// Last-writer-wins: concurrent scans of the same hostname may
		// both write; entries are idempotent within the TTL window.
		_ = p.store.Set(cache.NamespaceReachability, target.Hostname, data, p.ttl)
	}
	return result
}

func (p *Prober) probe(ctx context.Context, target *model.ScanTarget) *model.ReachabilityResult {
	started := time.Now()
	result := &model.ReachabilityResult{
		Evidence: make(map[string]string),
		ProbedAt: started.UTC(),
	}
	finish := func(status model.ReachabilityStatus, mode model.PipelineMode) *model.ReachabilityResult {
		result.Status = status
		result.Pipeline = mode
		result.Duration = time.Since(started)
		p.logger.Debug("probe finished",
			"hostname", target.Hostname, "status", status, "pipeline", mode,
			"duration", result.Duration)
		return result
	}

	// Stage 1: DNS.
	dnsCtx, cancel := context.WithTimeout(ctx, p.cfg.DNSTimeout)
	ips, err := p.resolve(dnsCtx, target.Hostname)
	cancel()
	if err != nil || len(ips) == 0 {
		result.Evidence["dns_error"] = errString(err, "no records")
		return finish(model.StatusOffline, model.PipelinePassive)
	}
	result.DNSResolved = true
	result.ResolvedIP = ips[0].String()

	// Stage 2: sinkhole match on IP ranges and PTR patterns. Sinkholed
	// targets skip active probing entirely.
	for _, ip := range ips {
		if cidr, ok := isSinkholeIP(ip); ok {
			result.Evidence["sinkhole_ip"] = ip.String()
			result.Evidence["sinkhole_range"] = cidr
			return finish(model.StatusSinkhole, model.PipelineSinkhole)
		}
	}
	ptrCtx, cancel := context.WithTimeout(ctx, p.cfg.DNSTimeout)
	names, _ := p.reversePTR(ptrCtx, ips[0])
	cancel()
	if name, ok := isSinkholePTR(names); ok {
		result.Evidence["sinkhole_ptr"] = name
		return finish(model.StatusSinkhole, model.PipelineSinkhole)
	}

	// Stage 3: TCP.
	addr := net.JoinHostPort(result.ResolvedIP, fmt.Sprintf("%d", target.Port))
	tcpCtx, cancel := context.WithTimeout(ctx, p.cfg.TCPTimeout)
	conn, err := p.dial(tcpCtx, "tcp", addr)
	cancel()
	if err != nil {
		result.Evidence["tcp_error"] = err.Error()
		return finish(model.StatusOffline, model.PipelinePassive)
	}
	_ = conn.Close()
	result.TCPConnected = true

	// Stage 4: HTTP.
	httpCtx, cancel := context.WithTimeout(ctx, p.cfg.HTTPTimeout)
	defer cancel()
	if p.robots != nil {
		if allowed, _ := p.robots.CanFetch(httpCtx, target.CanonicalURL); !allowed {
			result.Evidence["robots_disallow"] = target.CanonicalURL
			return finish(model.StatusOnline, model.PipelinePassive)
		}
	}
	resp, err := p.httpGet(httpCtx, target.Scheme+"://"+target.Hostname+portSuffix(target))
	if err != nil {
		result.Evidence["http_error"] = err.Error()
		return finish(model.StatusOffline, model.PipelinePassive)
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	result.HTTPOk = resp.StatusCode >= 200 && resp.StatusCode < 400
	result.Headers = captureHeaders(resp.Header)

	body, _ := io.ReadAll(io.LimitReader(resp.Body, p.cfg.MaxBodyBytes))
	result.Body = string(body)

	// Stage 5: parking signatures.
	if sig, ok := matchParking(result.Body); ok {
		result.Evidence["parking_signature"] = sig
		return finish(model.StatusParked, model.PipelineParked)
	}

	// Stage 6: WAF / CAPTCHA challenge. Header markers alone only count
	// when the status code already looks like a block.
	blocked := resp.StatusCode == 403 || resp.StatusCode == 429 || resp.StatusCode == 503
	if sig, ok := matchWAF(result.Body, nil); ok {
		result.Evidence["waf_signature"] = sig
		return finish(model.StatusWAFChallenge, model.PipelineWAF)
	}
	if blocked {
		if sig, ok := matchWAF("", result.Headers); ok {
			result.Evidence["waf_signature"] = sig
			return finish(model.StatusWAFChallenge, model.PipelineWAF)
		}
	}

	return finish(model.StatusOnline, model.PipelineFull)
}

// resolveDNS queries A then AAAA with the configured per-query deadline.
func (p *Prober) resolveDNS(ctx context.Context, host string) ([]net.IP, error) {
	client := &dns.Client{}
	var ips []net.IP

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), qtype)
		resp, _, err := client.ExchangeContext(ctx, msg, p.dnsServer)
		if err != nil {
			if len(ips) > 0 {
				break
			}
			return nil, err
		}
		for _, rr := range resp.Answer {
			switch record := rr.(type) {
			case *dns.A:
				ips = append(ips, record.A)
			case *dns.AAAA:
				ips = append(ips, record.AAAA)
			}
		}
		if len(ips) > 0 {
			break // A records suffice; skip the AAAA round trip
		}
	}

	if len(ips) == 0 {
		return nil, fmt.Errorf("no A/AAAA records for %s", host)
	}
	return ips, nil
}

// lookupPTR reverse-resolves an IP for sinkhole pattern matching.
func (p *Prober) lookupPTR(ctx context.Context, ip net.IP) ([]string, error) {
	arpa, err := dns.ReverseAddr(ip.String())
	if err != nil {
		return nil, err
	}

	client := &dns.Client{}
	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)
	resp, _, err := client.ExchangeContext(ctx, msg, p.dnsServer)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			names = append(names, strings.TrimSuffix(ptr.Ptr, "."))
		}
	}
	return names, nil
}

// systemDNSServer reads the resolver from resolv.conf, falling back to
// a public resolver.
func systemDNSServer() string {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return "8.8.8.8:53"
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port)
}

func captureHeaders(h http.Header) map[string]string {
	out := make(map[string]string)
	for _, key := range []string{
		"Server", "Content-Type", "Content-Security-Policy",
		"Strict-Transport-Security", "X-Frame-Options", "X-Content-Type-Options",
		"X-Sucuri-ID", "X-Iinfo", "X-Cdn", "X-Datadome", "X-Distil-Cs",
		"Location", "Refresh",
	} {
		if val := h.Get(key); val != "" {
			out[key] = val
		}
	}
	return out
}

func portSuffix(t *model.ScanTarget) string {
	if (t.Scheme == "https" && t.Port == 443) || (t.Scheme == "http" && t.Port == 80) {
		return ""
	}
	return fmt.Sprintf(":%d", t.Port)
}

func errString(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
