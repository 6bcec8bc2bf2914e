package checks

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Resolver is the DNS collaborator contract for the dns category.
type Resolver interface {
	LookupNS(ctx context.Context, domain string) ([]string, error)
	LookupMX(ctx context.Context, domain string) ([]string, error)
	LookupTXT(ctx context.Context, domain string) ([]string, error)
	LookupA(ctx context.Context, host string) ([]string, error)
}

// DNSResolver resolves through the system resolver with a per-query
// deadline.
type DNSResolver struct {
	server  string
	timeout time.Duration
}

// NewDNSResolver creates a resolver against the given server
// ("host:port"); an empty server uses resolv.conf.
func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	if server == "" {
		conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil || len(conf.Servers) == 0 {
			server = "8.8.8.8:53"
		} else {
			server = net.JoinHostPort(conf.Servers[0], conf.Port)
		}
	}
	return &DNSResolver{server: server, timeout: timeout}
}

func (r *DNSResolver) query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	qctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	client := &dns.Client{}
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	resp, _, err := client.ExchangeContext(qctx, msg, r.server)
	if err != nil {
		return nil, err
	}
	return resp.Answer, nil
}

// LookupNS returns the domain's nameserver hosts.
func (r *DNSResolver) LookupNS(ctx context.Context, domain string) ([]string, error) {
	answers, err := r.query(ctx, domain, dns.TypeNS)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range answers {
		if ns, ok := rr.(*dns.NS); ok {
			out = append(out, strings.TrimSuffix(ns.Ns, "."))
		}
	}
	return out, nil
}

// LookupMX returns the domain's mail exchanger hosts.
func (r *DNSResolver) LookupMX(ctx context.Context, domain string) ([]string, error) {
	answers, err := r.query(ctx, domain, dns.TypeMX)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range answers {
		if mx, ok := rr.(*dns.MX); ok {
			out = append(out, strings.TrimSuffix(mx.Mx, "."))
		}
	}
	return out, nil
}

// LookupA returns the host's IPv4 addresses.
func (r *DNSResolver) LookupA(ctx context.Context, host string) ([]string, error) {
	answers, err := r.query(ctx, host, dns.TypeA)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range answers {
		if a, ok := rr.(*dns.A); ok {
			out = append(out, a.A.String())
		}
	}
	return out, nil
}

// LookupTXT returns the domain's TXT strings, each record joined.
func (r *DNSResolver) LookupTXT(ctx context.Context, domain string) ([]string, error) {
	answers, err := r.query(ctx, domain, dns.TypeTXT)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range answers {
		if txt, ok := rr.(*dns.TXT); ok {
			out = append(out, strings.Join(txt.Txt, ""))
		}
	}
	return out, nil
}
