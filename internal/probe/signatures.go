package probe

import (
	"net"
	"strings"
)

// Parking-page markup emitted by the major parking services. Matching is
// case-insensitive substring over the first body snapshot.
var parkingSignatures = []string{
	"this domain is parked",
	"domain is for sale",
	"buy this domain",
	"sedoparking.com",
	"www.parkingcrew.net",
	"parklogic.com",
	"godaddy.com/domains/domain-broker",
	"hugedomains.com",
	"dan.com/buy-domain",
	"afternic.com",
	"this web page is parked",
	"domainmarket.com",
}

// Challenge markers from the common WAF / CAPTCHA interstitials.
var wafSignatures = []string{
	"checking your browser before accessing",
	"cf-browser-verification",
	"cf_chl_opt",
	"attention required! | cloudflare",
	"ddos-guard",
	"just a moment...",
	"/cdn-cgi/challenge-platform/",
	"_incapsula_resource",
	"incapsula incident id",
	"request unsuccessful. incapsula",
	"are you a robot",
	"g-recaptcha",
	"h-captcha",
	"perimeterx",
	"px-captcha",
	"akamai bot manager",
}

// Challenge headers checked alongside body markers.
var wafHeaderSignatures = map[string][]string{
	"Server":      {"cloudflare", "ddos-guard", "awselb/2.0"},
	"X-Sucuri-ID": {""},
	"X-Iinfo":     {""}, // Incapsula
	"X-Cdn":       {"imperva"},
	"X-Datadome":  {""},
	"X-Distil-Cs": {""},
}

// Sinkhole IP ranges operated by security vendors and registrars.
// A resolved IP inside any range marks the target SINKHOLE.
var sinkholeCIDRs = []string{
	"192.42.116.0/22",  // Shadowserver
	"198.98.120.0/24",  // Conficker working group
	"104.244.14.0/24",  // Kaspersky sinkhole
	"23.253.126.58/32", // Anubis
	"54.244.52.192/32", // Team Cymru
	"91.233.244.0/24",  // CERT.pl
}

// PTR suffixes and substrings that identify sinkholed infrastructure
// even when the IP range is unknown.
var sinkholePTRPatterns = []string{
	"sinkhole",
	"sinkdns",
	"shadowserver.org",
	"microsoftinternetsafety.net",
	"honeypot",
	"blackhole",
}

var sinkholeNets []*net.IPNet

func init() {
	for _, cidr := range sinkholeCIDRs {
		if _, ipnet, err := net.ParseCIDR(cidr); err == nil {
			sinkholeNets = append(sinkholeNets, ipnet)
		}
	}
}

// isSinkholeIP reports whether the IP falls inside a known sinkhole range.
func isSinkholeIP(ip net.IP) (string, bool) {
	for _, n := range sinkholeNets {
		if n.Contains(ip) {
			return n.String(), true
		}
	}
	return "", false
}

// isSinkholePTR reports whether any PTR name matches a sinkhole pattern.
func isSinkholePTR(names []string) (string, bool) {
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, pattern := range sinkholePTRPatterns {
			if strings.Contains(lower, pattern) {
				return name, true
			}
		}
	}
	return "", false
}

// matchParking returns the first matching parking signature.
func matchParking(body string) (string, bool) {
	lower := strings.ToLower(body)
	for _, sig := range parkingSignatures {
		if strings.Contains(lower, sig) {
			return sig, true
		}
	}
	return "", false
}

// matchWAF returns the first matching challenge signature from body or
// headers.
func matchWAF(body string, headers map[string]string) (string, bool) {
	lower := strings.ToLower(body)
	for _, sig := range wafSignatures {
		if strings.Contains(lower, sig) {
			return sig, true
		}
	}
	for header, values := range wafHeaderSignatures {
		got, ok := headers[header]
		if !ok {
			continue
		}
		for _, v := range values {
			if v == "" || strings.Contains(strings.ToLower(got), v) {
				return "header:" + header, true
			}
		}
	}
	return "", false
}
