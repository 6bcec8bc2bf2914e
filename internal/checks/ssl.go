package checks

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"

	"github.com/sentra-scan/sentra/internal/model"
)

// SSLRunner scores transport security. The no_https check is lexical
// and runs under every pipeline mode; certificate inspection needs a
// live TLS endpoint and only happens on the FULL pipeline.
type SSLRunner struct {
	timeout time.Duration

	// dialTLS is injectable for tests.
	dialTLS func(ctx context.Context, addr, serverName string) (*x509.Certificate, []*x509.Certificate, error)
}

// NewSSLRunner creates the ssl category runner.
func NewSSLRunner(timeout time.Duration) *SSLRunner {
	r := &SSLRunner{timeout: timeout}
	r.dialTLS = r.fetchCertificate
	return r
}

func (r *SSLRunner) ID() string                  { return model.CategorySSL }
func (r *SSLRunner) Modes() []model.PipelineMode { return allModes }

func (r *SSLRunner) Run(ctx context.Context, in *Input) model.CategoryResult {
	res := newResult(in.Category)

	httpsCheck := in.Category.Check("no_https")
	if in.Target.Scheme != "https" {
		hit(&res, httpsCheck, httpsCheck.Points, "site served over plain HTTP", nil)
		res.Clamp()
		return res // Nothing to inspect without TLS
	}
	pass(&res, httpsCheck, "site uses HTTPS")

	if in.Reachability.Pipeline != model.PipelineFull {
		res.Clamp()
		return res // Certificate checks need a live endpoint
	}

	addr := net.JoinHostPort(in.Target.Hostname, fmt.Sprintf("%d", in.Target.Port))
	leaf, chain, err := r.dialTLS(ctx, addr, in.Target.Hostname)
	if err != nil {
		// The category keeps its lexical findings; cert inspection
		// alone degrades.
		res.Findings = append(res.Findings, model.Finding{
			CheckID:        "certificate_inspection",
			Severity:       model.SeverityLow,
			PointsPossible: 0,
			Description:    fmt.Sprintf("certificate could not be inspected: %v", err),
			Degraded:       true,
		})
		res.Clamp()
		return res
	}

	expiringCheck := in.Category.Check("cert_expiring")
	daysLeft := leaf.NotAfter.Sub(in.Now).Hours() / 24
	if points := expiringCheck.BandPoints(daysLeft); points > 0 {
		desc := fmt.Sprintf("certificate expires in %.0f days", daysLeft)
		if daysLeft < 0 {
			desc = fmt.Sprintf("certificate expired %.0f days ago", -daysLeft)
		}
		hit(&res, expiringCheck, points, desc,
			map[string]interface{}{"not_after": leaf.NotAfter, "days_left": daysLeft})
	} else {
		pass(&res, expiringCheck, fmt.Sprintf("certificate valid for %.0f more days", daysLeft))
	}

	selfSignedCheck := in.Category.Check("self_signed")
	if isSelfSigned(leaf, chain) {
		hit(&res, selfSignedCheck, selfSignedCheck.Points, "certificate is self-signed",
			map[string]interface{}{"issuer": leaf.Issuer.String()})
	} else {
		pass(&res, selfSignedCheck, "certificate chains to a CA")
	}

	nameCheck := in.Category.Check("hostname_mismatch")
	if err := leaf.VerifyHostname(in.Target.Hostname); err != nil {
		hit(&res, nameCheck, nameCheck.Points, "certificate is not valid for this hostname",
			map[string]interface{}{"dns_names": leaf.DNSNames})
	} else {
		pass(&res, nameCheck, "certificate covers the hostname")
	}

	ageCheck := in.Category.Check("cert_age")
	certAge := in.Now.Sub(leaf.NotBefore).Hours() / 24
	if points := ageCheck.BandPoints(certAge); points > 0 {
		hit(&res, ageCheck, points,
			fmt.Sprintf("certificate issued %.0f days ago", certAge),
			map[string]interface{}{"not_before": leaf.NotBefore})
	} else {
		pass(&res, ageCheck, "certificate is not freshly issued")
	}

	res.Clamp()
	return res
}

// fetchCertificate completes a TLS handshake and returns the leaf and
// presented chain. Verification is disabled deliberately: the point is
// to inspect whatever the server presents, bad certs included.
func (r *SSLRunner) fetchCertificate(ctx context.Context, addr, serverName string) (*x509.Certificate, []*x509.Certificate, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: r.timeout},
		Config: &tls.Config{
			ServerName:         serverName,
			InsecureSkipVerify: true, //nolint:gosec // inspection, not trust
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = conn.Close() }()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, nil, fmt.Errorf("no peer certificates presented")
	}
	return state.PeerCertificates[0], state.PeerCertificates, nil
}

func isSelfSigned(leaf *x509.Certificate, chain []*x509.Certificate) bool {
	if len(chain) > 1 {
		return false
	}
	if leaf.Issuer.String() != leaf.Subject.String() {
		return false
	}
	return leaf.CheckSignatureFrom(leaf) == nil
}
