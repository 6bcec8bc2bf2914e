package checks

import (
	"context"
	"fmt"

	"github.com/sentra-scan/sentra/internal/model"
)

// HeadersRunner scores missing security response headers. FULL pipeline
// only: challenge and parking pages serve their own headers, not the
// site's.
type HeadersRunner struct{}

// NewHeadersRunner creates the security_headers category runner.
func NewHeadersRunner() *HeadersRunner { return &HeadersRunner{} }

func (r *HeadersRunner) ID() string                  { return model.CategoryHeaders }
func (r *HeadersRunner) Modes() []model.PipelineMode { return fullOnly }

var headerChecks = []struct {
	checkID string
	header  string
	label   string
}{
	{"no_csp", "Content-Security-Policy", "Content-Security-Policy"},
	{"no_hsts", "Strict-Transport-Security", "Strict-Transport-Security"},
	{"no_xfo", "X-Frame-Options", "X-Frame-Options"},
	{"no_xcto", "X-Content-Type-Options", "X-Content-Type-Options"},
}

func (r *HeadersRunner) Run(ctx context.Context, in *Input) model.CategoryResult {
	if in.Reachability.Headers == nil {
		return Degraded(in.Category, "headers_fetch", fmt.Errorf("no response headers captured"))
	}

	res := newResult(in.Category)
	for _, hc := range headerChecks {
		chk := in.Category.Check(hc.checkID)
		if _, present := in.Reachability.Headers[hc.header]; present {
			pass(&res, chk, hc.label+" is set")
		} else {
			hit(&res, chk, chk.Points, hc.label+" header missing", nil)
		}
	}

	res.Clamp()
	return res
}
