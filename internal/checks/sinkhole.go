package checks

import (
	"context"

	"github.com/sentra-scan/sentra/internal/model"
)

// SinkholeRunner converts a SINKHOLE reachability classification into
// score. The category's configured weight clears the critical threshold
// so sinkholed infrastructure classifies CRITICAL through the normal
// aggregation path rather than a special case.
type SinkholeRunner struct{}

// NewSinkholeRunner creates the sinkhole category runner.
func NewSinkholeRunner() *SinkholeRunner { return &SinkholeRunner{} }

func (r *SinkholeRunner) ID() string                  { return model.CategorySinkhole }
func (r *SinkholeRunner) Modes() []model.PipelineMode { return allModes }

func (r *SinkholeRunner) Run(ctx context.Context, in *Input) model.CategoryResult {
	res := newResult(in.Category)
	chk := in.Category.Check("sinkholed")

	if in.Reachability.Status == model.StatusSinkhole {
		evidence := make(map[string]interface{}, len(in.Reachability.Evidence))
		for k, v := range in.Reachability.Evidence {
			evidence[k] = v
		}
		hit(&res, chk, chk.Points,
			"domain resolves to known sinkhole infrastructure: it was seized or neutralized as malicious",
			evidence)
	} else {
		pass(&res, chk, "domain does not resolve to sinkhole infrastructure")
	}

	res.Clamp()
	return res
}
