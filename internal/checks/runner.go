// Package checks contains the risk category runners. Each runner is
// stateless, declares which pipeline modes it supports, and produces a
// bounded CategoryResult with itemized findings. Every band boundary and
// point value comes from the scan configuration, never from code.
package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/sentra-scan/sentra/internal/model"
)

// Input is the read-only context handed to every runner.
type Input struct {
	Target       *model.ScanTarget
	Reachability *model.ReachabilityResult
	Category     *model.CategoryConfig
	Now          time.Time
}

// Runner is one pluggable risk category analyzer.
type Runner interface {
	// ID matches a category id in the scan configuration.
	ID() string
	// Modes lists the pipeline modes under which the runner executes.
	Modes() []model.PipelineMode
	// Run analyzes the target. It must not abort the scan: an external
	// dependency failure degrades to a zero-score result.
	Run(ctx context.Context, in *Input) model.CategoryResult
}

// allModes: runners that work from the URL and passive data alone.
var allModes = []model.PipelineMode{
	model.PipelineFull, model.PipelinePassive, model.PipelineParked,
	model.PipelineWAF, model.PipelineSinkhole,
}

// fullOnly: runners that need a live, unchallenged HTTP response.
var fullOnly = []model.PipelineMode{model.PipelineFull}

// newResult seeds an empty result for a category.
func newResult(cat *model.CategoryConfig) model.CategoryResult {
	return model.CategoryResult{
		Category: cat.ID,
		Label:    cat.Label,
		MaxScore: cat.MaxScore,
		Findings: []model.Finding{},
	}
}

// hit records a finding that awarded points and adds them to the score.
func hit(res *model.CategoryResult, chk model.CheckConfig, points int, desc string, evidence map[string]interface{}) {
	if points < 0 {
		points = 0
	}
	res.Findings = append(res.Findings, model.Finding{
		CheckID:        chk.ID,
		Severity:       model.SeverityForRatio(points, chk.Points),
		Points:         points,
		PointsPossible: chk.Points,
		Description:    desc,
		Evidence:       evidence,
	})
	res.Score += points
}

// pass records an explicit zero-point finding so consumers can tell
// "scored zero because it's safe" from "check was unavailable".
func pass(res *model.CategoryResult, chk model.CheckConfig, desc string) {
	res.Findings = append(res.Findings, model.Finding{
		CheckID:        chk.ID,
		Severity:       model.SeveritySafe,
		Points:         0,
		PointsPossible: chk.Points,
		Description:    desc,
	})
}

// Degraded builds the documented placeholder for a runner whose
// external dependency failed: score 0, one LOW finding, never an error.
func Degraded(cat *model.CategoryConfig, checkID string, err error) model.CategoryResult {
	res := newResult(cat)
	res.Findings = append(res.Findings, model.Finding{
		CheckID:        checkID,
		Severity:       model.SeverityLow,
		Points:         0,
		PointsPossible: cat.MaxScore,
		Description:    fmt.Sprintf("check could not be completed: %v", err),
		Degraded:       true,
	})
	return res
}

// Skipped builds the placeholder for a category the pipeline mode
// excluded. It still occupies the category's slot in the result list.
func Skipped(cat *model.CategoryConfig, mode model.PipelineMode) model.CategoryResult {
	res := newResult(cat)
	res.Skipped = true
	res.Findings = append(res.Findings, model.Finding{
		CheckID:        cat.ID + "_skipped",
		Severity:       model.SeveritySafe,
		Points:         0,
		PointsPossible: cat.MaxScore,
		Description:    fmt.Sprintf("category not applicable under %s pipeline", mode),
		Degraded:       true,
	})
	return res
}
