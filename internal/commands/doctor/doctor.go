// Package doctor runs diagnostic checks against a relay deployment.
package doctor

import (
	"context"
	"time"
)

// DefaultCheckTimeout bounds a single check, so an unreachable database
// cannot stall the whole report.
const DefaultCheckTimeout = 5 * time.Second

// Status is the outcome of a single check item.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// CheckItem is one line of a check's report.
type CheckItem struct {
	Label   string `json:"label"`
	Status  Status `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Fixable bool   `json:"fixable,omitempty"`
}

// Result groups the items reported by one check.
type Result struct {
	Name      string      `json:"name"`
	Items     []CheckItem `json:"items"`
	ElapsedMS int64       `json:"elapsed_ms"`
}

// Check is a single diagnostic.
type Check interface {
	Name() string
	Run(ctx context.Context) Result
}

// RunAll runs checks in order, each under its own deadline. Checks left once
// ctx is done are reported as failed without running.
func RunAll(ctx context.Context, checks []Check, timeout time.Duration) []Result {
	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{
				Name:  check.Name(),
				Items: []CheckItem{{Label: "not run", Status: StatusFail, Detail: err.Error()}},
			})
			continue
		}

		results = append(results, runOne(ctx, check, timeout))
	}
	return results
}

func runOne(ctx context.Context, check Check, timeout time.Duration) Result {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	result := check.Run(ctx)
	result.ElapsedMS = time.Since(start).Milliseconds()
	return result
}

// Totals counts items across results.
type Totals struct {
	Passed  int `json:"passed"`
	Warned  int `json:"warned"`
	Failed  int `json:"failed"`
	Fixable int `json:"fixable"`
}

// Healthy reports whether nothing failed.
func (t Totals) Healthy() bool {
	return t.Failed == 0
}

// Tally counts passed, warned, failed and fixable items.
func Tally(results []Result) Totals {
	var t Totals
	for _, r := range results {
		for _, item := range r.Items {
			switch item.Status {
			case StatusPass:
				t.Passed++
			case StatusWarn:
				t.Warned++
			case StatusFail:
				t.Failed++
			}
			if item.Fixable && item.Status != StatusPass {
				t.Fixable++
			}
		}
	}
	return t
}
