package kalman

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/statespace/ssm"
)

// Job is one independent likelihood evaluation.
type Job struct {
	Model   ssm.Model
	Data    Observations
	Options []Option
}

// Result is the outcome of a Job. Err holds infeasibility and contract
// errors of that job only.
type Result struct {
	Likelihood Likelihood
	Err        error
}

// EvaluateAll evaluates the likelihood of every job, at most limit at a
// time (limit <= 0 means no limit). Each evaluation owns its workspace, so
// results are identical to sequential calls of Evaluate. The returned error
// is non-nil only when ctx is cancelled.
func EvaluateAll(ctx context.Context, jobs []Job, limit int) ([]Result, error) {
	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lik, err := Evaluate(job.Model, job.Data, job.Options...)
			results[i] = Result{Likelihood: lik, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
