package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/utils"
	"golang.org/x/sync/errgroup"
)

// ProcessFunc handles one job. index is the job's 1-based position.
type ProcessFunc func(ctx context.Context, index int, job utils.TransferJob) error

// Run executes jobs with at most numWorkers in flight and returns one error
// slot per job. A failing job never stops the others; only a cancelled
// context does.
func Run(ctx context.Context, jobs []utils.TransferJob, numWorkers int, process ProcessFunc) []error {
	if numWorkers < 1 {
		numWorkers = 1
	}
	results := make([]error, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for i, job := range jobs {
		if gctx.Err() != nil {
			results[i] = gctx.Err()
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = err
				return nil
			}
			results[i] = safeProcess(gctx, i+1, job, process)
			if results[i] != nil {
				log.Error().Str("op", "scheduler/scheduler").Msgf("job %d (%s) failed: %v", i+1, job.Source, results[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func safeProcess(ctx context.Context, index int, job utils.TransferJob, process ProcessFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing %s: %v", job.Source, r)
		}
	}()
	return process(ctx, index, job)
}
