package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunSpec binds a run configuration to factories for its inputs. Each run
// gets its own source and strategy instance, so specs can share nothing and
// run concurrently.
type RunSpec struct {
	Config      RunConfig
	NewSource   func() (SnapshotSource, error)
	NewStrategy func() Strategy
}

// RunAll executes the given replays concurrently, at most maxWorkers at a
// time. Results keep the order of specs. The first fatal run error cancels
// the remaining runs.
func RunAll(ctx context.Context, specs []RunSpec, maxWorkers int, log *zap.Logger) ([]*RunResult, error) {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]*RunResult, len(specs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i, spec := range specs {
		g.Go(func() error {
			src, err := spec.NewSource()
			if err != nil {
				return fmt.Errorf("run %q: source: %w", spec.Config.Name, err)
			}
			res, err := NewRunner(spec.Config, log).Run(ctx, src, spec.NewStrategy())
			if err != nil {
				return fmt.Errorf("run %q: %w", spec.Config.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
