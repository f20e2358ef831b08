package toolchain

import (
	"context"

	"compartmentalize/internal/logging"
	"compartmentalize/internal/types"

	"golang.org/x/sync/errgroup"
)

// ProduceAll runs p for every compartment with at most jobs in flight
// (jobs <= 0 means one). The first failure cancels the remaining builds and is
// returned; artifacts come back in ordinal order.
func ProduceAll(ctx context.Context, p types.Producer, set *types.CompartmentSet, jobs int) ([]*types.Artifact, error) {
	if jobs <= 0 {
		jobs = 1
	}

	timer := logging.StartTimer(logging.CategoryToolchain, "produce all")
	defer timer.StopWithInfo()

	artifacts := make([]*types.Artifact, set.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for _, c := range set.All() {
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, err := p.Produce(gctx, c)
			if err != nil {
				return err
			}
			artifacts[c.Ordinal] = a
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}
