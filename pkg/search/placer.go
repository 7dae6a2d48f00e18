package search

// DefaultJobPlacer implements JobPlacer by balancing total assigned
// cost across a split's candidate workers, adapted from the teacher's
// allocator.go selectNodeForShard (pkg/master/allocation/allocator.go):
// that function sorts a split's candidate data nodes by current shard
// count and picks the least loaded one. Here the loaded-ness tracked
// is cost-so-far within this single placement call (not cluster-wide
// shard count, since the root owns no cluster state across calls),
// and candidates come from LeafClientPool.Workers rather than a
// cluster-wide node list.
type DefaultJobPlacer struct {
	pool LeafClientPool
}

// NewDefaultJobPlacer builds a JobPlacer over pool.
func NewDefaultJobPlacer(pool LeafClientPool) *DefaultJobPlacer {
	return &DefaultJobPlacer{pool: pool}
}

// AssignJobs implements JobPlacer. Placement guarantees: no job goes
// to an excluded worker; choice among a split's replicas is stable
// with respect to split identity (LeafClientPool.Workers already
// returns replicas in a stable order); and total cost per worker is
// approximately balanced by always handing a job to its least-loaded
// non-excluded candidate.
func (p *DefaultJobPlacer) AssignJobs(jobs []Job, exclude map[string]struct{}) ([]WorkerJobs, error) {
	costByWorker := make(map[string]uint64)
	groups := make(map[string]*WorkerJobs)
	// Preserve a stable iteration order for the returned slice: the
	// order workers are first selected in.
	var order []string

	for _, job := range jobs {
		candidates := p.pool.Workers(job.SplitID(), exclude)
		if len(candidates) == 0 {
			return nil, PlacementFailure(job.SplitID())
		}

		chosen := leastLoaded(candidates, costByWorker)
		costByWorker[chosen.ID()] += uint64(job.Cost())

		group, ok := groups[chosen.ID()]
		if !ok {
			group = &WorkerJobs{Worker: chosen}
			groups[chosen.ID()] = group
			order = append(order, chosen.ID())
		}
		group.Jobs = append(group.Jobs, job)
	}

	out := make([]WorkerJobs, 0, len(order))
	for _, id := range order {
		out = append(out, *groups[id])
	}
	return out, nil
}

// leastLoaded returns the candidate with the lowest cost-so-far,
// breaking ties by the candidate's position in the (already
// stably-ordered) list so repeated calls are deterministic.
func leastLoaded(candidates []LeafClient, costByWorker map[string]uint64) LeafClient {
	best := candidates[0]
	bestCost := costByWorker[best.ID()]
	for _, c := range candidates[1:] {
		if cost := costByWorker[c.ID()]; cost < bestCost {
			best, bestCost = c, cost
		}
	}
	return best
}

var _ JobPlacer = (*DefaultJobPlacer)(nil)
