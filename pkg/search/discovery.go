package search

import "context"

// discoverSplits fetches the published splits of indexID overlapping
// the optional [startGTE, endLT) window and turns each into a
// cost-weighted SearchJob, using costFn to estimate per-split expense.
// Adapted from the original implementation's list_relevant_splits,
// generalized here to accept any CostFunc rather than a fixed
// doc-count heuristic (see DESIGN.md's Open Question decisions on the
// cost function).
func discoverSplits(ctx context.Context, catalog CatalogClient, indexID string, startGTE, endLT *int64, costFn CostFunc) ([]Job, map[string]SplitRef, error) {
	splits, err := catalog.ListSplits(ctx, indexID, startGTE, endLT)
	if err != nil {
		return nil, nil, InternalErrorWrap("failed to list splits", err)
	}

	jobs := make([]Job, 0, len(splits))
	offsetsBySplit := make(map[string]SplitRef, len(splits))
	for _, s := range splits {
		ref := SplitRef{SplitID: s.SplitID, FooterOffsets: s.FooterOffsets}
		offsetsBySplit[s.SplitID] = ref
		jobs = append(jobs, SearchJob{Offsets: ref, Cost_: costFn(s)})
	}
	return jobs, offsetsBySplit, nil
}
