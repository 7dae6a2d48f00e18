package search

// jobsToLeafRequest builds a LeafSearchRequest from a list of
// SearchJobs, adapted from the original implementation's
// jobs_to_leaf_request helper (kept here as a standalone, tested
// function rather than inlined into RootSearch, matching the
// original's own decomposition — see SPEC_FULL.md §4).
func jobsToLeafRequest(req SearchRequest, docMapperStr, indexURI string, jobs []Job) LeafSearchRequest {
	offsets := make([]SplitRef, 0, len(jobs))
	for _, j := range jobs {
		offsets = append(offsets, jobOffsets(j))
	}
	return LeafSearchRequest{
		SearchRequest: req.normalizedForLeaf(),
		SplitOffsets:  offsets,
		DocMapper:     docMapperStr,
		IndexURI:      indexURI,
	}
}

// jobOffsets extracts the SplitRef a Job concerns, regardless of its
// concrete job type.
func jobOffsets(j Job) SplitRef {
	switch v := j.(type) {
	case SearchJob:
		return v.Offsets
	case FetchDocsJob:
		return v.Offsets
	default:
		// A split ref carrying only the split ID; callers that need
		// footer offsets for a custom Job type should implement one
		// of the two concrete types above.
		return SplitRef{SplitID: j.SplitID()}
	}
}

// splitRefsToJobs turns a bare list of split refs into SearchJobs of
// unit cost, used when ClusterClient must re-place a request's splits
// on retry without the original cost-weighted job list.
func splitRefsToJobs(refs []SplitRef) []Job {
	jobs := make([]Job, 0, len(refs))
	for _, r := range refs {
		jobs = append(jobs, SearchJob{Offsets: r, Cost_: 1})
	}
	return jobs
}

// groupPartialHitsBySplit groups partial hits by split_id, resolving
// each split's SplitRef from offsetsBySplit (built from the fan-out's
// split_offsets), and returns one FetchDocsJob per split.
//
// offsetsBySplit missing an entry for a split_id referenced by
// partialHits is an Internal error, matching "Received partial hit
// from an Unknown split" in the error handling design.
func groupPartialHitsBySplit(partialHits []PartialHit, offsetsBySplit map[string]SplitRef) ([]Job, error) {
	bySplit := make(map[string][]PartialHit)
	var order []string
	for _, ph := range partialHits {
		if _, seen := bySplit[ph.SplitID]; !seen {
			order = append(order, ph.SplitID)
		}
		bySplit[ph.SplitID] = append(bySplit[ph.SplitID], ph)
	}

	jobs := make([]Job, 0, len(order))
	for _, splitID := range order {
		offsets, ok := offsetsBySplit[splitID]
		if !ok {
			return nil, InternalError("Received partial hit from an Unknown split %q", splitID)
		}
		jobs = append(jobs, FetchDocsJob{Offsets: offsets, PartialHits: bySplit[splitID]})
	}
	return jobs, nil
}

// flattenFetchDocsJobs reassembles the split_offsets/partial_hits pair
// a FetchDocsRequest carries from a set of FetchDocsJobs assigned to
// one worker.
func flattenFetchDocsJobs(jobs []Job) ([]SplitRef, []PartialHit) {
	var offsets []SplitRef
	var hits []PartialHit
	for _, j := range jobs {
		fj, ok := j.(FetchDocsJob)
		if !ok {
			continue
		}
		offsets = append(offsets, fj.Offsets)
		hits = append(hits, fj.PartialHits...)
	}
	return offsets, hits
}
