package search

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// mergeLeafSearchResponses folds a fan-out's per-worker
// LeafSearchResponses into one: num_hits summed, partial hits
// globally ranked and truncated to the top maxHits+startOffset, and
// failed_splits concatenated. Adapted from the original
// implementation's merge collector (root.rs's merge_leaf_responses /
// quickwit_search::merge_leaf_responses), generalized from tantivy's
// Collector trait into a plain function operating on already-decoded
// Go structs.
//
// Ranking order: sorting_field_value descending, then split_id,
// segment_ord, doc_id ascending as a deterministic tie-break, matching
// the original implementation's comparator.
// Aggregation results are intentionally left out of the per-response
// merge here: they're variant-specific (see aggregation.go), so
// mergeIntermediateAggregations folds them separately once the
// caller knows which AggregationSpec to interpret them with.
func mergeLeafSearchResponses(responses []*LeafSearchResponse, maxHits uint64) *LeafSearchResponse {
	merged := &LeafSearchResponse{}

	for _, r := range responses {
		if r == nil {
			continue
		}
		merged.NumHits += r.NumHits
		merged.PartialHits = append(merged.PartialHits, r.PartialHits...)
		merged.FailedSplits = append(merged.FailedSplits, r.FailedSplits...)
		merged.NumAttemptedSplits += r.NumAttemptedSplits
	}

	sortPartialHits(merged.PartialHits)
	if uint64(len(merged.PartialHits)) > maxHits {
		merged.PartialHits = merged.PartialHits[:maxHits]
	}
	return merged
}

// sortPartialHits orders hits by sorting_field_value descending, with
// (split_id, segment_ord, doc_id) ascending as a deterministic
// tie-break so repeated merges of the same inputs always produce the
// same order.
func sortPartialHits(hits []PartialHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.SortingFieldValue != b.SortingFieldValue {
			return a.SortingFieldValue > b.SortingFieldValue
		}
		if a.SplitID != b.SplitID {
			return a.SplitID < b.SplitID
		}
		if a.SegmentOrd != b.SegmentOrd {
			return a.SegmentOrd < b.SegmentOrd
		}
		return a.DocID < b.DocID
	})
}

// mergeIntermediateAggregations merges the intermediate aggregation
// results carried by a set of leaf_search responses using spec, which
// knows how to interpret the opaque strings for its own variant.
func mergeIntermediateAggregations(spec AggregationSpec, responses []*LeafSearchResponse) (*string, error) {
	var parts []string
	for _, r := range responses {
		if r != nil && r.IntermediateAggregationResult != nil {
			parts = append(parts, *r.IntermediateAggregationResult)
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}
	merged, err := spec.MergeIntermediates(parts)
	if err != nil {
		return nil, InternalErrorWrap("failed to merge aggregation results", err)
	}
	return &merged, nil
}

// formatFailedSplits renders every failed split's id and error into a
// single message, so a root call that fails on several splits at once
// still names all of them rather than just the first.
func formatFailedSplits(failed []SplitSearchError) string {
	parts := make([]string, 0, len(failed))
	for _, f := range failed {
		parts = append(parts, fmt.Sprintf("%q: %s", f.SplitID, f.Error))
	}
	return strings.Join(parts, "; ")
}

// sortTerms orders a deduplicated term list lexicographically by its
// raw bytes, matching the original implementation's BTreeSet-backed
// list-terms merge.
func sortTerms(terms [][]byte) {
	sort.Slice(terms, func(i, j int) bool {
		return bytes.Compare(terms[i], terms[j]) < 0
	})
}
