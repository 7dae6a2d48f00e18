package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSortPartialHits_TieBreakOrder(t *testing.T) {
	hits := []PartialHit{
		{SplitID: "split2", SortingFieldValue: 5, SegmentOrd: 0, DocID: 1},
		{SplitID: "split1", SortingFieldValue: 5, SegmentOrd: 0, DocID: 1},
		{SplitID: "split1", SortingFieldValue: 9, SegmentOrd: 0, DocID: 2},
		{SplitID: "split1", SortingFieldValue: 5, SegmentOrd: 1, DocID: 0},
	}
	sortPartialHits(hits)

	require.Equal(t, uint64(9), hits[0].SortingFieldValue)
	// Among the three tied at sorting_field_value=5: split1 before split2,
	// and within split1, segment_ord 0 before segment_ord 1.
	require.Equal(t, "split1", hits[1].SplitID)
	require.Equal(t, uint32(0), hits[1].SegmentOrd)
	require.Equal(t, "split1", hits[2].SplitID)
	require.Equal(t, uint32(1), hits[2].SegmentOrd)
	require.Equal(t, "split2", hits[3].SplitID)
}

func TestMergeLeafSearchResponses_OffsetLaw(t *testing.T) {
	responses := []*LeafSearchResponse{
		{NumHits: 2, PartialHits: []PartialHit{
			{SplitID: "split1", SortingFieldValue: 10, DocID: 1},
			{SplitID: "split1", SortingFieldValue: 8, DocID: 2},
		}},
		{NumHits: 2, PartialHits: []PartialHit{
			{SplitID: "split2", SortingFieldValue: 9, DocID: 1},
			{SplitID: "split2", SortingFieldValue: 7, DocID: 2},
		}},
	}

	// pageSize = max_hits(2) + start_offset(1) = 3: keep top 3 globally,
	// the caller then drops the first `start_offset` of that page.
	merged := mergeLeafSearchResponses(responses, 3)
	require.Equal(t, uint64(4), merged.NumHits) // independent of start_offset
	require.Len(t, merged.PartialHits, 3)

	page := paginate(merged.PartialHits, 1)
	require.Len(t, page, 2)
	require.Equal(t, uint64(9), page[0].SortingFieldValue)
	require.Equal(t, uint64(8), page[1].SortingFieldValue)
}

func TestMergeLeafSearchResponses_ConcatenatesFailedSplits(t *testing.T) {
	responses := []*LeafSearchResponse{
		{FailedSplits: []SplitSearchError{{SplitID: "split1", Retryable: false}}},
		{FailedSplits: []SplitSearchError{{SplitID: "split2", Retryable: true}}},
	}
	merged := mergeLeafSearchResponses(responses, 100)
	require.Len(t, merged.FailedSplits, 2)
}

func TestMergeIntermediateAggregations_Empty(t *testing.T) {
	spec := genericAggregation{}
	merged, err := mergeIntermediateAggregations(spec, []*LeafSearchResponse{{}, nil})
	require.NoError(t, err)
	require.Nil(t, merged)
}

func TestSortTerms(t *testing.T) {
	terms := [][]byte{[]byte("cherry"), []byte("apple"), []byte("banana")}
	sortTerms(terms)
	require.Equal(t, [][]byte{[]byte("apple"), []byte("banana"), []byte("cherry")}, terms)
}
