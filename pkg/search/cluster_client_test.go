package search_test

import (
	"context"
	"testing"

	"github.com/quidditch/quidditch/pkg/search"
	"github.com/quidditch/quidditch/pkg/search/leaf"
	"github.com/stretchr/testify/require"
)

// Scenario 3: two splits, retry on other node.
//
// split2 is hosted by both leaf-a and leaf-b; leaf-a is asked for both
// split1 and split2 in one request, fails split2 as retryable, and the
// retry lands on leaf-b (the only non-excluded candidate). This
// exercises the "at-most-one retry" property: each leaf is invoked at
// most twice.
func TestClusterClient_RetryOnOtherNode(t *testing.T) {
	leafA := &leaf.MockClient{WorkerID: "leaf-a", OnLeafSearch: func(ctx context.Context, req search.LeafSearchRequest) (*search.LeafSearchResponse, error) {
		return &search.LeafSearchResponse{
			NumHits:            1,
			PartialHits:        []search.PartialHit{{SplitID: "split1", SortingFieldValue: 1, DocID: 1}},
			FailedSplits:       []search.SplitSearchError{{SplitID: "split2", Error: "unavailable", Retryable: true}},
			NumAttemptedSplits: 1,
		}, nil
	}}
	leafB := &leaf.MockClient{WorkerID: "leaf-b", OnLeafSearch: func(ctx context.Context, req search.LeafSearchRequest) (*search.LeafSearchResponse, error) {
		return &search.LeafSearchResponse{
			NumHits:            2,
			PartialHits:        []search.PartialHit{{SplitID: "split2", SortingFieldValue: 3, DocID: 1}, {SplitID: "split2", SortingFieldValue: 2, DocID: 2}},
			NumAttemptedSplits: 1,
		}, nil
	}}
	pool := leaf.NewStaticLeafClientPool([]search.LeafClient{leafA, leafB}, map[string][]string{
		"split1": {"leaf-a"},
		"split2": {"leaf-a", "leaf-b"},
	})
	cluster := search.NewClusterClient(search.NewDefaultJobPlacer(pool), nil, nil)

	req := search.LeafSearchRequest{
		SplitOffsets: []search.SplitRef{{SplitID: "split1"}, {SplitID: "split2"}},
	}
	resp, err := cluster.LeafSearch(context.Background(), leafA, req, "test-index")
	require.NoError(t, err)
	require.Equal(t, uint64(3), resp.NumHits)
	require.Len(t, resp.PartialHits, 3)
	require.Empty(t, resp.FailedSplits)

	require.Equal(t, 1, leafA.LeafSearchCalls())
	require.Equal(t, 1, leafB.LeafSearchCalls())
	require.LessOrEqual(t, leafA.LeafSearchCalls(), 2)
	require.LessOrEqual(t, leafB.LeafSearchCalls(), 2)
}

// Scenario 4: retry-on-all-nodes symmetric failure then recovery. Each
// leaf fails the split routed to it on the first attempt and succeeds
// for the other leaf's split on retry; exactly two invocations land on
// each split overall, and no leaf is invoked more than twice.
func TestClusterClient_RetryOnAllNodesSymmetric(t *testing.T) {
	leafA := &leaf.MockClient{WorkerID: "leaf-a", OnLeafSearch: func(ctx context.Context, req search.LeafSearchRequest) (*search.LeafSearchResponse, error) {
		for _, o := range req.SplitOffsets {
			if o.SplitID == "split1" {
				return &search.LeafSearchResponse{
					FailedSplits:       []search.SplitSearchError{{SplitID: "split1", Error: "unavailable", Retryable: true}},
					NumAttemptedSplits: 1,
				}, nil
			}
		}
		return &search.LeafSearchResponse{
			NumHits:            1,
			PartialHits:        []search.PartialHit{{SplitID: "split2", SortingFieldValue: 5, DocID: 9}},
			NumAttemptedSplits: 1,
		}, nil
	}}
	leafB := &leaf.MockClient{WorkerID: "leaf-b", OnLeafSearch: func(ctx context.Context, req search.LeafSearchRequest) (*search.LeafSearchResponse, error) {
		for _, o := range req.SplitOffsets {
			if o.SplitID == "split2" {
				return &search.LeafSearchResponse{
					FailedSplits:       []search.SplitSearchError{{SplitID: "split2", Error: "unavailable", Retryable: true}},
					NumAttemptedSplits: 1,
				}, nil
			}
		}
		return &search.LeafSearchResponse{
			NumHits:            1,
			PartialHits:        []search.PartialHit{{SplitID: "split1", SortingFieldValue: 9, DocID: 1}},
			NumAttemptedSplits: 1,
		}, nil
	}}
	pool := leaf.NewStaticLeafClientPool([]search.LeafClient{leafA, leafB}, map[string][]string{
		"split1": {"leaf-a", "leaf-b"},
		"split2": {"leaf-a", "leaf-b"},
	})
	cluster := search.NewClusterClient(search.NewDefaultJobPlacer(pool), nil, nil)

	reqA := search.LeafSearchRequest{SplitOffsets: []search.SplitRef{{SplitID: "split1"}}}
	reqB := search.LeafSearchRequest{SplitOffsets: []search.SplitRef{{SplitID: "split2"}}}

	respA, errA := cluster.LeafSearch(context.Background(), leafA, reqA, "test-index")
	respB, errB := cluster.LeafSearch(context.Background(), leafB, reqB, "test-index")
	require.NoError(t, errA)
	require.NoError(t, errB)
	require.Empty(t, respA.FailedSplits)
	require.Empty(t, respB.FailedSplits)
	require.Equal(t, uint64(1), respA.NumHits)
	require.Equal(t, uint64(1), respB.NumHits)

	require.Equal(t, 2, leafA.LeafSearchCalls()) // once for its own split1, once retrying split2
	require.Equal(t, 2, leafB.LeafSearchCalls()) // once for its own split2, once retrying split1
}

// Transport failure: the whole request is re-placed on non-excluded
// workers and resubmitted.
func TestClusterClient_TransportFailureRetriesWholeRequest(t *testing.T) {
	leafA := &leaf.MockClient{WorkerID: "leaf-a", OnLeafSearch: func(ctx context.Context, req search.LeafSearchRequest) (*search.LeafSearchResponse, error) {
		return nil, context.DeadlineExceeded
	}}
	leafB := &leaf.MockClient{WorkerID: "leaf-b", OnLeafSearch: func(ctx context.Context, req search.LeafSearchRequest) (*search.LeafSearchResponse, error) {
		return &search.LeafSearchResponse{
			NumHits:            1,
			PartialHits:        []search.PartialHit{{SplitID: "split1", SortingFieldValue: 1, DocID: 1}},
			NumAttemptedSplits: 1,
		}, nil
	}}
	pool := leaf.NewStaticLeafClientPool([]search.LeafClient{leafA, leafB}, map[string][]string{
		"split1": {"leaf-a", "leaf-b"},
	})
	cluster := search.NewClusterClient(search.NewDefaultJobPlacer(pool), nil, nil)

	req := search.LeafSearchRequest{SplitOffsets: []search.SplitRef{{SplitID: "split1"}}}
	resp, err := cluster.LeafSearch(context.Background(), leafA, req, "test-index")
	require.NoError(t, err)
	require.Equal(t, uint64(1), resp.NumHits)
	require.Equal(t, 1, leafA.LeafSearchCalls())
	require.Equal(t, 1, leafB.LeafSearchCalls())
}

// Placement failure on retry (no alternate worker) returns the
// original response unchanged, still carrying the retryable failure —
// root.go then surfaces it as an error mentioning the split.
func TestClusterClient_RetryExhaustedReturnsOriginalResponse(t *testing.T) {
	leafA := &leaf.MockClient{WorkerID: "leaf-a", OnLeafSearch: func(ctx context.Context, req search.LeafSearchRequest) (*search.LeafSearchResponse, error) {
		return &search.LeafSearchResponse{
			FailedSplits:       []search.SplitSearchError{{SplitID: "split1", Error: "unavailable", Retryable: true}},
			NumAttemptedSplits: 1,
		}, nil
	}}
	pool := leaf.NewStaticLeafClientPool([]search.LeafClient{leafA}, map[string][]string{"split1": {"leaf-a"}})
	cluster := search.NewClusterClient(search.NewDefaultJobPlacer(pool), nil, nil)

	req := search.LeafSearchRequest{SplitOffsets: []search.SplitRef{{SplitID: "split1"}}}
	resp, err := cluster.LeafSearch(context.Background(), leafA, req, "test-index")
	require.NoError(t, err)
	require.Len(t, resp.FailedSplits, 1)
	require.Equal(t, "split1", resp.FailedSplits[0].SplitID)
	require.Equal(t, 1, leafA.LeafSearchCalls())
}
