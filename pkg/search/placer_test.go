package search_test

import (
	"testing"

	"github.com/quidditch/quidditch/pkg/search"
	"github.com/quidditch/quidditch/pkg/search/leaf"
	"github.com/stretchr/testify/require"
)

func TestDefaultJobPlacer_BalancesCostAcrossCandidates(t *testing.T) {
	leafA := &leaf.MockClient{WorkerID: "leaf-a"}
	leafB := &leaf.MockClient{WorkerID: "leaf-b"}
	pool := leaf.NewStaticLeafClientPool([]search.LeafClient{leafA, leafB}, map[string][]string{
		"split1": {"leaf-a", "leaf-b"},
		"split2": {"leaf-a", "leaf-b"},
		"split3": {"leaf-a", "leaf-b"},
	})
	placer := search.NewDefaultJobPlacer(pool)

	jobs := []search.Job{
		search.SearchJob{Offsets: search.SplitRef{SplitID: "split1"}, Cost_: 5},
		search.SearchJob{Offsets: search.SplitRef{SplitID: "split2"}, Cost_: 1},
		search.SearchJob{Offsets: search.SplitRef{SplitID: "split3"}, Cost_: 1},
	}
	groups, err := placer.AssignJobs(jobs, nil)
	require.NoError(t, err)

	byWorker := make(map[string]int)
	for _, g := range groups {
		byWorker[g.Worker.ID()] = len(g.Jobs)
	}
	// split1 (cost 5) goes to leaf-a first; split2 and split3 (cost 1
	// each) then both land on leaf-b, the lower-cost candidate.
	require.Equal(t, 1, byWorker["leaf-a"])
	require.Equal(t, 2, byWorker["leaf-b"])
}

func TestDefaultJobPlacer_ExclusionSet(t *testing.T) {
	leafA := &leaf.MockClient{WorkerID: "leaf-a"}
	pool := leaf.NewStaticLeafClientPool([]search.LeafClient{leafA}, map[string][]string{"split1": {"leaf-a"}})
	placer := search.NewDefaultJobPlacer(pool)

	_, err := placer.AssignJobs([]search.Job{search.SearchJob{Offsets: search.SplitRef{SplitID: "split1"}, Cost_: 1}},
		map[string]struct{}{"leaf-a": {}})
	require.Error(t, err)
	var serr *search.Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, search.KindPlacementFailure, serr.Kind)
	require.Contains(t, err.Error(), "split1")
}

func TestStaticLeafClientPool_WorkersStableOrder(t *testing.T) {
	leafA := &leaf.MockClient{WorkerID: "leaf-a"}
	leafB := &leaf.MockClient{WorkerID: "leaf-b"}
	pool := leaf.NewStaticLeafClientPool([]search.LeafClient{leafA, leafB}, map[string][]string{
		"split1": {"leaf-b", "leaf-a"},
	})

	workers := pool.Workers("split1", nil)
	require.Len(t, workers, 2)
	require.Equal(t, "leaf-a", workers[0].ID())
	require.Equal(t, "leaf-b", workers[1].ID())

	excluded := pool.Workers("split1", map[string]struct{}{"leaf-a": {}})
	require.Len(t, excluded, 1)
	require.Equal(t, "leaf-b", excluded[0].ID())
}
