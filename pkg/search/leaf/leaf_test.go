package leaf

import (
	"testing"

	"github.com/quidditch/quidditch/pkg/search"
	"github.com/stretchr/testify/require"
)

func TestStaticLeafClientPool_GetUnknownWorker(t *testing.T) {
	p := NewStaticLeafClientPool(nil, nil)
	_, ok := p.Get("ghost")
	require.False(t, ok)
}

func TestStaticLeafClientPool_WorkersSkipsReplicaWithNoRegisteredClient(t *testing.T) {
	leafA := &MockClient{WorkerID: "leaf-a"}
	p := NewStaticLeafClientPool([]search.LeafClient{leafA}, map[string][]string{
		"split1": {"leaf-a", "leaf-ghost"},
	})

	workers := p.Workers("split1", nil)
	require.Len(t, workers, 1)
	require.Equal(t, "leaf-a", workers[0].ID())
}

func TestStaticLeafClientPool_RegisterAndSetReplicasAreLive(t *testing.T) {
	p := NewStaticLeafClientPool(nil, nil)
	require.Empty(t, p.Workers("split1", nil))

	leafA := &MockClient{WorkerID: "leaf-a"}
	p.RegisterClient(leafA)
	p.SetReplicas("split1", []string{"leaf-a"})

	workers := p.Workers("split1", nil)
	require.Len(t, workers, 1)
	require.Equal(t, "leaf-a", workers[0].ID())

	c, ok := p.Get("leaf-a")
	require.True(t, ok)
	require.Same(t, leafA, c)
}

func TestStaticLeafClientPool_UnknownSplitHasNoWorkers(t *testing.T) {
	p := NewStaticLeafClientPool([]search.LeafClient{&MockClient{WorkerID: "leaf-a"}}, nil)
	require.Empty(t, p.Workers("no-such-split", nil))
}
