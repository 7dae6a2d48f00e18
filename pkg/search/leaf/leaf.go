// Package leaf provides a reference in-memory implementation of
// search.LeafClient / search.LeafClientPool, used by tests. Real
// deployments back these interfaces with a networked transport; that
// transport is explicitly out of scope for the root query planner
// (see SPEC_FULL.md §3).
package leaf

import (
	"sort"
	"sync"

	"github.com/quidditch/quidditch/pkg/search"
)

// StaticLeafClientPool is a search.LeafClientPool over a fixed replica
// assignment, adapted from the teacher's executor.go map-of-clients-
// by-node-id pattern (pkg/coordination/executor/executor.go's
// dataClients map), generalized from "one primary + N replicas per
// shard" to "an arbitrary replica set per split."
type StaticLeafClientPool struct {
	mu       sync.RWMutex
	clients  map[string]search.LeafClient // workerID -> client
	replicas map[string][]string          // splitID -> worker IDs hosting it
}

// NewStaticLeafClientPool builds a pool from a replica assignment
// (splitID -> worker IDs that host it) and the set of client handles
// for those workers. The order of each worker-ID list is not
// significant: Workers returns a split's replicas sorted by worker ID.
func NewStaticLeafClientPool(clients []search.LeafClient, replicas map[string][]string) *StaticLeafClientPool {
	p := &StaticLeafClientPool{
		clients:  make(map[string]search.LeafClient, len(clients)),
		replicas: replicas,
	}
	for _, c := range clients {
		p.clients[c.ID()] = c
	}
	if p.replicas == nil {
		p.replicas = make(map[string][]string)
	}
	return p
}

// RegisterClient adds or replaces a worker's client handle.
func (p *StaticLeafClientPool) RegisterClient(c search.LeafClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients[c.ID()] = c
}

// SetReplicas sets the worker-ID list hosting a split.
func (p *StaticLeafClientPool) SetReplicas(splitID string, workerIDs []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replicas[splitID] = workerIDs
}

func (p *StaticLeafClientPool) Workers(splitID string, exclude map[string]struct{}) []search.LeafClient {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := append([]string(nil), p.replicas[splitID]...)
	sort.Strings(ids) // stable with respect to job identity across calls

	out := make([]search.LeafClient, 0, len(ids))
	for _, id := range ids {
		if _, excluded := exclude[id]; excluded {
			continue
		}
		if c, ok := p.clients[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (p *StaticLeafClientPool) Get(workerID string) (search.LeafClient, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.clients[workerID]
	return c, ok
}

var _ search.LeafClientPool = (*StaticLeafClientPool)(nil)
