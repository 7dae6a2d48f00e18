// Package catalog defines the read-only metadata view the root
// consumes to resolve an index's schema and its published splits. It
// is an external collaborator per the query planner design: the core
// depends only on the search.CatalogClient interface, never on a
// concrete backing store.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/quidditch/quidditch/pkg/search"
)

// SplitState is the lifecycle state of a split as tracked by the
// catalog. Only Published splits are ever handed to the root.
type SplitState int

const (
	SplitStateStaged SplitState = iota
	SplitStatePublished
	SplitStateMarkedForDeletion
)

// overlaps reports whether a split's time range overlaps the
// [startGTE, endLT) filter. A split or query bound that is nil is
// unbounded on that side.
func overlaps(tr *search.TimeRange, startGTE, endLT *int64) bool {
	if tr == nil {
		return true
	}
	if endLT != nil && tr.Start != nil && *tr.Start >= *endLT {
		return false
	}
	if startGTE != nil && tr.End != nil && *tr.End < *startGTE {
		return false
	}
	return true
}

// ErrNotFound is returned by IndexMetadata when the index is unknown.
var ErrNotFound = fmt.Errorf("index not found")

var _ search.CatalogClient = (*MemCatalog)(nil)

// MemCatalog is an in-memory search.CatalogClient, used by tests and suitable as a
// local/dev catalog. Its connection-lifecycle free shape (no
// Connect/Disconnect) reflects that the catalog's own transport is
// out of scope for the root; a production deployment would back this
// interface with a networked metastore client instead.
type MemCatalog struct {
	mu      sync.RWMutex
	indexes map[string]*search.IndexDescriptor
	splits  map[string][]search.SplitMetadata
}

// NewMemCatalog creates an empty in-memory catalog.
func NewMemCatalog() *MemCatalog {
	return &MemCatalog{
		indexes: make(map[string]*search.IndexDescriptor),
		splits:  make(map[string][]search.SplitMetadata),
	}
}

// PutIndex registers (or replaces) an index descriptor.
func (c *MemCatalog) PutIndex(desc search.IndexDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexes[desc.IndexID] = &desc
}

// PutSplits registers the published splits of an index, replacing any
// previously registered set.
func (c *MemCatalog) PutSplits(indexID string, splits []search.SplitMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.splits[indexID] = splits
}

func (c *MemCatalog) IndexMetadata(_ context.Context, indexID string) (*search.IndexDescriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	desc, ok := c.indexes[indexID]
	if !ok {
		return nil, ErrNotFound
	}
	return desc, nil
}

// ListSplits returns the Published splits of indexID whose time range
// overlaps [startTimestampGTE, endTimestampLT). A nil bound is
// unbounded on that side, matching search.CatalogClient.
func (c *MemCatalog) ListSplits(_ context.Context, indexID string, startTimestampGTE, endTimestampLT *int64) ([]search.SplitMetadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	all := c.splits[indexID]
	matched := make([]search.SplitMetadata, 0, len(all))
	for _, s := range all {
		if overlaps(s.TimeRange, startTimestampGTE, endTimestampLT) {
			matched = append(matched, s)
		}
	}
	return matched, nil
}
