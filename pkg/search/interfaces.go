package search

import "context"

// CatalogClient is the read-only view of index metadata and the list
// of published splits for a time range. It is an external
// collaborator: the core depends only on this interface, never on a
// concrete metastore implementation. See pkg/search/catalog for a
// reference in-memory implementation.
type CatalogClient interface {
	IndexMetadata(ctx context.Context, indexID string) (*IndexDescriptor, error)
	ListSplits(ctx context.Context, indexID string, startTimestampGTE, endTimestampLT *int64) ([]SplitMetadata, error)
}

// LeafClient is the capability set one leaf worker exposes. See
// pkg/search/leaf for a reference in-memory implementation; a real
// deployment backs this with a networked transport, out of scope for
// the core.
type LeafClient interface {
	ID() string
	LeafSearch(ctx context.Context, req LeafSearchRequest) (*LeafSearchResponse, error)
	LeafListTerms(ctx context.Context, req LeafListTermsRequest) (*LeafListTermsResponse, error)
	FetchDocs(ctx context.Context, req FetchDocsRequest) (*FetchDocsResponse, error)
}

// LeafClientPool is an addressable collection of leaf clients, one
// per worker, that also knows which workers can host a given split.
type LeafClientPool interface {
	// Workers returns every non-excluded worker capable of hosting
	// splitID, in an order that is stable with respect to split
	// identity (so the same split lands on the same worker across
	// retries until that worker is excluded).
	Workers(splitID string, exclude map[string]struct{}) []LeafClient
	Get(workerID string) (LeafClient, bool)
}

// JobPlacer assigns a set of cost-weighted jobs to workers, honouring
// an exclusion set of previously-failed workers.
type JobPlacer interface {
	// AssignJobs groups jobs by worker. Every input job appears in
	// exactly one group. Returns PlacementFailure if some split has
	// no non-excluded capable worker.
	AssignJobs(jobs []Job, exclude map[string]struct{}) ([]WorkerJobs, error)
}

// WorkerJobs is one (worker, jobs assigned to it) placement group.
type WorkerJobs struct {
	Worker LeafClient
	Jobs   []Job
}

// DocMapper knows an index's schema, validates a query against it,
// and serializes to a portable string form transmitted to leaves.
type DocMapper interface {
	ValidateQuery(req SearchRequest) error
	ValidateListTermsField(field string) error
	Serialize() (string, error)
}

// DocMapperBuilder compiles a DocMapper from an index descriptor. The
// schema/mapping compiler itself is out of scope for the root; the
// core depends only on this interface. See pkg/search/docmapper for a
// reference YAML-backed implementation.
type DocMapperBuilder interface {
	Build(desc IndexDescriptor) (DocMapper, error)
}
