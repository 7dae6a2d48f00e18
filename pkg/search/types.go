// Package search implements the root query planner and result
// aggregator of the distributed search engine: request validation,
// split discovery, cost-based placement of leaf-search and
// fetch-docs work, retry-on-failure fan-out, and the CPU-bound merge
// of partial hits and aggregation state into a single ranked
// response.
package search

// TimeRange is a split's timestamp range. Both ends are inclusive
// ([Start, End]); a nil end is unbounded on that side.
type TimeRange struct {
	Start *int64
	End   *int64
}

// FooterOffsets is the byte range of a split's footer, the minimal
// address leaves need to open it.
type FooterOffsets struct {
	Start uint64
	End   uint64
}

// IndexDescriptor is the index metadata returned by the CatalogClient.
type IndexDescriptor struct {
	IndexID        string
	IndexURI       string
	DocMapping     string // portable doc_mapping source, YAML
	SearchSettings string
}

// SplitMetadata describes one immutable split of an index.
type SplitMetadata struct {
	SplitID       string
	TimeRange     *TimeRange
	NumDocs       uint64
	FooterOffsets FooterOffsets
}

// SplitRef is the minimal address of a split shipped to leaves.
type SplitRef struct {
	SplitID       string        `json:"split_id"`
	FooterOffsets FooterOffsets `json:"footer_offsets"`
}

// SearchRequest is the client-facing search request.
type SearchRequest struct {
	IndexID            string    `json:"index_id" validate:"required"`
	Query              string    `json:"query"`
	SearchFields       []string  `json:"search_fields,omitempty"`
	StartTimestamp     *int64    `json:"start_timestamp,omitempty"`
	EndTimestamp       *int64    `json:"end_timestamp,omitempty"`
	MaxHits            uint64    `json:"max_hits" validate:"lte=10000"`
	StartOffset        uint64    `json:"start_offset" validate:"lte=10000"`
	SnippetFields      []string  `json:"snippet_fields,omitempty"`
	AggregationRequest *string   `json:"aggregation_request,omitempty"`
	SortOrder          *string   `json:"sort_order,omitempty"`
}

// normalizedForLeaf returns a copy of the request with StartOffset
// reset to 0 and MaxHits widened to cover the original offset, per the
// leaf fan-out rule: leaves must return enough candidates for the
// root to paginate globally.
func (r SearchRequest) normalizedForLeaf() SearchRequest {
	n := r
	n.MaxHits = r.MaxHits + r.StartOffset
	n.StartOffset = 0
	return n
}

// ListTermsRequest is the client-facing list-terms request.
type ListTermsRequest struct {
	IndexID        string  `json:"index_id" validate:"required"`
	Field          string  `json:"field" validate:"required"`
	StartTimestamp *int64  `json:"start_timestamp,omitempty"`
	EndTimestamp   *int64  `json:"end_timestamp,omitempty"`
	MaxHits        *uint64 `json:"max_hits,omitempty"`
}

// PartialHit identifies a document position within a split plus the
// sort key used to order hits across splits.
type PartialHit struct {
	SplitID           string `json:"split_id"`
	SegmentOrd        uint32 `json:"segment_ord"`
	DocID             uint32 `json:"doc_id"`
	SortingFieldValue uint64 `json:"sorting_field_value"`
}

// SplitSearchError is produced by a leaf when it cannot serve one of
// its assigned splits.
type SplitSearchError struct {
	SplitID   string `json:"split_id"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// LeafSearchResponse is returned by a leaf's leaf_search RPC.
type LeafSearchResponse struct {
	NumHits                       uint64             `json:"num_hits"`
	PartialHits                   []PartialHit       `json:"partial_hits"`
	FailedSplits                  []SplitSearchError `json:"failed_splits,omitempty"`
	NumAttemptedSplits            uint32             `json:"num_attempted_splits"`
	IntermediateAggregationResult *string            `json:"intermediate_aggregation_result,omitempty"`
}

// LeafSearchRequest is sent to a leaf's leaf_search RPC.
type LeafSearchRequest struct {
	SearchRequest SearchRequest `json:"search_request"`
	SplitOffsets  []SplitRef    `json:"split_offsets"`
	DocMapper     string        `json:"doc_mapper"`
	IndexURI      string        `json:"index_uri"`
}

// LeafListTermsRequest is sent to a leaf's leaf_list_terms RPC.
type LeafListTermsRequest struct {
	ListTermsRequest ListTermsRequest `json:"list_terms_request"`
	SplitOffsets     []SplitRef       `json:"split_offsets"`
	IndexURI         string           `json:"index_uri"`
}

// LeafListTermsResponse is returned by a leaf's leaf_list_terms RPC:
// a sorted, deduplicated list of term byte-strings plus any split
// failures.
type LeafListTermsResponse struct {
	Terms        [][]byte            `json:"terms"`
	FailedSplits []SplitSearchError  `json:"failed_splits,omitempty"`
}

// FetchDocsRequest is sent to a leaf's fetch_docs RPC.
type FetchDocsRequest struct {
	PartialHits   []PartialHit   `json:"partial_hits"`
	IndexID       string         `json:"index_id"`
	SplitOffsets  []SplitRef     `json:"split_offsets"`
	IndexURI      string         `json:"index_uri"`
	SearchRequest *SearchRequest `json:"search_request,omitempty"`
	DocMapper     string         `json:"doc_mapper"`
}

// LeafHit is one hydrated document as returned by fetch_docs, before
// the root renames its fields for the client response.
type LeafHit struct {
	LeafJSON        string      `json:"leaf_json"`
	PartialHit      *PartialHit `json:"partial_hit,omitempty"`
	LeafSnippetJSON *string     `json:"leaf_snippet_json,omitempty"`
}

// FetchDocsResponse is returned by a leaf's fetch_docs RPC.
type FetchDocsResponse struct {
	Hits []LeafHit `json:"hits"`
}

// Hit is a single ranked, hydrated document in the final response.
type Hit struct {
	JSON       string      `json:"json"`
	PartialHit *PartialHit `json:"partial_hit,omitempty"`
	Snippet    *string     `json:"snippet,omitempty"`
}

// SearchResponse is the client-facing search response.
type SearchResponse struct {
	Aggregation       *string  `json:"aggregation,omitempty"`
	NumHits           uint64   `json:"num_hits"`
	Hits              []Hit    `json:"hits"`
	ElapsedTimeMicros uint64   `json:"elapsed_time_micros"`
	Errors            []string `json:"errors"`
}

// ListTermsResponse is the client-facing list-terms response.
type ListTermsResponse struct {
	NumHits           uint64   `json:"num_hits"`
	Terms             [][]byte `json:"terms"`
	ElapsedTimeMicros uint64   `json:"elapsed_time_micros"`
	Errors            []string `json:"errors"`
}

// Job is anything the JobPlacer can assign to a worker: it must
// expose which split it concerns and how expensive it is.
type Job interface {
	SplitID() string
	Cost() uint32
}

// SearchJob is a unit of leaf-search work.
type SearchJob struct {
	Offsets SplitRef
	Cost_   uint32
}

func (j SearchJob) SplitID() string { return j.Offsets.SplitID }
func (j SearchJob) Cost() uint32    { return j.Cost_ }

// FetchDocsJob is a unit of document-hydration work; its cost equals
// the number of partial hits it must hydrate.
type FetchDocsJob struct {
	Offsets     SplitRef
	PartialHits []PartialHit
}

func (j FetchDocsJob) SplitID() string { return j.Offsets.SplitID }
func (j FetchDocsJob) Cost() uint32    { return uint32(len(j.PartialHits)) }
