package search

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// RootSearcher is the query planner and result aggregator: it owns
// the full two-phase pipeline described by the query planner's
// component design, from request validation through to the final
// ranked, hydrated SearchResponse. Adapted from the teacher's
// query_service.go QueryService, generalized from a single-phase
// shard-query planner into the two-phase leaf-search/fetch-docs
// pipeline the original implementation's root.rs describes.
type RootSearcher struct {
	catalog          CatalogClient
	docMapperBuilder DocMapperBuilder
	placer           JobPlacer
	cluster          *ClusterClient
	costFn           CostFunc
	logger           *zap.Logger
	metrics          *Metrics
}

// NewRootSearcher builds a RootSearcher from its required
// collaborators. Optional behavior is set via the With* options below.
func NewRootSearcher(catalog CatalogClient, docMapperBuilder DocMapperBuilder, pool LeafClientPool, opts ...RootSearcherOption) *RootSearcher {
	placer := NewDefaultJobPlacer(pool)
	rs := &RootSearcher{
		catalog:          catalog,
		docMapperBuilder: docMapperBuilder,
		placer:           placer,
		costFn:           DefaultSplitCost,
		logger:           zap.NewNop(),
		metrics:          NewMetrics(),
	}
	for _, opt := range opts {
		opt(rs)
	}
	rs.cluster = NewClusterClient(rs.placer, rs.logger, rs.metrics)
	return rs
}

// RootSearcherOption customizes a RootSearcher at construction time.
type RootSearcherOption func(*RootSearcher)

// WithCostFunc overrides the default doc-count-based split cost function.
func WithCostFunc(fn CostFunc) RootSearcherOption {
	return func(rs *RootSearcher) { rs.costFn = fn }
}

// WithLogger overrides the default no-op logger.
func WithLogger(logger *zap.Logger) RootSearcherOption {
	return func(rs *RootSearcher) { rs.logger = logger }
}

// WithMetrics overrides the default, unregistered Metrics.
func WithMetrics(metrics *Metrics) RootSearcherOption {
	return func(rs *RootSearcher) { rs.metrics = metrics }
}

// WithJobPlacer overrides the default DefaultJobPlacer, e.g. to inject
// a test placer that forces a particular placement outcome.
func WithJobPlacer(placer JobPlacer) RootSearcherOption {
	return func(rs *RootSearcher) { rs.placer = placer }
}

// RootSearch runs the full search pipeline for req: validate, discover
// splits, place and fan out leaf_search, merge, paginate, place and
// fan out fetch_docs, assemble the final response.
func (rs *RootSearcher) RootSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	start := time.Now()

	desc, err := rs.catalog.IndexMetadata(ctx, req.IndexID)
	if err != nil {
		return nil, InternalErrorWrap("failed to fetch index metadata", err)
	}
	mapper, err := rs.docMapperBuilder.Build(*desc)
	if err != nil {
		return nil, InternalErrorWrap("failed to build doc mapper", err)
	}

	if err := validateSearchRequest(req, mapper); err != nil {
		return nil, err
	}

	var aggSpec AggregationSpec
	if req.AggregationRequest != nil {
		// Already validated parseable above; the error is unreachable.
		aggSpec, _ = ParseAggregationRequest(*req.AggregationRequest)
	}

	jobs, offsetsBySplit, err := discoverSplits(ctx, rs.catalog, req.IndexID, req.StartTimestamp, req.EndTimestamp, rs.costFn)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return &SearchResponse{Hits: []Hit{}, ElapsedTimeMicros: uint64(time.Since(start).Microseconds())}, nil
	}

	docMapperStr, err := mapper.Serialize()
	if err != nil {
		return nil, InternalErrorWrap("failed to serialize doc mapper", err)
	}

	groups, err := rs.placer.AssignJobs(jobs, nil)
	if err != nil {
		return nil, err
	}

	leafStart := time.Now()
	leafResponses, err := rs.fanOutLeafSearch(ctx, groups, req, docMapperStr, desc.IndexURI)
	rs.metrics.LeafSearchDuration.WithLabelValues(req.IndexID).Observe(time.Since(leafStart).Seconds())
	if err != nil {
		return nil, err
	}

	mergeStart := time.Now()
	pageSize := req.MaxHits + req.StartOffset
	merged := mergeLeafSearchResponses(leafResponses, pageSize)
	rs.metrics.MergeDuration.WithLabelValues(req.IndexID).Observe(time.Since(mergeStart).Seconds())

	if len(merged.FailedSplits) > 0 {
		rs.metrics.FailedSplits.WithLabelValues(req.IndexID).Add(float64(len(merged.FailedSplits)))
		return nil, InternalError("search failed on splits: %s", formatFailedSplits(merged.FailedSplits))
	}

	var aggregation *string
	if aggSpec != nil {
		mergedIntermediate, aerr := mergeIntermediateAggregations(aggSpec, leafResponses)
		if aerr != nil {
			return nil, aerr
		}
		if mergedIntermediate != nil {
			final, ferr := aggSpec.Finalize(*mergedIntermediate)
			if ferr != nil {
				return nil, InternalErrorWrap("failed to finalize aggregation", ferr)
			}
			aggregation = &final
		}
	}

	page := paginate(merged.PartialHits, req.StartOffset)
	if len(page) == 0 {
		return &SearchResponse{
			NumHits:           merged.NumHits,
			Hits:              []Hit{},
			Aggregation:       aggregation,
			ElapsedTimeMicros: uint64(time.Since(start).Microseconds()),
		}, nil
	}

	fetchJobs, err := groupPartialHitsBySplit(page, offsetsBySplit)
	if err != nil {
		return nil, err
	}
	fetchGroups, err := rs.placer.AssignJobs(fetchJobs, nil)
	if err != nil {
		return nil, err
	}

	fetchStart := time.Now()
	leafHits, err := rs.fanOutFetchDocs(ctx, fetchGroups, req, docMapperStr, desc.IndexURI)
	rs.metrics.FetchDocsDuration.WithLabelValues(req.IndexID).Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		NumHits:           merged.NumHits,
		Hits:              assembleHits(page, leafHits),
		Aggregation:       aggregation,
		ElapsedTimeMicros: uint64(time.Since(start).Microseconds()),
	}, nil
}

// fanOutLeafSearch submits one LeafSearchRequest per placement group
// through the ClusterClient (so each group benefits from
// retry-on-failure independently), using a cancel-on-error task group.
func (rs *RootSearcher) fanOutLeafSearch(ctx context.Context, groups []WorkerJobs, req SearchRequest, docMapperStr, indexURI string) ([]*LeafSearchResponse, error) {
	p := pool.NewWithResults[*LeafSearchResponse]().WithContext(ctx).WithCancelOnError().WithFirstError()
	for _, g := range groups {
		g := g
		p.Go(func(ctx context.Context) (*LeafSearchResponse, error) {
			leafReq := jobsToLeafRequest(req, docMapperStr, indexURI, g.Jobs)
			return rs.cluster.LeafSearch(ctx, g.Worker, leafReq, req.IndexID)
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, InternalErrorWrap("leaf_search fan-out failed", err)
	}
	return results, nil
}

// fanOutFetchDocs submits one FetchDocsRequest per placement group
// through the ClusterClient.
func (rs *RootSearcher) fanOutFetchDocs(ctx context.Context, groups []WorkerJobs, req SearchRequest, docMapperStr, indexURI string) ([]LeafHit, error) {
	p := pool.NewWithResults[*FetchDocsResponse]().WithContext(ctx).WithCancelOnError().WithFirstError()
	for _, g := range groups {
		g := g
		p.Go(func(ctx context.Context) (*FetchDocsResponse, error) {
			offsets, hits := flattenFetchDocsJobs(g.Jobs)
			// SearchRequest is only needed by the leaf to extract
			// snippets; omit it otherwise to save bandwidth.
			var searchReq *SearchRequest
			if len(req.SnippetFields) > 0 {
				searchReq = &req
			}
			fetchReq := FetchDocsRequest{
				PartialHits:   hits,
				IndexID:       req.IndexID,
				SplitOffsets:  offsets,
				IndexURI:      indexURI,
				SearchRequest: searchReq,
				DocMapper:     docMapperStr,
			}
			return rs.cluster.FetchDocs(ctx, g.Worker, fetchReq, req.IndexID)
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, InternalErrorWrap("fetch_docs fan-out failed", err)
	}
	var all []LeafHit
	for _, r := range results {
		all = append(all, r.Hits...)
	}
	return all, nil
}

// paginate drops the first offset entries of a globally-ranked
// partial-hit list, matching normalizedForLeaf's widening of max_hits
// to cover the skipped prefix.
func paginate(hits []PartialHit, offset uint64) []PartialHit {
	if offset >= uint64(len(hits)) {
		return nil
	}
	return hits[offset:]
}

// assembleHits re-orders a fetch_docs fan-out's LeafHits back into
// page's rank order, since worker groups return their hits grouped by
// split rather than by global rank.
func assembleHits(page []PartialHit, leafHits []LeafHit) []Hit {
	byIdentity := make(map[PartialHit]LeafHit, len(leafHits))
	for _, lh := range leafHits {
		if lh.PartialHit != nil {
			byIdentity[*lh.PartialHit] = lh
		}
	}

	hits := make([]Hit, 0, len(page))
	for _, ph := range page {
		lh, ok := byIdentity[ph]
		if !ok {
			continue
		}
		hits = append(hits, Hit{JSON: lh.LeafJSON, PartialHit: lh.PartialHit, Snippet: lh.LeafSnippetJSON})
	}
	return hits
}

// RootListTerms runs the list-terms pipeline: validate, discover
// splits, place and fan out leaf_list_terms, merge into one sorted,
// deduplicated term list. Leaves are called directly, not through
// ClusterClient, so a failed split is not retried and fails the call.
func (rs *RootSearcher) RootListTerms(ctx context.Context, req ListTermsRequest) (*ListTermsResponse, error) {
	start := time.Now()

	desc, err := rs.catalog.IndexMetadata(ctx, req.IndexID)
	if err != nil {
		return nil, InternalErrorWrap("failed to fetch index metadata", err)
	}
	mapper, err := rs.docMapperBuilder.Build(*desc)
	if err != nil {
		return nil, InternalErrorWrap("failed to build doc mapper", err)
	}
	if err := validateListTermsRequest(req, mapper); err != nil {
		return nil, err
	}

	jobs, _, err := discoverSplits(ctx, rs.catalog, req.IndexID, req.StartTimestamp, req.EndTimestamp, rs.costFn)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return &ListTermsResponse{Terms: [][]byte{}, ElapsedTimeMicros: uint64(time.Since(start).Microseconds())}, nil
	}

	groups, err := rs.placer.AssignJobs(jobs, nil)
	if err != nil {
		return nil, err
	}

	p := pool.NewWithResults[*LeafListTermsResponse]().WithContext(ctx).WithCancelOnError().WithFirstError()
	for _, g := range groups {
		g := g
		p.Go(func(ctx context.Context) (*LeafListTermsResponse, error) {
			offsets := make([]SplitRef, 0, len(g.Jobs))
			for _, j := range g.Jobs {
				offsets = append(offsets, jobOffsets(j))
			}
			leafReq := LeafListTermsRequest{
				ListTermsRequest: req,
				SplitOffsets:     offsets,
				IndexURI:         desc.IndexURI,
			}
			return g.Worker.LeafListTerms(ctx, leafReq)
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, InternalErrorWrap("leaf_list_terms fan-out failed", err)
	}

	terms, failedSplits := mergeListTerms(results)
	if len(failedSplits) > 0 {
		rs.metrics.FailedSplits.WithLabelValues(req.IndexID).Add(float64(len(failedSplits)))
		return nil, InternalError("list_terms failed on splits: %s", formatFailedSplits(failedSplits))
	}

	if req.MaxHits != nil && uint64(len(terms)) > *req.MaxHits {
		terms = terms[:*req.MaxHits]
	}

	return &ListTermsResponse{
		NumHits:           uint64(len(terms)),
		Terms:             terms,
		ElapsedTimeMicros: uint64(time.Since(start).Microseconds()),
	}, nil
}

// mergeListTerms merges every leaf's term list into one sorted,
// deduplicated list (collecting distinct terms, then sorting them by
// raw bytes), and collects every
// leaf's failed splits so the caller can treat them as terminal
// rather than silently returning partial terms.
func mergeListTerms(results []*LeafListTermsResponse) ([][]byte, []SplitSearchError) {
	seen := make(map[string]struct{})
	var all [][]byte
	var failedSplits []SplitSearchError
	for _, r := range results {
		if r == nil {
			continue
		}
		failedSplits = append(failedSplits, r.FailedSplits...)
		for _, t := range r.Terms {
			key := string(t)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			all = append(all, t)
		}
	}
	sortTerms(all)
	return all, failedSplits
}
