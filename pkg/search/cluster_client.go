package search

import (
	"context"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// ClusterClient is a thin retry wrapper over LeafClientPool, composed
// with JobPlacer so the orchestrator code in root.go stays linear:
// validate -> place -> fan-out -> merge -> place -> fan-out ->
// assemble. Retry logic is concentrated here rather than as a loop
// inside RootSearch/RootListTerms, per the "retry as middleware"
// design note.
//
// Only a single retry pass is attempted per call, bounding tail
// latency over maximizing availability.
type ClusterClient struct {
	placer  JobPlacer
	logger  *zap.Logger
	metrics *Metrics
}

// NewClusterClient builds a ClusterClient over placer.
func NewClusterClient(placer JobPlacer, logger *zap.Logger, metrics *Metrics) *ClusterClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &ClusterClient{placer: placer, logger: logger, metrics: metrics}
}

// LeafSearch sends req to worker. On transport failure it re-places
// the entire request's splits on the remaining workers and submits
// once more. On a successful response it re-places and retries only
// the splits the leaf reported as retryable, merging the retry's
// partial hits into the response it returns.
func (c *ClusterClient) LeafSearch(ctx context.Context, worker LeafClient, req LeafSearchRequest, index string) (*LeafSearchResponse, error) {
	resp, err := worker.LeafSearch(ctx, req)
	if err != nil {
		c.logger.Warn("leaf_search transport failure, retrying on alternate worker",
			zap.String("worker", worker.ID()), zap.Error(err))
		c.metrics.SplitRetries.WithLabelValues(index, "transport").Add(float64(len(req.SplitOffsets)))
		return c.retryWholeRequest(ctx, worker, req)
	}

	retryable, keep := partitionFailedSplits(resp.FailedSplits)
	if len(retryable) == 0 {
		return resp, nil
	}
	c.metrics.SplitRetries.WithLabelValues(index, "retryable_split").Add(float64(len(retryable)))

	offsetsBySplit := make(map[string]SplitRef, len(req.SplitOffsets))
	for _, o := range req.SplitOffsets {
		offsetsBySplit[o.SplitID] = o
	}
	retryRefs := make([]SplitRef, 0, len(retryable))
	for _, f := range retryable {
		if o, ok := offsetsBySplit[f.SplitID]; ok {
			retryRefs = append(retryRefs, o)
		}
	}

	exclude := map[string]struct{}{worker.ID(): {}}
	groups, perr := c.placer.AssignJobs(splitRefsToJobs(retryRefs), exclude)
	if perr != nil {
		c.logger.Warn("no alternate worker to retry failed splits on", zap.Error(perr))
		return resp, nil
	}

	merged := &LeafSearchResponse{
		NumHits:             resp.NumHits,
		PartialHits:         append([]PartialHit(nil), resp.PartialHits...),
		FailedSplits:        keep,
		NumAttemptedSplits:  resp.NumAttemptedSplits,
		IntermediateAggregationResult: resp.IntermediateAggregationResult,
	}

	retryResults, err := c.fanOutLeafSearch(ctx, groups, req)
	if err != nil {
		return nil, err
	}
	for _, r := range retryResults {
		mergeRetryIntoLeafSearch(merged, r)
	}
	return merged, nil
}

// retryWholeRequest re-places every split in req on non-excluded
// workers and submits once to each resulting worker group, merging
// their responses. Used when the original request failed at the
// transport level (the leaf never got to attempt any split).
func (c *ClusterClient) retryWholeRequest(ctx context.Context, failed LeafClient, req LeafSearchRequest) (*LeafSearchResponse, error) {
	exclude := map[string]struct{}{failed.ID(): {}}
	groups, perr := c.placer.AssignJobs(splitRefsToJobs(req.SplitOffsets), exclude)
	if perr != nil {
		return nil, perr
	}

	results, err := c.fanOutLeafSearch(ctx, groups, req)
	if err != nil {
		return nil, err
	}
	merged := &LeafSearchResponse{}
	for _, r := range results {
		mergeRetryIntoLeafSearch(merged, r)
	}
	return merged, nil
}

// fanOutLeafSearch submits one LeafSearchRequest per worker group
// concurrently, using a cancel-on-error task group: the first
// transport failure cancels the remaining in-flight siblings.
func (c *ClusterClient) fanOutLeafSearch(ctx context.Context, groups []WorkerJobs, template LeafSearchRequest) ([]*LeafSearchResponse, error) {
	p := pool.NewWithResults[*LeafSearchResponse]().WithContext(ctx).WithCancelOnError().WithFirstError()
	for _, g := range groups {
		g := g
		p.Go(func(ctx context.Context) (*LeafSearchResponse, error) {
			req := template
			req.SplitOffsets = jobsSplitRefs(g.Jobs)
			return g.Worker.LeafSearch(ctx, req)
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, InternalErrorWrap("leaf_search retry failed", err)
	}
	return results, nil
}

// FetchDocs sends req to worker. On transport failure it re-places
// the entire request's splits on the remaining workers and submits
// once more, merging the hydrated hits it gets back.
func (c *ClusterClient) FetchDocs(ctx context.Context, worker LeafClient, req FetchDocsRequest, index string) (*FetchDocsResponse, error) {
	resp, err := worker.FetchDocs(ctx, req)
	if err == nil {
		return resp, nil
	}
	c.logger.Warn("fetch_docs transport failure, retrying on alternate worker",
		zap.String("worker", worker.ID()), zap.Error(err))
	c.metrics.SplitRetries.WithLabelValues(index, "transport_fetch").Add(float64(len(req.SplitOffsets)))

	offsetsBySplit := make(map[string]SplitRef, len(req.SplitOffsets))
	for _, o := range req.SplitOffsets {
		offsetsBySplit[o.SplitID] = o
	}
	jobs, jerr := groupPartialHitsBySplit(req.PartialHits, offsetsBySplit)
	if jerr != nil {
		return nil, jerr
	}

	exclude := map[string]struct{}{worker.ID(): {}}
	groups, perr := c.placer.AssignJobs(jobs, exclude)
	if perr != nil {
		return nil, perr
	}

	p := pool.NewWithResults[*FetchDocsResponse]().WithContext(ctx).WithCancelOnError().WithFirstError()
	for _, g := range groups {
		g := g
		p.Go(func(ctx context.Context) (*FetchDocsResponse, error) {
			retryReq := req
			retryReq.SplitOffsets, retryReq.PartialHits = flattenFetchDocsJobs(g.Jobs)
			return g.Worker.FetchDocs(ctx, retryReq)
		})
	}
	results, werr := p.Wait()
	if werr != nil {
		return nil, InternalErrorWrap("fetch_docs retry failed", werr)
	}

	merged := &FetchDocsResponse{}
	for _, r := range results {
		merged.Hits = append(merged.Hits, r.Hits...)
	}
	return merged, nil
}

// partitionFailedSplits splits a leaf's failed_splits into the
// retryable subset and the subset to keep as-is (non-retryable ones,
// terminal on this call).
func partitionFailedSplits(failed []SplitSearchError) (retryable, keep []SplitSearchError) {
	for _, f := range failed {
		if f.Retryable {
			retryable = append(retryable, f)
		} else {
			keep = append(keep, f)
		}
	}
	return retryable, keep
}

// mergeRetryIntoLeafSearch folds one retry leaf_search response into
// the accumulator: hit counts and partial hits are summed/appended,
// and any failure the retry reports is terminal (no further retry is
// attempted), so it is kept verbatim in the accumulator's
// failed_splits.
func mergeRetryIntoLeafSearch(acc, r *LeafSearchResponse) {
	if r == nil {
		return
	}
	acc.NumHits += r.NumHits
	acc.PartialHits = append(acc.PartialHits, r.PartialHits...)
	acc.FailedSplits = append(acc.FailedSplits, r.FailedSplits...)
	acc.NumAttemptedSplits += r.NumAttemptedSplits
	if r.IntermediateAggregationResult != nil {
		acc.IntermediateAggregationResult = r.IntermediateAggregationResult
	}
}

// jobsSplitRefs extracts the SplitRef of every job in jobs, in order.
func jobsSplitRefs(jobs []Job) []SplitRef {
	refs := make([]SplitRef, 0, len(jobs))
	for _, j := range jobs {
		refs = append(refs, jobOffsets(j))
	}
	return refs
}
