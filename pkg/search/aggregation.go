package search

import (
	"encoding/json"
	"fmt"
	"sort"
)

// AggregationKind is one of the two variants an aggregation_request
// can parse into, per the "variant modelling" design note: extend by
// adding a variant, not by subclassing.
type AggregationKind int

const (
	// KindTraceIDAggregation is merged entirely inside the merge
	// collector; the already-merged intermediate result is passed
	// through to the response unchanged.
	KindTraceIDAggregation AggregationKind = iota
	// KindGenericAggregation's merge collector returns an
	// intermediate form the root then converts to final form using
	// the same spec.
	KindGenericAggregation
)

// AggregationSpec is the parsed, recognized shape of an
// aggregation_request.
type AggregationSpec interface {
	Kind() AggregationKind
	// MergeIntermediates folds per-leaf intermediate aggregation
	// results (opaque strings) into one merged intermediate result.
	MergeIntermediates(results []string) (string, error)
	// Finalize converts a merged intermediate result into final,
	// client-facing form. For TraceIDAggregation this is the
	// identity function.
	Finalize(intermediate string) (string, error)
}

// traceIDAggregationConfig is the fixed shape of a TraceIdAggregation
// request: find the set of trace IDs for the slowest spans.
type traceIDAggregationConfig struct {
	MaxTraceIDs uint64 `json:"max_trace_ids"`
}

type traceIDAggregation struct {
	cfg traceIDAggregationConfig
}

func (traceIDAggregation) Kind() AggregationKind { return KindTraceIDAggregation }

func (traceIDAggregation) MergeIntermediates(results []string) (string, error) {
	// The merge collector has already merged the intermediate trace-ID
	// sets; root passes the value through unchanged. The reference
	// merge here simply takes the first non-empty result, since actual
	// trace-ID set merging is owned by the leaf-side aggregation
	// engine, out of scope for the root.
	for _, r := range results {
		if r != "" {
			return r, nil
		}
	}
	return "", nil
}

func (traceIDAggregation) Finalize(intermediate string) (string, error) {
	return intermediate, nil
}

// recognizedBucketAggregations is the set of per-bucket aggregation
// type keys the generic variant accepts, modeled after tantivy's
// aggregation enum (terms, histogram, stats, ...). An aggregation
// request whose per-field type key isn't in this set fails parsing,
// matching the "unparseable aggregation spec" error path.
var recognizedBucketAggregations = map[string]struct{}{
	"terms":           {},
	"date_histogram":  {},
	"histogram":       {},
	"stats":           {},
	"avg":             {},
	"sum":             {},
	"min":             {},
	"max":             {},
	"cardinality":     {},
}

// bucketAggConfig is one named aggregation's type-tagged body, e.g.
// {"terms": {"field": "status"}}.
type bucketAggConfig map[string]json.RawMessage

func (b bucketAggConfig) aggType() (string, bool) {
	for k := range b {
		if _, ok := recognizedBucketAggregations[k]; ok {
			return k, true
		}
	}
	return "", false
}

type genericAggregation struct {
	fields map[string]bucketAggConfig // aggregation name -> type-tagged spec
}

func (genericAggregation) Kind() AggregationKind { return KindGenericAggregation }

// intermediateBuckets is the merged-intermediate wire form: per
// aggregation name, a bucket key -> doc count map.
type intermediateBuckets map[string]map[string]uint64

func (g genericAggregation) MergeIntermediates(results []string) (string, error) {
	merged := make(intermediateBuckets)
	for _, r := range results {
		if r == "" {
			continue
		}
		var part intermediateBuckets
		if err := json.Unmarshal([]byte(r), &part); err != nil {
			return "", fmt.Errorf("failed to parse intermediate aggregation result: %w", err)
		}
		for aggName, buckets := range part {
			if merged[aggName] == nil {
				merged[aggName] = make(map[string]uint64)
			}
			for key, count := range buckets {
				merged[aggName][key] += count
			}
		}
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// AggregationBucket is one finalized bucket: a key and its document
// count, ordered by count descending to match how bucket aggregations
// are conventionally presented.
type AggregationBucket struct {
	Key      string `json:"key"`
	DocCount uint64 `json:"doc_count"`
}

func (g genericAggregation) Finalize(intermediate string) (string, error) {
	if intermediate == "" {
		return "{}", nil
	}
	var merged intermediateBuckets
	if err := json.Unmarshal([]byte(intermediate), &merged); err != nil {
		return "", fmt.Errorf("failed to parse merged aggregation result: %w", err)
	}

	final := make(map[string][]AggregationBucket, len(merged))
	for aggName, buckets := range merged {
		list := make([]AggregationBucket, 0, len(buckets))
		for key, count := range buckets {
			list = append(list, AggregationBucket{Key: key, DocCount: count})
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].DocCount != list[j].DocCount {
				return list[i].DocCount > list[j].DocCount
			}
			return list[i].Key < list[j].Key
		})
		final[aggName] = list
	}
	out, err := json.Marshal(final)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ParseAggregationRequest parses an aggregation_request JSON string
// into one of the two recognized variants. It mirrors the original
// implementation's untagged-enum parsing: try the TraceIdAggregation
// shape first, then fall back to the generic bucket-aggregation map;
// if neither matches, the request is rejected with the same message
// wording the original implementation's serde error produces.
func ParseAggregationRequest(raw string) (AggregationSpec, error) {
	var traceIDWrapper struct {
		TraceID *traceIDAggregationConfig `json:"trace_id_aggregation"`
	}
	if err := json.Unmarshal([]byte(raw), &traceIDWrapper); err == nil && traceIDWrapper.TraceID != nil {
		return traceIDAggregation{cfg: *traceIDWrapper.TraceID}, nil
	}

	var fields map[string]bucketAggConfig
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("data did not match any variant of untagged enum QuickwitAggregations")
	}
	for name, cfg := range fields {
		if _, ok := cfg.aggType(); !ok {
			return nil, fmt.Errorf("data did not match any variant of untagged enum QuickwitAggregations")
		}
		_ = name
	}
	return genericAggregation{fields: fields}, nil
}
