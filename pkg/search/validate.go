package search

// maxStartOffset and maxMaxHits bound how deep a single page of
// results can reach, matching the original implementation's pagination
// guard rail (root.rs's validate_request). They restate, with the
// exact wording callers depend on, the same limits the struct tags in
// types.go declare for transport-layer binding in pkg/search/httpapi.
const (
	maxStartOffset = 10_000
	maxMaxHits     = 10_000
)

// validateSearchRequest checks a SearchRequest's bounds and, if it
// carries one, its aggregation_request and query/search_fields against
// mapper's schema. It runs before any split discovery or placement
// work, so a malformed request never reaches a leaf.
func validateSearchRequest(req SearchRequest, mapper DocMapper) error {
	if req.StartOffset > maxStartOffset {
		return InvalidArgument("max value for start_offset is 10_000, but got %d", req.StartOffset)
	}
	if req.MaxHits > maxMaxHits {
		return InvalidArgument("max value for max_hits is 10_000, but got %d", req.MaxHits)
	}

	if req.AggregationRequest != nil {
		if _, err := ParseAggregationRequest(*req.AggregationRequest); err != nil {
			return InvalidAggregationRequest(err.Error())
		}
	}

	if err := mapper.ValidateQuery(req); err != nil {
		return InvalidQuery(err.Error())
	}

	return nil
}

// validateListTermsRequest checks a ListTermsRequest's field against
// mapper's schema.
func validateListTermsRequest(req ListTermsRequest, mapper DocMapper) error {
	if req.MaxHits != nil && *req.MaxHits > maxMaxHits {
		return InvalidArgument("max value for max_hits is 10_000, but got %d", *req.MaxHits)
	}
	if err := mapper.ValidateListTermsField(req.Field); err != nil {
		return InvalidQuery(err.Error())
	}
	return nil
}
