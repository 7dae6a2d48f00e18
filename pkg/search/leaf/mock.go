package leaf

import (
	"context"
	"sync"

	"github.com/quidditch/quidditch/pkg/search"
)

// LeafSearchFunc answers one leaf_search call.
type LeafSearchFunc func(ctx context.Context, req search.LeafSearchRequest) (*search.LeafSearchResponse, error)

// LeafListTermsFunc answers one leaf_list_terms call.
type LeafListTermsFunc func(ctx context.Context, req search.LeafListTermsRequest) (*search.LeafListTermsResponse, error)

// FetchDocsFunc answers one fetch_docs call.
type FetchDocsFunc func(ctx context.Context, req search.FetchDocsRequest) (*search.FetchDocsResponse, error)

// MockClient is a programmable search.LeafClient for tests: each RPC
// is backed by a user-supplied function, and every call is recorded
// so tests can assert on invocation counts (the "at-most-one-retry"
// property).
type MockClient struct {
	WorkerID string

	OnLeafSearch    LeafSearchFunc
	OnLeafListTerms LeafListTermsFunc
	OnFetchDocs     FetchDocsFunc

	mu                 sync.Mutex
	leafSearchCalls    int
	leafListTermsCalls int
	fetchDocsCalls     int
}

func (m *MockClient) ID() string { return m.WorkerID }

func (m *MockClient) LeafSearch(ctx context.Context, req search.LeafSearchRequest) (*search.LeafSearchResponse, error) {
	m.mu.Lock()
	m.leafSearchCalls++
	m.mu.Unlock()
	if m.OnLeafSearch == nil {
		return &search.LeafSearchResponse{}, nil
	}
	return m.OnLeafSearch(ctx, req)
}

func (m *MockClient) LeafListTerms(ctx context.Context, req search.LeafListTermsRequest) (*search.LeafListTermsResponse, error) {
	m.mu.Lock()
	m.leafListTermsCalls++
	m.mu.Unlock()
	if m.OnLeafListTerms == nil {
		return &search.LeafListTermsResponse{}, nil
	}
	return m.OnLeafListTerms(ctx, req)
}

func (m *MockClient) FetchDocs(ctx context.Context, req search.FetchDocsRequest) (*search.FetchDocsResponse, error) {
	m.mu.Lock()
	m.fetchDocsCalls++
	m.mu.Unlock()
	if m.OnFetchDocs == nil {
		return &search.FetchDocsResponse{}, nil
	}
	return m.OnFetchDocs(ctx, req)
}

// LeafSearchCalls returns how many times LeafSearch was invoked.
func (m *MockClient) LeafSearchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leafSearchCalls
}

// FetchDocsCalls returns how many times FetchDocs was invoked.
func (m *MockClient) FetchDocsCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchDocsCalls
}

var _ search.LeafClient = (*MockClient)(nil)
