package provider

import (
	"context"
	"sync"
)

func init() {
	RegisterFactory("mock", func(config map[string]any) (Provider, error) {
		m := NewMockProvider()
		if resp, ok := config["response"].(string); ok {
			m.Queue(resp)
		}
		return m, nil
	})
}

// MockProvider is a scripted provider for tests. Responses and errors
// are dequeued in order; when the queue is empty it falls back to a
// fixed reply.
type MockProvider struct {
	mu       sync.Mutex
	queue    []mockResult
	Fallback string
	Requests []CompletionRequest
}

type mockResult struct {
	resp *CompletionResponse
	err  error
}

// NewMockProvider creates an empty mock provider
func NewMockProvider() *MockProvider {
	return &MockProvider{Fallback: "mock response"}
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	return "mock"
}

// Queue appends a canned response
func (m *MockProvider) Queue(content string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockResult{resp: &CompletionResponse{
		Content:      content,
		FinishReason: "stop",
	}})
	return m
}

// QueueError appends a canned error
func (m *MockProvider) QueueError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockResult{err: err})
	return m
}

// CreateCompletion records the request and returns the next queued result.
func (m *MockProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if len(m.queue) == 0 {
		return &CompletionResponse{Content: m.Fallback, FinishReason: "stop"}, nil
	}

	next := m.queue[0]
	m.queue = m.queue[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.resp, nil
}
