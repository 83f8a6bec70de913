package llm

import "context"

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	GenerateFunc func(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}

func (m *MockClient) Name() string {
	if m.ProviderName != "" {
		return m.ProviderName
	}
	return "mock"
}

func (m *MockClient) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &GenerationResult{Text: "mock response"}, nil
}
