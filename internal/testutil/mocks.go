// Package testutil provides shared mocks for tests.
package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/XiaoConstantine/ruminate/pkg/core"
	"github.com/XiaoConstantine/ruminate/pkg/thinking"
)

// MockLLM is a mock implementation of core.LLM.
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Generate(ctx context.Context, messages []core.Message, options ...core.GenerateOption) (*core.LLMResponse, error) {
	args := m.Called(ctx, messages, options)
	if resp, ok := args.Get(0).(*core.LLMResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLLM) ProviderName() string {
	return "mock"
}

func (m *MockLLM) ModelID() string {
	return "mock-model"
}

// ScriptedLLM returns canned responses in order, repeating the last one once
// the script runs out. Useful for multi-cycle loop tests where testify's
// call matching is too coarse. Safe for concurrent use, since branch
// exploration fans out generation calls.
type ScriptedLLM struct {
	Responses []*core.LLMResponse
	Calls     int
	// Prompts records every request for later assertions.
	Prompts [][]core.Message

	mu sync.Mutex
}

func (s *ScriptedLLM) Generate(ctx context.Context, messages []core.Message, options ...core.GenerateOption) (*core.LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, messages)
	idx := s.Calls
	if idx >= len(s.Responses) {
		idx = len(s.Responses) - 1
	}
	s.Calls++
	return s.Responses[idx], nil
}

func (s *ScriptedLLM) ProviderName() string {
	return "scripted"
}

func (s *ScriptedLLM) ModelID() string {
	return "scripted-model"
}

// Response builds an LLMResponse with the given content and token total.
func Response(content string, tokens int) *core.LLMResponse {
	return &core.LLMResponse{
		Content: content,
		Usage:   &core.TokenInfo{TotalTokens: tokens},
	}
}

// MockSearch is a mock implementation of thinking.SearchClient.
type MockSearch struct {
	mock.Mock
}

func (m *MockSearch) Search(ctx context.Context, req thinking.SearchRequest) ([]thinking.SearchResult, error) {
	args := m.Called(ctx, req)
	if results, ok := args.Get(0).([]thinking.SearchResult); ok {
		return results, args.Error(1)
	}
	return nil, args.Error(1)
}
