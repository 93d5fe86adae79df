package llm

import (
	"context"
	"fmt"
)

type mockGenerator struct{}

func NewMockGenerator() Generator {
	return &mockGenerator{}
}

func (m *mockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return fmt.Sprintf("Well, you asked about %q. Let me think on that one.", req.Prompt), nil
}
