package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaGeneratorAccumulatesStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !req.Stream {
			t.Error("expected streaming request")
		}
		if req.System == "" {
			t.Error("system prompt missing")
		}
		chunks := []ollamaStreamResponse{
			{Response: "So it "},
			{Response: "goes."},
			{Done: true},
		}
		enc := json.NewEncoder(w)
		for _, c := range chunks {
			if err := enc.Encode(c); err != nil {
				t.Errorf("encode chunk: %v", err)
			}
		}
	}))
	defer server.Close()

	g := NewOllamaGenerator(server.URL, "llama3.2:latest")
	reply, err := g.Generate(context.Background(), Request{
		System:      "You are a ghost.",
		Prompt:      "what do you say about death",
		MaxTokens:   150,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reply != "So it goes." {
		t.Fatalf("reply = %q", reply)
	}
}

func TestOllamaGeneratorServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	g := NewOllamaGenerator(server.URL, "nope")
	if _, err := g.Generate(context.Background(), Request{Prompt: "hi"}); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}

func TestRenderPromptIncludesHistory(t *testing.T) {
	prompt := renderPrompt([]Turn{
		{Role: "user", Text: "hello"},
		{Role: "assistant", Text: "hi there"},
	}, "what is war")

	for _, want := range []string{"User: hello", "Assistant: hi there", "User: what is war"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if !strings.HasSuffix(prompt, "Assistant:") {
		t.Fatalf("prompt should end with assistant cue:\n%s", prompt)
	}
}

func TestRenderPromptNoHistory(t *testing.T) {
	if got := renderPrompt(nil, "just this"); got != "just this" {
		t.Fatalf("prompt = %q", got)
	}
}

func TestFallbackAlwaysReturnsALine(t *testing.T) {
	for i := 0; i < 20; i++ {
		if Fallback() == "" {
			t.Fatal("empty fallback line")
		}
	}
}

func TestMockGenerator(t *testing.T) {
	g := NewMockGenerator()
	reply, err := g.Generate(context.Background(), Request{Prompt: "meaning of life"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(reply, "meaning of life") {
		t.Fatalf("reply = %q", reply)
	}
}
