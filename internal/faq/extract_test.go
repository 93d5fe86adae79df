package faq

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleTranscript = `
All this happened, more or less. Billy Pilgrim has come unstuck in time, and that is the whole trouble with him.
People ask me about death and so I tell them: so it goes, every single time somebody dies.
War is ugly because human beings keep choosing it over peace and love.
Eliot Rosewater carried a ridiculous amount of kindness around with him wherever he went.
Short one.
The meaning of life and the purpose of existence were never separate questions for me.
`

func writeTranscript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript_01.txt")
	if err := os.WriteFile(path, []byte(sampleTranscript), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return path
}

func TestBuildFromTranscript(t *testing.T) {
	entries, err := buildFromTranscript(writeTranscript(t), 50)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected extracted entries")
	}

	byType := make(map[string]int)
	for _, e := range entries {
		byType[e.Type]++
	}
	if byType["famous_quote"] == 0 {
		t.Fatalf("no signature quotes extracted: %v", byType)
	}
	if byType["philosophical"] == 0 {
		t.Fatalf("no philosophical entries extracted: %v", byType)
	}
	if byType["character"] == 0 {
		t.Fatalf("no character references extracted: %v", byType)
	}

	// Ranked by boost, IDs sequential.
	for i := 1; i < len(entries); i++ {
		if entries[i].ConfidenceBoost > entries[i-1].ConfidenceBoost {
			t.Fatalf("entries not ranked by boost at %d", i)
		}
	}
	for i, e := range entries {
		if e.ID != i {
			t.Fatalf("entry %d has id %d", i, e.ID)
		}
	}
}

func TestBuildDeduplicatesByResponse(t *testing.T) {
	entries, err := buildFromTranscript(writeTranscript(t), 50)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	seen := make(map[string]struct{})
	for _, e := range entries {
		if _, dup := seen[e.Response]; dup {
			t.Fatalf("duplicate response survived: %q", e.Response)
		}
		seen[e.Response] = struct{}{}
	}
}

func TestBuildRespectsCap(t *testing.T) {
	entries, err := buildFromTranscript(writeTranscript(t), 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(entries) > 2 {
		t.Fatalf("cap ignored: %d entries", len(entries))
	}
}

func TestBuildMissingTranscript(t *testing.T) {
	if _, err := buildFromTranscript(filepath.Join(t.TempDir(), "missing.txt"), 50); err == nil {
		t.Fatal("expected error for missing transcript")
	}
}

func TestSplitSentencesFiltersByLength(t *testing.T) {
	sentences := splitSentences("Tiny. This sentence is comfortably inside the allowed band of lengths.")
	if len(sentences) != 1 {
		t.Fatalf("sentences = %v", sentences)
	}
}

func TestRouterFallsBackToTranscript(t *testing.T) {
	r, err := NewRouter(Config{
		DatabasePath:        filepath.Join(t.TempDir(), "faq.json"),
		TranscriptPath:      writeTranscript(t),
		SimilarityThreshold: 0.7,
		MaxEntries:          50,
	}, newLogger())
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	if r.Stats().Sources["transcript"] == 0 {
		t.Fatal("router should build from the transcript when no database exists")
	}
}
