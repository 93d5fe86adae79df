// Package faq matches transcribed utterances against a curated table
// of trigger phrases for fast, deterministic canned replies.
package faq

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Entry is one immutable canned-response record.
type Entry struct {
	ID              int      `json:"id"`
	Type            string   `json:"type"`
	TriggerPhrases  []string `json:"trigger_phrases"`
	Response        string   `json:"response"`
	ConfidenceBoost float64  `json:"confidence_boost"`
	Source          string   `json:"source"` // transcript, manual, default
	CreatedAt       string   `json:"created_at,omitempty"`
}

// Match is a routed canned response.
type Match struct {
	Text       string
	Type       string
	Confidence float64
	EntryID    int
}

// Stats summarizes the loaded table.
type Stats struct {
	TotalEntries        int            `json:"total_entries"`
	Types               map[string]int `json:"types"`
	Sources             map[string]int `json:"sources"`
	SimilarityThreshold float64        `json:"similarity_threshold"`
}

type database struct {
	CreatedAt        string  `json:"created_at"`
	SourceTranscript string  `json:"source_transcript,omitempty"`
	TotalEntries     int     `json:"total_entries"`
	Entries          []Entry `json:"entries"`
}

// Router holds the in-memory table. Reads are lock-free after startup
// except for the administrative append path, which is single-writer.
type Router struct {
	dbPath     string
	threshold  float64
	maxEntries int
	logger     *slog.Logger

	mu         sync.RWMutex
	entries    []Entry
	wordCounts []map[string]int // trigger word multiset per entry
}

// Config carries the router's tunables.
type Config struct {
	DatabasePath        string
	TranscriptPath      string
	SimilarityThreshold float64
	MaxEntries          int
}

// NewRouter loads the persisted table if present, otherwise builds one
// from the source transcript, otherwise falls back to the small fixed
// default table. Build failures never fail startup.
func NewRouter(cfg Config, logger *slog.Logger) (*Router, error) {
	r := &Router{
		dbPath:     cfg.DatabasePath,
		threshold:  cfg.SimilarityThreshold,
		maxEntries: cfg.MaxEntries,
		logger:     logger.With(slog.String("component", "faq-router")),
	}
	if r.threshold == 0 {
		r.threshold = 0.7
	}
	if r.maxEntries == 0 {
		r.maxEntries = 50
	}

	if entries, err := r.loadDatabase(); err == nil {
		r.setEntries(entries)
		r.logger.Info("faq table loaded", slog.Int("entries", len(entries)))
		return r, nil
	} else if !os.IsNotExist(err) {
		r.logger.Warn("faq database unreadable, rebuilding", slog.String("error", err.Error()))
	}

	if cfg.TranscriptPath != "" {
		if entries, err := buildFromTranscript(cfg.TranscriptPath, r.maxEntries); err == nil && len(entries) > 0 {
			r.setEntries(entries)
			if err := r.persist(cfg.TranscriptPath); err != nil {
				r.logger.Warn("faq persist failed", slog.String("error", err.Error()))
			}
			r.logger.Info("faq table built from transcript",
				slog.String("transcript", cfg.TranscriptPath),
				slog.Int("entries", len(entries)))
			return r, nil
		} else if err != nil {
			r.logger.Warn("faq transcript extraction failed, using defaults",
				slog.String("error", err.Error()))
		}
	}

	r.setEntries(defaultEntries())
	if err := r.persist(""); err != nil {
		r.logger.Warn("faq persist failed", slog.String("error", err.Error()))
	}
	r.logger.Info("faq default table installed", slog.Int("entries", len(r.entries)))
	return r, nil
}

func (r *Router) loadDatabase() ([]Entry, error) {
	data, err := os.ReadFile(r.dbPath)
	if err != nil {
		return nil, err
	}
	var db database
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("parse faq database: %w", err)
	}
	return db.Entries, nil
}

func (r *Router) setEntries(entries []Entry) {
	counts := make([]map[string]int, len(entries))
	for i := range entries {
		entries[i].ID = i
		counts[i] = triggerWordCounts(entries[i].TriggerPhrases)
	}
	r.mu.Lock()
	r.entries = entries
	r.wordCounts = counts
	r.mu.Unlock()
}

// triggerWordCounts builds the word multiset used by the similarity
// score: every occurrence of a word across all trigger phrases counts.
func triggerWordCounts(triggers []string) map[string]int {
	counts := make(map[string]int)
	for _, w := range strings.Fields(strings.ToLower(strings.Join(triggers, " "))) {
		counts[w]++
	}
	return counts
}

// similarity is the per-entry score: matched query-word occurrences
// over query length, plus the entry's additive boost, clamped to 1.0.
// A very short query with one high-boost matching word can clear the
// threshold; preserved as documented source behavior.
func similarity(queryWords []string, counts map[string]int, boost float64) float64 {
	if len(queryWords) == 0 {
		return 0
	}
	matches := 0
	for _, w := range queryWords {
		matches += counts[w]
	}
	score := float64(matches)/float64(len(queryWords)) + boost
	if score > 1 {
		return 1
	}
	return score
}

// Check scores the query against every entry and returns the best
// match at or above the threshold. Ties keep the first-inserted entry.
func (r *Router) Check(query string) (Match, bool) {
	queryWords := strings.Fields(strings.ToLower(query))
	if len(queryWords) == 0 {
		return Match{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *Entry
	bestScore := 0.0
	for i := range r.entries {
		score := similarity(queryWords, r.wordCounts[i], r.entries[i].ConfidenceBoost)
		if score > bestScore {
			bestScore = score
			best = &r.entries[i]
		}
	}
	if best == nil || bestScore < r.threshold {
		return Match{}, false
	}
	r.logger.Info("faq match",
		slog.String("type", best.Type),
		slog.Float64("score", bestScore))
	return Match{
		Text:       best.Response,
		Type:       best.Type,
		Confidence: bestScore,
		EntryID:    best.ID,
	}, true
}

// Add appends a manually authored entry, recomputes its word map and
// persists the whole table. Entries are never removed at runtime.
func (r *Router) Add(triggers []string, response, entryType string) (int, error) {
	if len(triggers) == 0 {
		return -1, fmt.Errorf("faq entry needs at least one trigger phrase")
	}
	if strings.TrimSpace(response) == "" {
		return -1, fmt.Errorf("faq entry needs a response")
	}
	if entryType == "" {
		entryType = "custom"
	}

	r.mu.Lock()
	id := len(r.entries)
	entry := Entry{
		ID:              id,
		Type:            entryType,
		TriggerPhrases:  triggers,
		Response:        response,
		ConfidenceBoost: 0,
		Source:          "manual",
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	r.entries = append(r.entries, entry)
	r.wordCounts = append(r.wordCounts, triggerWordCounts(triggers))
	r.mu.Unlock()

	if err := r.persist(""); err != nil {
		return id, fmt.Errorf("persist faq table: %w", err)
	}
	r.logger.Info("faq entry added", slog.Int("id", id), slog.String("type", entryType))
	return id, nil
}

func (r *Router) persist(sourceTranscript string) error {
	if r.dbPath == "" {
		return nil
	}
	r.mu.RLock()
	db := database{
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
		SourceTranscript: sourceTranscript,
		TotalEntries:     len(r.entries),
		Entries:          append([]Entry(nil), r.entries...),
	}
	r.mu.RUnlock()

	if dir := filepath.Dir(r.dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create faq dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.dbPath, data, 0o644)
}

// Stats reports table composition for diagnostics.
func (r *Router) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{
		TotalEntries:        len(r.entries),
		Types:               make(map[string]int),
		Sources:             make(map[string]int),
		SimilarityThreshold: r.threshold,
	}
	for _, e := range r.entries {
		s.Types[e.Type]++
		s.Sources[e.Source]++
	}
	return s
}

func defaultEntries() []Entry {
	return []Entry{
		{
			Type:            "greeting",
			TriggerPhrases:  []string{"hello", "hi", "hey", "greetings"},
			Response:        "So it goes. What brings you to speak with me today?",
			ConfidenceBoost: 0.3,
			Source:          "default",
		},
		{
			Type:            "famous_quote",
			TriggerPhrases:  []string{"so it goes", "death", "mortality"},
			Response:        "So it goes. That is what I say about death and dying.",
			ConfidenceBoost: 0.5,
			Source:          "default",
		},
		{
			Type:            "philosophical",
			TriggerPhrases:  []string{"meaning", "purpose", "life"},
			Response:        "Everything was beautiful and nothing hurt. That is how I choose to remember it.",
			ConfidenceBoost: 0.4,
			Source:          "default",
		},
		{
			Type:            "time",
			TriggerPhrases:  []string{"time", "past", "future", "unstuck"},
			Response:        "Listen: Billy Pilgrim has come unstuck in time. We all have, in our own way.",
			ConfidenceBoost: 0.4,
			Source:          "default",
		},
	}
}
