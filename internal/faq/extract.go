package faq

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

const (
	minSentenceLen = 20
	maxSentenceLen = 200

	maxContextsPerPhrase  = 3
	maxExplanationEntries = 10
	maxPhilosophyEntries  = 15
	maxCharacterEntries   = 10
)

// signaturePhrases are located verbatim in the source transcript and
// boosted so the canned path wins for them.
var signaturePhrases = []string{
	"So it goes",
	"Everything was beautiful and nothing hurt",
	"Listen:",
	"Human beings",
	"All this happened, more or less",
	"Billy Pilgrim",
	"unstuck in time",
}

// connectiveWords flag sentences that read like explanations.
var connectiveWords = []string{"because", "since", "therefore", "thus", "so"}

// philosophicalKeywords flag dense sentences worth canning.
var philosophicalKeywords = []string{
	"life", "death", "time", "existence", "meaning", "purpose",
	"reality", "truth", "human", "nature", "soul", "god",
	"war", "peace", "love", "hate", "beautiful", "ugly",
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	properNoun    = regexp.MustCompile(`[A-Z][a-z]+ [A-Z][a-z]+`)
	alphaWord     = regexp.MustCompile(`^[a-z]+$`)
)

// buildFromTranscript runs the one-time extraction pass: signature
// phrases, explanatory sentences, philosophically dense sentences and
// character references, deduplicated by response text, ranked by boost
// and capped.
func buildFromTranscript(path string, maxEntries int) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("transcript is empty")
	}

	sentences := splitSentences(text)

	var entries []Entry
	entries = append(entries, extractSignatureQuotes(sentences)...)
	entries = append(entries, extractExplanations(sentences)...)
	entries = append(entries, extractPhilosophical(sentences)...)
	entries = append(entries, extractCharacterReferences(sentences)...)

	return dedupeAndRank(entries, maxEntries), nil
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceSplit.Split(text, -1) {
		s = strings.TrimSpace(s)
		if len(s) >= minSentenceLen && len(s) <= maxSentenceLen {
			out = append(out, s)
		}
	}
	return out
}

func extractSignatureQuotes(sentences []string) []Entry {
	var entries []Entry
	for _, phrase := range signaturePhrases {
		lower := strings.ToLower(phrase)
		found := 0
		for _, sentence := range sentences {
			if !strings.Contains(strings.ToLower(sentence), lower) {
				continue
			}
			entries = append(entries, Entry{
				Type:            "famous_quote",
				TriggerPhrases:  []string{lower},
				Response:        sentence,
				ConfidenceBoost: 0.2,
				Source:          "transcript",
			})
			found++
			if found >= maxContextsPerPhrase {
				break
			}
		}
	}
	return entries
}

func extractExplanations(sentences []string) []Entry {
	var entries []Entry
	for _, sentence := range sentences {
		if len(entries) >= maxExplanationEntries {
			break
		}
		lower := strings.ToLower(sentence)
		if !containsAnyWord(lower, connectiveWords) {
			continue
		}
		triggers := conceptTriggers(lower)
		if len(triggers) == 0 {
			continue
		}
		entries = append(entries, Entry{
			Type:            "explanation",
			TriggerPhrases:  triggers,
			Response:        sentence,
			ConfidenceBoost: 0.1,
			Source:          "transcript",
		})
	}
	return entries
}

// conceptTriggers turns the sentence's longer words into question-form
// trigger phrases, capped at five.
func conceptTriggers(lower string) []string {
	var concepts []string
	for _, w := range strings.Fields(lower) {
		if len(w) > 4 && alphaWord.MatchString(w) {
			concepts = append(concepts, w)
			if len(concepts) == 3 {
				break
			}
		}
	}
	var triggers []string
	for _, c := range concepts {
		triggers = append(triggers,
			"what is "+c,
			"tell me about "+c,
			"explain "+c,
			c,
		)
	}
	if len(triggers) > 5 {
		triggers = triggers[:5]
	}
	return triggers
}

func extractPhilosophical(sentences []string) []Entry {
	var entries []Entry
	for _, sentence := range sentences {
		if len(entries) >= maxPhilosophyEntries {
			break
		}
		lower := strings.ToLower(sentence)
		var hits []string
		for _, kw := range philosophicalKeywords {
			if strings.Contains(lower, kw) {
				hits = append(hits, kw)
			}
		}
		if len(hits) < 2 {
			continue
		}
		var triggers []string
		for _, kw := range hits {
			triggers = append(triggers, kw, "what about "+kw, "thoughts on "+kw)
		}
		if len(triggers) > 5 {
			triggers = triggers[:5]
		}
		entries = append(entries, Entry{
			Type:            "philosophical",
			TriggerPhrases:  triggers,
			Response:        sentence,
			ConfidenceBoost: 0.15,
			Source:          "transcript",
		})
	}
	return entries
}

func extractCharacterReferences(sentences []string) []Entry {
	var entries []Entry
	for _, sentence := range sentences {
		if len(entries) >= maxCharacterEntries {
			break
		}
		name := properNoun.FindString(sentence)
		if name == "" {
			continue
		}
		lower := strings.ToLower(name)
		entries = append(entries, Entry{
			Type: "character",
			TriggerPhrases: []string{
				lower,
				"who is " + lower,
				"tell me about " + lower,
				"what about " + lower,
			},
			Response:        sentence,
			ConfidenceBoost: 0.1,
			Source:          "transcript",
		})
	}
	return entries
}

func containsAnyWord(lower string, words []string) bool {
	fields := strings.Fields(lower)
	for _, f := range fields {
		f = strings.Trim(f, ",;:")
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}

// dedupeAndRank removes exact duplicate responses, orders by boost
// (stable, so extraction order breaks ties) and caps the table.
func dedupeAndRank(entries []Entry, maxEntries int) []Entry {
	seen := make(map[string]struct{})
	var unique []Entry
	for _, e := range entries {
		key := strings.TrimSpace(e.Response)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, e)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].ConfidenceBoost > unique[j].ConfidenceBoost
	})
	if len(unique) > maxEntries {
		unique = unique[:maxEntries]
	}
	for i := range unique {
		unique[i].ID = i
	}
	return unique
}
