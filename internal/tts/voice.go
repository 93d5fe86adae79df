package tts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
)

// Voice is one installed OS synthesizer voice.
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// listVoices runs the enumeration command and parses its JSON array.
func listVoices(command string) ([]Voice, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse voice list command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("voice list command is empty")
	}

	cmd := exec.Command(args[0], args[1:]...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("voice list command failed: %w", err)
	}

	var voices []Voice
	if err := json.Unmarshal(stdout.Bytes(), &voices); err != nil {
		return nil, fmt.Errorf("decode voice list: %w", err)
	}
	return voices, nil
}

var matureVoiceNames = []string{
	"david", "mark", "george", "james", "daniel", "alex", "fred",
}

var noveltyVoiceNames = []string{
	"whisper", "robot", "novelty", "bells", "bad news", "cellos",
}

// scoreVoice ranks a voice for an elderly male persona: male voices
// first, then mature-sounding named voices, with novelty voices
// pushed to the bottom.
func scoreVoice(v Voice) int {
	lower := strings.ToLower(v.Name + " " + v.ID)
	score := 0
	if strings.Contains(lower, "male") && !strings.Contains(lower, "female") {
		score += 3
	}
	for _, name := range matureVoiceNames {
		if strings.Contains(lower, name) {
			score += 2
			break
		}
	}
	if strings.Contains(lower, "sapi") || strings.Contains(lower, "microsoft") {
		score++
	}
	for _, name := range noveltyVoiceNames {
		if strings.Contains(lower, name) {
			score -= 2
			break
		}
	}
	return score
}

// selectVoice picks the highest-scoring voice. Ties keep the first
// enumerated voice, matching platform ordering.
func selectVoice(voices []Voice) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}
	best := voices[0]
	bestScore := scoreVoice(best)
	for _, v := range voices[1:] {
		if s := scoreVoice(v); s > bestScore {
			best, bestScore = v, s
		}
	}
	return best, true
}
