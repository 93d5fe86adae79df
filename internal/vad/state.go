package vad

import (
	"time"

	"github.com/oraclelabs/oracle-voice/internal/config"
)

// EventType labels a state machine observation for one frame.
type EventType string

const (
	// EventSilence: no speech in progress.
	EventSilence EventType = "silence"
	// EventSpeechStart: probability first crossed the threshold.
	EventSpeechStart EventType = "speech_start"
	// EventSpeechContinue: utterance in progress.
	EventSpeechContinue EventType = "speech_continue"
	// EventSpeechEnd: continuous silence exceeded the hangover.
	EventSpeechEnd EventType = "speech_end"
	// EventSpeechTimeout: utterance hit the hard duration cap and is
	// force-flushed. Not an error; always valid speech.
	EventSpeechTimeout EventType = "speech_timeout"
)

// Event is the per-frame output of Update.
type Event struct {
	Type        EventType
	Duration    time.Duration // measured utterance length, boundary events only
	ValidSpeech bool          // Duration >= min speech duration
	Probability float64
	Timestamp   time.Duration
}

// Boundary reports whether the event closes an utterance.
func (e Event) Boundary() bool {
	return e.Type == EventSpeechEnd || e.Type == EventSpeechTimeout
}

// StateMachine tracks in-utterance vs silence over a probability
// stream. The hangover keeps a single sub-threshold frame from
// splitting one utterance into many; the machine runs for the session
// lifetime and is reset between utterances by the caller.
type StateMachine struct {
	threshold float64
	hangover  time.Duration
	minSpeech time.Duration
	maxSpeech time.Duration

	speaking    bool
	speechStart time.Duration
	lastSpeech  time.Duration
}

// NewStateMachine builds a machine from config, applying the
// documented defaults for unset values (threshold 0.5, hangover 1 s,
// min 0.5 s, max 30 s).
func NewStateMachine(cfg config.VADConfig) *StateMachine {
	m := &StateMachine{
		threshold: cfg.Threshold,
		hangover:  time.Duration(cfg.HangoverMS) * time.Millisecond,
		minSpeech: time.Duration(cfg.MinSpeechDurationMS) * time.Millisecond,
		maxSpeech: time.Duration(cfg.MaxSpeechDurationMS) * time.Millisecond,
	}
	if m.threshold == 0 {
		m.threshold = 0.5
	}
	if m.hangover == 0 {
		m.hangover = time.Second
	}
	if m.minSpeech == 0 {
		m.minSpeech = 500 * time.Millisecond
	}
	if m.maxSpeech == 0 {
		m.maxSpeech = 30 * time.Second
	}
	return m
}

// Update advances the machine with the probability observed at ts
// (time since stream start) and returns the resulting event.
func (m *StateMachine) Update(prob float64, ts time.Duration) Event {
	isSpeech := prob > m.threshold

	if m.speaking && ts-m.speechStart > m.maxSpeech {
		duration := ts - m.speechStart
		m.speaking = false
		return Event{
			Type:        EventSpeechTimeout,
			Duration:    duration,
			ValidSpeech: true,
			Probability: prob,
			Timestamp:   ts,
		}
	}

	switch {
	case isSpeech && !m.speaking:
		m.speaking = true
		m.speechStart = ts
		m.lastSpeech = ts
		return Event{Type: EventSpeechStart, Probability: prob, Timestamp: ts}

	case isSpeech && m.speaking:
		m.lastSpeech = ts
		return Event{Type: EventSpeechContinue, Probability: prob, Timestamp: ts}

	case !isSpeech && m.speaking:
		if ts-m.lastSpeech > m.hangover {
			duration := m.lastSpeech - m.speechStart
			m.speaking = false
			return Event{
				Type:        EventSpeechEnd,
				Duration:    duration,
				ValidSpeech: duration >= m.minSpeech,
				Probability: prob,
				Timestamp:   ts,
			}
		}
		// Inside the hangover window the utterance stays open.
		return Event{Type: EventSpeechContinue, Probability: prob, Timestamp: ts}
	}

	return Event{Type: EventSilence, Probability: prob, Timestamp: ts}
}

// Speaking reports whether an utterance is currently open.
func (m *StateMachine) Speaking() bool { return m.speaking }

// Reset returns the machine to silence.
func (m *StateMachine) Reset() {
	m.speaking = false
	m.speechStart = 0
	m.lastSpeech = 0
}
