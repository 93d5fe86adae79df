package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oraclelabs/oracle-voice/internal/audio"
	"github.com/oraclelabs/oracle-voice/internal/eventstore"
	"github.com/oraclelabs/oracle-voice/internal/llm"
	"github.com/oraclelabs/oracle-voice/internal/persona"
	"github.com/oraclelabs/oracle-voice/internal/protocol"
	"github.com/oraclelabs/oracle-voice/internal/tts"
	"github.com/oraclelabs/oracle-voice/internal/vad"
)

type state string

const (
	stateIdle       state = "idle"
	stateListening  state = "listening"
	stateProcessing state = "processing"
	stateSpeaking   state = "speaking"
)

// session is all the state for one connected client. Nothing here is
// shared between connections, so no locking: the read loop is the only
// writer.
type session struct {
	id        string
	createdAt time.Time
	deps      *Deps
	persona   persona.Persona
	logger    *slog.Logger

	state    state
	detector vad.Detector
	machine  *vad.StateMachine

	buffer      []float32 // current utterance
	samplesSeen int64     // stream clock for the state machine

	history  []llm.Turn
	settings protocol.VoiceSettings

	send func(ctx context.Context, msg protocol.ServerMessage) error
}

func (s *session) readDeadline() time.Duration {
	if s.deps.Config.Session.PingTimeout <= 0 {
		return 0
	}
	// Three missed client pings before the read loop gives up.
	return 3 * time.Duration(s.deps.Config.Session.PingTimeout) * time.Millisecond
}

func (s *session) sendWelcome(ctx context.Context) error {
	return s.send(ctx, protocol.ServerMessage{
		Type:     protocol.TypeWelcome,
		ClientID: s.id,
		ServerInfo: &protocol.ServerInfo{
			SampleRate:       s.deps.Config.VAD.SampleRate,
			ChunkSize:        s.deps.Config.VAD.SampleRate * s.deps.Config.VAD.FrameDurationMS / 1000,
			Persona:          s.persona.Name,
			SupportedFormats: []string{"pcm16"},
		},
		Text: s.persona.Greeting,
	})
}

func (s *session) sendError(ctx context.Context, detail string) {
	if err := s.send(ctx, protocol.ServerMessage{Type: protocol.TypeError, Message: detail}); err != nil {
		s.logger.Debug("send error message failed", slog.String("error", err.Error()))
	}
}

func (s *session) setState(ctx context.Context, next state) {
	if s.state == next {
		return
	}
	s.state = next
	if err := s.send(ctx, protocol.ServerMessage{Type: protocol.TypeStatus, Status: string(next)}); err != nil {
		s.logger.Debug("send status failed", slog.String("error", err.Error()))
	}
}

// handleMessage dispatches one client message. Unknown types are
// logged and ignored rather than terminating the session.
func (s *session) handleMessage(ctx context.Context, msg protocol.ClientMessage) {
	switch msg.Type {
	case protocol.TypeStartListening:
		s.startListening(ctx)
	case protocol.TypeStopListening:
		s.stopListening(ctx)
	case protocol.TypeAudioChunk:
		s.handleAudioChunk(ctx, msg.Data)
	case protocol.TypeTranscribedText:
		s.handleTranscribedText(ctx, msg.Text)
	case protocol.TypeVoiceSettings:
		s.handleVoiceSettings(ctx, msg.Settings)
	case protocol.TypePing:
		if err := s.send(ctx, protocol.ServerMessage{Type: protocol.TypePong}); err != nil {
			s.logger.Debug("pong failed", slog.String("error", err.Error()))
		}
	default:
		s.logger.Debug("ignoring unknown message type", slog.String("type", msg.Type))
	}
}

func (s *session) startListening(ctx context.Context) {
	s.machine.Reset()
	s.buffer = s.buffer[:0]
	s.samplesSeen = 0
	s.setState(ctx, stateListening)
}

// stopListening closes the stream. An open utterance that already
// meets the minimum duration is flushed through the pipeline rather
// than dropped.
func (s *session) stopListening(ctx context.Context) {
	if s.machine.Speaking() {
		minSamples := int(int64(s.deps.Config.VAD.MinSpeechDurationMS) * int64(s.deps.Config.VAD.SampleRate) / 1000)
		if len(s.buffer) >= minSamples {
			utterance := append([]float32(nil), s.buffer...)
			s.processUtterance(ctx, utterance)
		}
	}
	s.machine.Reset()
	s.buffer = s.buffer[:0]
	s.setState(ctx, stateIdle)
}

func (s *session) handleAudioChunk(ctx context.Context, data string) {
	if s.state != stateListening {
		return
	}
	frame, err := audio.DecodePCM16(data)
	if err != nil {
		s.sendError(ctx, "bad audio chunk: "+err.Error())
		return
	}
	if len(frame) == 0 {
		return
	}

	prob, err := s.detector.Detect(ctx, frame)
	if err != nil {
		s.sendError(ctx, "voice detection failed")
		return
	}

	s.samplesSeen += int64(len(frame))
	ts := time.Duration(s.samplesSeen) * time.Second / time.Duration(s.deps.Config.VAD.SampleRate)
	event := s.machine.Update(prob, ts)

	isSpeech := event.Type == vad.EventSpeechStart || event.Type == vad.EventSpeechContinue
	if err := s.send(ctx, protocol.ServerMessage{
		Type:              protocol.TypeVADResult,
		SpeechProbability: &prob,
		IsSpeech:          &isSpeech,
	}); err != nil {
		s.logger.Debug("send vad result failed", slog.String("error", err.Error()))
	}

	switch event.Type {
	case vad.EventSpeechStart, vad.EventSpeechContinue:
		s.buffer = append(s.buffer, frame...)
	case vad.EventSpeechEnd, vad.EventSpeechTimeout:
		utterance := append([]float32(nil), s.buffer...)
		s.buffer = s.buffer[:0]
		if event.ValidSpeech {
			s.processUtterance(ctx, utterance)
			s.setState(ctx, stateListening)
		} else {
			s.logger.Debug("discarding short utterance",
				slog.Duration("duration", event.Duration))
		}
	}
}

// handleTranscribedText bypasses detection and transcription for
// clients that run their own speech recognition.
func (s *session) handleTranscribedText(ctx context.Context, text string) {
	if text == "" {
		s.sendError(ctx, "empty transcribed_text")
		return
	}
	prior := s.state
	s.respond(ctx, text)
	s.setState(ctx, prior)
}

func (s *session) handleVoiceSettings(ctx context.Context, settings *protocol.VoiceSettings) {
	if settings == nil {
		s.sendError(ctx, "voice_settings missing settings")
		return
	}
	if settings.Speed != 0 {
		s.settings.Speed = clampInt(settings.Speed, 50, 400)
	}
	if settings.Volume != 0 {
		s.settings.Volume = clampFloat(settings.Volume, 0, 1)
	}
	if settings.Persona != "" {
		p, ok := s.deps.Personas.Get(settings.Persona)
		if !ok {
			s.sendError(ctx, "unknown persona: "+settings.Persona)
			return
		}
		// A persona switch starts a fresh conversation.
		s.persona = p
		s.history = s.history[:0]
		s.settings.Persona = p.Name
	}
	if err := s.send(ctx, protocol.ServerMessage{
		Type:     protocol.TypeSettingsUpdated,
		Settings: &s.settings,
	}); err != nil {
		s.logger.Debug("send settings_updated failed", slog.String("error", err.Error()))
	}
}

// processUtterance runs a finished utterance through transcription and
// then the response pipeline.
func (s *session) processUtterance(ctx context.Context, samples []float32) {
	s.setState(ctx, stateProcessing)

	text, err := s.deps.Recognizer.Transcribe(ctx, samples, s.deps.Config.VAD.SampleRate)
	if err != nil {
		s.logger.Warn("transcription failed", slog.String("error", err.Error()))
		s.sendError(ctx, "transcription failed")
		s.setState(ctx, stateIdle)
		return
	}
	if text == "" {
		s.setState(ctx, stateIdle)
		return
	}
	s.respond(ctx, text)
}

// respond answers transcribed text: canned response when the router
// matches, language model otherwise, synthesized when any TTS engine
// is up. Degrades to text_response when all engines are down.
func (s *session) respond(ctx context.Context, text string) {
	if err := s.send(ctx, protocol.ServerMessage{Type: protocol.TypeTranscription, Text: text}); err != nil {
		s.logger.Debug("send transcription failed", slog.String("error", err.Error()))
	}
	s.deps.Bus.PublishTranscript(protocol.TranscriptEvent{
		SessionID: s.id,
		Text:      text,
		Timestamp: time.Now(),
	})
	s.recordTurn(ctx, eventstore.Turn{SessionID: s.id, Role: "user", Text: text})

	reply, source := s.composeReply(ctx, text)

	s.history = append(s.history,
		llm.Turn{Role: "user", Text: text},
		llm.Turn{Role: "assistant", Text: reply},
	)
	if limit := s.deps.Config.Session.MaxHistory; len(s.history) > limit {
		s.history = s.history[len(s.history)-limit:]
	}

	s.setState(ctx, stateSpeaking)
	engine := s.speak(ctx, reply, source)
	s.recordTurn(ctx, eventstore.Turn{SessionID: s.id, Role: "oracle", Text: reply, Source: source, Engine: engine})
	s.setState(ctx, stateIdle)
}

func (s *session) composeReply(ctx context.Context, text string) (reply, source string) {
	if match, ok := s.deps.FAQ.Check(text); ok {
		if err := s.send(ctx, protocol.ServerMessage{
			Type:       protocol.TypeFAQResponse,
			Text:       match.Text,
			Confidence: match.Confidence,
		}); err != nil {
			s.logger.Debug("send faq_response failed", slog.String("error", err.Error()))
		}
		return match.Text, "faq"
	}

	reply, err := s.deps.Generator.Generate(ctx, llm.Request{
		System:      s.persona.SystemPrompt,
		History:     s.history,
		Prompt:      text,
		MaxTokens:   s.deps.Config.LLM.MaxTokens,
		Temperature: s.deps.Config.LLM.Temperature,
	})
	if err != nil || reply == "" {
		if err != nil {
			s.logger.Warn("llm generation failed", slog.String("error", err.Error()))
		}
		return llm.Fallback(), "fallback"
	}
	return reply, "llm"
}

// speak synthesizes and delivers the reply. Returns the engine that
// produced audio, or empty when the session degraded to text.
func (s *session) speak(ctx context.Context, reply, source string) string {
	result, err := s.deps.Synth.Synthesize(ctx, reply)
	if err != nil {
		if !errors.Is(err, tts.ErrAllEnginesFailed) {
			s.logger.Warn("synthesis failed", slog.String("error", err.Error()))
		}
		if err := s.send(ctx, protocol.ServerMessage{Type: protocol.TypeTextResponse, Text: reply}); err != nil {
			s.logger.Debug("send text_response failed", slog.String("error", err.Error()))
		}
		s.deps.Bus.PublishResponse(protocol.ResponseEvent{
			SessionID: s.id,
			Text:      reply,
			Source:    source,
			Timestamp: time.Now(),
		})
		return ""
	}

	samples := applyVolume(result.Samples, s.settings.Volume)
	if err := s.send(ctx, protocol.ServerMessage{
		Type:       protocol.TypeVoiceResponse,
		Text:       reply,
		AudioData:  audio.EncodePCM16(samples),
		SampleRate: result.SampleRate,
		Engine:     result.Engine,
	}); err != nil {
		s.logger.Debug("send voice_response failed", slog.String("error", err.Error()))
	}
	s.deps.Bus.PublishResponse(protocol.ResponseEvent{
		SessionID:  s.id,
		Text:       reply,
		Source:     source,
		Engine:     result.Engine,
		PCM:        audio.PCM16Bytes(samples),
		SampleRate: result.SampleRate,
		Timestamp:  time.Now(),
	})
	return result.Engine
}

func (s *session) recordTurn(ctx context.Context, turn eventstore.Turn) {
	if s.deps.Store == nil {
		return
	}
	if err := s.deps.Store.AppendTurn(ctx, turn); err != nil {
		s.logger.Warn("record turn failed", slog.String("error", err.Error()))
	}
}

func applyVolume(samples []float32, volume float64) []float32 {
	if volume <= 0 || volume >= 1 {
		return samples
	}
	scaled := make([]float32, len(samples))
	for i, v := range samples {
		scaled[i] = v * float32(volume)
	}
	return scaled
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
