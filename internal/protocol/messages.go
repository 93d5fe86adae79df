package protocol

import "time"

// Client-to-server message types carried over the session WebSocket.
const (
	TypeStartListening  = "start_listening"
	TypeStopListening   = "stop_listening"
	TypeAudioChunk      = "audio_chunk"
	TypeTranscribedText = "transcribed_text"
	TypeVoiceSettings   = "voice_settings"
	TypePing            = "ping"
)

// Server-to-client message types.
const (
	TypeWelcome         = "welcome"
	TypeVADResult       = "vad_result"
	TypeStatus          = "status"
	TypeTranscription   = "transcription"
	TypeFAQResponse     = "faq_response"
	TypeVoiceResponse   = "voice_response"
	TypeTextResponse    = "text_response"
	TypeSettingsUpdated = "settings_updated"
	TypeError           = "error"
	TypePong            = "pong"
)

// ClientMessage is the envelope for everything a client sends. Unused
// fields stay empty; Type selects which ones matter.
type ClientMessage struct {
	Type     string         `json:"type"`
	Data     string         `json:"data,omitempty"`     // audio_chunk: base64 PCM16
	Text     string         `json:"text,omitempty"`     // transcribed_text
	Settings *VoiceSettings `json:"settings,omitempty"` // voice_settings
}

// VoiceSettings tunes synthesis for one session and optionally
// switches the active persona.
type VoiceSettings struct {
	Speed   int     `json:"speed,omitempty"`  // words per minute
	Volume  float64 `json:"volume,omitempty"` // 0..1
	Persona string  `json:"persona,omitempty"`
}

// ServerInfo is sent once in the welcome message; the sample rate is
// fixed for the life of the session.
type ServerInfo struct {
	SampleRate       int      `json:"sample_rate"`
	ChunkSize        int      `json:"chunk_size"`
	Persona          string   `json:"persona"`
	SupportedFormats []string `json:"supported_formats"`
}

// ServerMessage is the envelope for everything the server sends.
type ServerMessage struct {
	Type              string         `json:"type"`
	ClientID          string         `json:"client_id,omitempty"`
	ServerInfo        *ServerInfo    `json:"server_info,omitempty"`
	SpeechProbability *float64       `json:"speech_probability,omitempty"`
	IsSpeech          *bool          `json:"is_speech,omitempty"`
	Status            string         `json:"status,omitempty"`
	Text              string         `json:"text,omitempty"`
	Confidence        float64        `json:"confidence,omitempty"`
	AudioData         string         `json:"audio_data,omitempty"` // base64 PCM16
	SampleRate        int            `json:"sample_rate,omitempty"`
	Engine            string         `json:"engine,omitempty"`
	Settings          *VoiceSettings `json:"settings,omitempty"`
	Message           string         `json:"message,omitempty"` // error detail
}

// Bus subjects for display integrations (hologram renderer, avatar
// compositor). Session-scoped payloads are published fire-and-forget.
const (
	SubjectTranscriptFinal = "oracle.transcript.final"
	SubjectResponseAudio   = "oracle.response.audio"
	SubjectResponseText    = "oracle.response.text"
)

// TranscriptEvent is published on SubjectTranscriptFinal.
type TranscriptEvent struct {
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ResponseEvent is published on SubjectResponseAudio or
// SubjectResponseText. PCM is omitted on the text subject.
type ResponseEvent struct {
	SessionID  string    `json:"session_id"`
	Text       string    `json:"text"`
	Source     string    `json:"source"` // faq or llm
	Engine     string    `json:"engine,omitempty"`
	PCM        []byte    `json:"pcm,omitempty"`
	SampleRate int       `json:"sample_rate,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
