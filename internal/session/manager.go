// Package session runs one conversation per WebSocket connection:
// audio frames in, voice detection, transcription, canned or generated
// replies, synthesized audio out. All per-connection state lives here
// and dies with the connection.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/oraclelabs/oracle-voice/internal/bus"
	"github.com/oraclelabs/oracle-voice/internal/config"
	"github.com/oraclelabs/oracle-voice/internal/eventstore"
	"github.com/oraclelabs/oracle-voice/internal/faq"
	"github.com/oraclelabs/oracle-voice/internal/llm"
	"github.com/oraclelabs/oracle-voice/internal/persona"
	"github.com/oraclelabs/oracle-voice/internal/protocol"
	"github.com/oraclelabs/oracle-voice/internal/stt"
	"github.com/oraclelabs/oracle-voice/internal/tts"
	"github.com/oraclelabs/oracle-voice/internal/vad"
)

// Synthesizer is the slice of the TTS chain the orchestrator needs.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (tts.Result, error)
}

// FAQChecker is the slice of the canned-response router the
// orchestrator needs.
type FAQChecker interface {
	Check(query string) (faq.Match, bool)
}

// Deps collects the pipeline collaborators. Bus and Store may be nil;
// both degrade to no-ops.
type Deps struct {
	Config     config.Config
	Logger     *slog.Logger
	Detector   vad.Detector
	Recognizer stt.Recognizer
	Generator  llm.Generator
	Synth      Synthesizer
	FAQ        FAQChecker
	Personas   *persona.Registry
	Bus        *bus.Client
	Store      *eventstore.Store
}

// Manager accepts WebSocket connections and runs a session per
// connection.
type Manager struct {
	deps   Deps
	logger *slog.Logger
	active atomic.Int64
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:   deps,
		logger: deps.Logger.With(slog.String("component", "session")),
	}
}

// ActiveSessions reports the number of connected clients.
func (m *Manager) ActiveSessions() int64 {
	return m.active.Load()
}

// ServeHTTP upgrades the connection and runs the session read loop.
// Messages are handled strictly sequentially, so a session never
// interleaves two utterances.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		m.logger.Error("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	ws.SetReadLimit(1 << 20)

	sess := m.newSession(ws)
	m.active.Add(1)
	defer m.active.Add(-1)
	defer ws.Close(websocket.StatusNormalClosure, "")

	logger := m.logger.With(slog.String("client_id", sess.id))
	logger.Info("client connected")

	ctx := r.Context()
	if err := sess.sendWelcome(ctx); err != nil {
		logger.Warn("welcome failed", slog.String("error", err.Error()))
		return
	}
	if m.deps.Store != nil {
		if err := m.deps.Store.BeginSession(ctx, sess.id, sess.persona.Name); err != nil {
			logger.Warn("record session", slog.String("error", err.Error()))
		}
	}

	for {
		readCtx := ctx
		var cancel context.CancelFunc
		if d := sess.readDeadline(); d > 0 {
			readCtx, cancel = context.WithTimeout(ctx, d)
		}
		kind, data, err := ws.Read(readCtx)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				logger.Info("client disconnected")
			} else {
				logger.Warn("websocket read error", slog.String("error", err.Error()))
			}
			return
		}
		if kind != websocket.MessageText {
			logger.Debug("ignoring non-text frame")
			continue
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.sendError(ctx, "malformed message")
			continue
		}
		sess.handleMessage(ctx, msg)
	}
}

func (m *Manager) newSession(ws *websocket.Conn) *session {
	p := m.deps.Personas.Default()
	return &session{
		id:        uuid.NewString(),
		createdAt: time.Now(),
		deps:      &m.deps,
		persona:   p,
		state:     stateIdle,
		detector:  m.deps.Detector,
		machine:   vad.NewStateMachine(m.deps.Config.VAD),
		settings: protocol.VoiceSettings{
			Speed:   m.deps.Config.TTS.Offline.Rate,
			Volume:  m.deps.Config.TTS.Offline.Volume,
			Persona: p.Name,
		},
		send: func(ctx context.Context, msg protocol.ServerMessage) error {
			data, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			return ws.Write(ctx, websocket.MessageText, data)
		},
		logger: m.logger,
	}
}
