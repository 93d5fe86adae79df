// Package runtime wires the oracle's components together and runs the
// HTTP surface: the session WebSocket, the FAQ admin endpoints and the
// health and metrics handlers.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oraclelabs/oracle-voice/internal/bus"
	"github.com/oraclelabs/oracle-voice/internal/config"
	"github.com/oraclelabs/oracle-voice/internal/eventstore"
	"github.com/oraclelabs/oracle-voice/internal/faq"
	"github.com/oraclelabs/oracle-voice/internal/llm"
	"github.com/oraclelabs/oracle-voice/internal/natsserver"
	"github.com/oraclelabs/oracle-voice/internal/persona"
	"github.com/oraclelabs/oracle-voice/internal/session"
	"github.com/oraclelabs/oracle-voice/internal/stt"
	"github.com/oraclelabs/oracle-voice/internal/tts"
	"github.com/oraclelabs/oracle-voice/internal/vad"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error

	busClient  *bus.Client
	natsServer *natsserver.EmbeddedServer
	store      *eventstore.Store
	faqRouter  *faq.Router
	sessions   *session.Manager

	ready atomic.Bool
	wg    sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start builds the pipeline, serves HTTP and blocks until ctx is
// cancelled, then shuts everything down in reverse order.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	if err := r.startBus(ctx); err != nil {
		return err
	}

	store, err := eventstore.Open(ctx, r.cfg.EventStore, r.logger.With(slog.String("component", "eventstore")))
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	r.store = store

	faqRouter, err := faq.NewRouter(faq.Config{
		DatabasePath:        r.cfg.FAQ.DatabasePath,
		TranscriptPath:      r.cfg.FAQ.TranscriptPath,
		SimilarityThreshold: r.cfg.FAQ.SimilarityThreshold,
		MaxEntries:          r.cfg.FAQ.MaxEntries,
	}, r.logger.With(slog.String("component", "faq")))
	if err != nil {
		return fmt.Errorf("failed to build faq router: %w", err)
	}
	r.faqRouter = faqRouter

	personas, err := persona.Load(r.cfg.Persona, r.logger.With(slog.String("component", "persona")))
	if err != nil {
		return fmt.Errorf("failed to load personas: %w", err)
	}

	recognizer, err := stt.New(r.cfg.STT, r.logger.With(slog.String("component", "stt")))
	if err != nil {
		return fmt.Errorf("failed to build recognizer: %w", err)
	}

	synth, err := tts.New(r.cfg.TTS, r.logger.With(slog.String("component", "tts")))
	if err != nil {
		return fmt.Errorf("failed to build tts chain: %w", err)
	}
	r.logger.Info("tts chain ready", slog.Any("engines", synth.Engines()))

	r.sessions = session.NewManager(session.Deps{
		Config:     r.cfg,
		Logger:     r.logger,
		Detector:   vad.New(r.cfg.VAD, r.logger.With(slog.String("component", "vad"))),
		Recognizer: recognizer,
		Generator:  llm.New(r.cfg.LLM, r.logger.With(slog.String("component", "llm"))),
		Synth:      synth,
		FAQ:        faqRouter,
		Personas:   personas,
		Bus:        r.busClient,
		Store:      store,
	})

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", r.handleHealth)
	router.Get("/readyz", r.handleReady)
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler)
	}
	router.HandleFunc("/oracle/session", r.sessions.ServeHTTP)
	router.Post("/v1/faq/entries", r.handleFAQAdd)
	router.Get("/v1/faq/stats", r.handleFAQStats)
	router.Get("/v1/personas", r.handlePersonas(personas))

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.ready.Store(false)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	r.busClient.Close()
	r.natsServer.Shutdown()
	if err := r.store.Close(); err != nil {
		r.logger.Error("event store close error", slog.String("error", err.Error()))
	}

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

// startBus brings up the optional display-integration bus: an embedded
// NATS server for kiosk deploys, or a connection to external servers.
func (r *Runtime) startBus(ctx context.Context) error {
	if !r.cfg.Bus.Enabled {
		return nil
	}

	ns, err := natsserver.Start(r.cfg.Bus, r.logger.With(slog.String("component", "natsserver")))
	if err != nil {
		return fmt.Errorf("failed to start embedded nats: %w", err)
	}
	r.natsServer = ns

	busCfg := r.cfg.Bus
	if ns != nil {
		busCfg.Servers = []string{fmt.Sprintf("nats://127.0.0.1:%d", busCfg.Port)}
	}
	client, err := bus.Connect(ctx, busCfg, r.logger.With(slog.String("component", "bus")))
	if err != nil {
		return fmt.Errorf("failed to connect bus: %w", err)
	}
	r.busClient = client
	return nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !r.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	if r.cfg.Bus.Enabled && !r.busClient.Healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("bus unhealthy"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type faqAddRequest struct {
	TriggerPhrases []string `json:"trigger_phrases"`
	Response       string   `json:"response"`
	Type           string   `json:"type"`
}

// handleFAQAdd appends a canned response at runtime. The router
// persists the entry, so it survives restarts.
func (r *Runtime) handleFAQAdd(w http.ResponseWriter, req *http.Request) {
	var body faqAddRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if body.Type == "" {
		body.Type = "custom"
	}
	id, err := r.faqRouter.Add(body.TriggerPhrases, body.Response, body.Type)
	if err != nil {
		if strings.Contains(err.Error(), "persist") {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		} else {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]int{"id": id})
}

func (r *Runtime) handleFAQStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(r.faqRouter.Stats())
}

func (r *Runtime) handlePersonas(registry *persona.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"default":  registry.Default().Name,
			"personas": registry.Names(),
		})
	}
}
