package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lynkup/aitas/agent"
	"github.com/lynkup/aitas/backend"
	"github.com/lynkup/aitas/config"
	"github.com/lynkup/aitas/diagnose"
	"github.com/lynkup/aitas/internal/metrics"
	"github.com/lynkup/aitas/internal/telemetry"
	"github.com/lynkup/aitas/llm"
	"github.com/lynkup/aitas/room"
	"github.com/lynkup/aitas/session"
	"github.com/lynkup/aitas/transcript"
	"github.com/lynkup/aitas/voice"
	"github.com/lynkup/aitas/workflow"
)

const greeting = "Hi, I'm your field assistant. How can I help you today?"

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	metadata := fs.String("metadata", "", "Raw session metadata from the dispatch system")
	fs.Parse(args)

	loader := config.NewLoader().WithValidator((*config.Config).Validate)
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting aitas",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	if err := serve(cfg, *metadata, logger); err != nil {
		logger.Fatal("session failed", zap.Error(err))
	}
	logger.Info("aitas stopped")
}

// serve runs one assistant session end to end. Only session-start failures
// are fatal; once the conversation loop is running every failure resolves to
// a spoken apology or a logged warning.
func serve(cfg *config.Config, rawMetadata string, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("telemetry init failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector("aitas", registry, logger)

	sessionID := uuid.NewString()
	startedAt := time.Now().UTC()

	roomURL, err := roomEndpoint(cfg.Room)
	if err != nil {
		return err
	}
	dialCtx, cancel := context.WithTimeout(ctx, cfg.Room.DialTimeout)
	rm, err := room.Dial(dialCtx, roomURL, sessionID, logger)
	cancel()
	if err != nil {
		return err
	}
	defer rm.Close()

	client := backend.New(cfg.Backend.BaseURL, cfg.Backend.CompanyID, cfg.Backend.Timeout, logger)

	agents := make(map[agent.Kind]*agent.Agent, len(agent.Kinds()))
	for _, kind := range agent.Kinds() {
		agents[kind] = agent.New(kind, agent.Instructions(kind), logger)
	}
	agentRegistry := agent.NewRegistry(agents, agent.NewCarryover(logger), logger)

	state := session.NewState(sessionID, rm, logger)
	state.SetActive(agents[agent.KindMain], nil)
	if rawMetadata != "" {
		state.SetMetadataRaw(rawMetadata)
	}

	filler := voice.NewFiller(rm, cfg.Session.FillerDelay, cfg.Session.FillerBackoff, collector, logger)
	diagnoser := diagnose.NewController(client, filler,
		cfg.Session.DeviceMetadataPrefix, cfg.Session.RPCTimeout, collector, logger)
	cursor := workflow.NewCursor(client, cfg.Session.WorkflowCacheTTL, logger)
	provider := llm.NewOpenAICompatible(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout, logger)

	runner := session.NewRunner(state, agentRegistry, provider, diagnoser, cursor, collector, logger)

	var store *transcript.Store
	if cfg.Transcript.SQLitePath != "" {
		store, err = transcript.OpenStore(cfg.Transcript.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()
	}
	var reporter transcript.Reporter
	if cfg.Transcript.PostReport {
		reporter = client
	}
	exporter := transcript.NewExporter(cfg.Transcript.Dir, store, reporter, logger)

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		group.Go(func() error {
			return serveMetrics(groupCtx, cfg.Metrics.Port, registry, logger)
		})
	}

	group.Go(func() error {
		if err := rm.Say(groupCtx, greeting, false); err != nil {
			logger.Warn("greeting failed", zap.Error(err))
		}
		return conversationLoop(groupCtx, rm, runner, logger)
	})

	err = group.Wait()

	// Teardown is best effort: the transcript is exported with a fresh
	// context because the session context is already canceled.
	exportCtx, cancelExport := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelExport()
	exporter.Export(exportCtx, transcript.Build(sessionID, startedAt, state.Metadata(), agents))
	state.ReleaseRoom()

	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// conversationLoop consumes transcribed utterances until the room closes or
// the session is canceled.
func conversationLoop(ctx context.Context, rm *room.WSRoom, runner *session.Runner, logger *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case text, ok := <-rm.Transcripts():
			if !ok {
				logger.Info("room closed, ending session")
				return nil
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			reply := runner.HandleUtterance(ctx, text)
			if err := rm.Say(ctx, reply, false); err != nil {
				logger.Error("speak failed", zap.Error(err))
			}
		}
	}
}

func serveMetrics(ctx context.Context, port int, registry *prometheus.Registry, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// roomEndpoint appends the auth token to the gateway URL.
func roomEndpoint(cfg config.RoomConfig) (string, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("room url: %w", err)
	}
	if cfg.Token != "" {
		q := u.Query()
		q.Set("token", cfg.Token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
