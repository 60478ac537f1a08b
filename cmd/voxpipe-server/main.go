// voxpipe-server: conversational pipeline service.
// Turns a user utterance (text or audio) into an emotionally styled spoken
// response, with automatic fallback to local providers when cloud APIs fail.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/voxpipe/voxpipe/internal/config"
	"github.com/voxpipe/voxpipe/internal/log"
	"github.com/voxpipe/voxpipe/pkg/emotion"
	"github.com/voxpipe/voxpipe/pkg/fallback"
	"github.com/voxpipe/voxpipe/pkg/llm"
	"github.com/voxpipe/voxpipe/pkg/memory"
	"github.com/voxpipe/voxpipe/pkg/orchestrator"
	"github.com/voxpipe/voxpipe/pkg/ssml"
	"github.com/voxpipe/voxpipe/pkg/stt"
	"github.com/voxpipe/voxpipe/pkg/style"
	"github.com/voxpipe/voxpipe/pkg/tts"
	"github.com/voxpipe/voxpipe/pkg/web"
)

func main() {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)
	logger := log.L()
	logger.Info("starting voxpipe", "environment", cfg.Environment)

	store, err := buildStore(cfg)
	if err != nil {
		logger.Error("memory store init failed", "error", err)
		os.Exit(1)
	}

	manager := fallback.NewManager(fallback.ManagerConfig{
		FailureThreshold: cfg.FailureThreshold,
		CoolDown:         cfg.CoolDown,
		CoolDownFactor:   cfg.CoolDownFactor,
		MaxCoolDown:      cfg.MaxCoolDown,
		Logger:           logger,
	})

	transcribeGW, err := buildTranscription(cfg, manager, logger)
	if err != nil {
		logger.Error("transcription init failed", "error", err)
		os.Exit(1)
	}
	completeGW, err := buildCompletion(cfg, manager, logger)
	if err != nil {
		logger.Error("completion init failed", "error", err)
		os.Exit(1)
	}
	synthesizeGW, err := buildSynthesis(cfg, manager, logger)
	if err != nil {
		logger.Error("synthesis init failed", "error", err)
		os.Exit(1)
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Classifier: emotion.NewClassifier(logger),
		Selector: style.NewSelector(style.SelectorConfig{
			EscalationThreshold: cfg.EscalationThreshold,
			IntensityFloor:      cfg.IntensityFloor,
		}),
		Builder:       ssml.NewBuilder(ssml.WithVoice(cfg.TTS.Voice)),
		Store:         store,
		Transcribe:    transcribeGW,
		Complete:      completeGW,
		Synthesize:    synthesizeGW,
		ContextWindow: cfg.ContextWindow,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("orchestrator init failed", "error", err)
		os.Exit(1)
	}

	service := orchestrator.NewService(orch)
	server := web.NewServer(cfg.HTTPAddr, service, store, manager, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		logger.Error("http server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
	if err := service.Shutdown(); err != nil {
		logger.Warn("service shutdown", "error", err)
	}
	logger.Info("goodbye")
}

// buildStore selects the session memory backend.
func buildStore(cfg *config.Config) (memory.Store, error) {
	opts := memory.Options{
		SimilarityThreshold: cfg.SimilarityThreshold,
		RepetitionWindow:    cfg.RepetitionWindow,
	}

	if cfg.Memory.Backend == "redis" {
		redisOpts, err := redis.ParseURL(cfg.Memory.RedisURL)
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(redisOpts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		return memory.NewRedisStore(client, cfg.Memory.TTL, opts), nil
	}
	return memory.NewInMemoryStore(opts), nil
}

// buildTranscription assembles the transcription gateway, honoring the
// backend selector: the chosen backend serves as primary, the other as
// fallback.
func buildTranscription(cfg *config.Config, manager *fallback.Manager, logger *slog.Logger) (*fallback.Gateway[stt.AudioInput, *stt.Transcript], error) {
	cloud, err := stt.NewCloud(
		stt.WithAPIKey(cfg.STT.APIKey),
		stt.WithBaseURL(cfg.STT.BaseURL),
		stt.WithModel(cfg.STT.Model),
		stt.WithTimeout(cfg.STT.Timeout),
		stt.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	local, err := stt.NewLocal(
		stt.WithBaseURL(cfg.STT.LocalURL),
		stt.WithTimeout(cfg.STT.Timeout),
		stt.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	primary, secondary := order(cfg.STT.Backend, stt.Transcriber(cloud), stt.Transcriber(local))
	return fallback.NewGateway(
		fallback.Transcription,
		manager,
		func(ctx context.Context, in stt.AudioInput) (*stt.Transcript, error) { return primary.Transcribe(ctx, in) },
		func(ctx context.Context, in stt.AudioInput) (*stt.Transcript, error) { return secondary.Transcribe(ctx, in) },
		cfg.STT.Timeout,
		logger,
	), nil
}

// buildCompletion assembles the completion gateway.
func buildCompletion(cfg *config.Config, manager *fallback.Manager, logger *slog.Logger) (*fallback.Gateway[llm.Request, *llm.Reply], error) {
	cloud, err := llm.NewCloud(
		llm.WithAPIKey(cfg.LLM.APIKey),
		llm.WithBaseURL(cfg.LLM.BaseURL),
		llm.WithModel(cfg.LLM.Model),
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	local, err := llm.NewLocal(
		llm.WithBaseURL(cfg.LLM.LocalURL),
		llm.WithModel(cfg.LLM.LocalModel),
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	primary, secondary := order(cfg.LLM.Backend, llm.Completer(cloud), llm.Completer(local))
	return fallback.NewGateway(
		fallback.Completion,
		manager,
		func(ctx context.Context, req llm.Request) (*llm.Reply, error) { return primary.Complete(ctx, req) },
		func(ctx context.Context, req llm.Request) (*llm.Reply, error) { return secondary.Complete(ctx, req) },
		cfg.LLM.Timeout,
		logger,
	), nil
}

// buildSynthesis assembles the synthesis gateway.
func buildSynthesis(cfg *config.Config, manager *fallback.Manager, logger *slog.Logger) (*fallback.Gateway[tts.Speech, *tts.AudioResult], error) {
	cloud, err := tts.NewAzure(
		tts.WithAPIKey(cfg.TTS.APIKey),
		tts.WithRegion(cfg.TTS.Region),
		tts.WithVoice(cfg.TTS.Voice),
		tts.WithTimeout(cfg.TTS.Timeout),
		tts.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	local, err := tts.NewPiper(
		tts.WithPiper(cfg.TTS.PiperPath, cfg.TTS.PiperModel),
		tts.WithTimeout(cfg.TTS.Timeout),
		tts.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	primary, secondary := order(cfg.TTS.Backend, tts.Synthesizer(cloud), tts.Synthesizer(local))
	return fallback.NewGateway(
		fallback.Synthesis,
		manager,
		func(ctx context.Context, s tts.Speech) (*tts.AudioResult, error) { return primary.Synthesize(ctx, s) },
		func(ctx context.Context, s tts.Speech) (*tts.AudioResult, error) { return secondary.Synthesize(ctx, s) },
		cfg.TTS.Timeout,
		logger,
	), nil
}

// order returns (primary, fallback) per the backend selector.
func order[T any](backend config.Backend, cloud, local T) (T, T) {
	if backend == config.BackendLocal {
		return local, cloud
	}
	return cloud, local
}
