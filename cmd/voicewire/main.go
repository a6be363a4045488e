// Command voicewire runs the conversational voice pipeline server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/voicewire/go-voicewire/internal/config"
	"github.com/voicewire/go-voicewire/internal/log"
	"github.com/voicewire/go-voicewire/pkg/agent"
	"github.com/voicewire/go-voicewire/pkg/cache"
	"github.com/voicewire/go-voicewire/pkg/gateway"
	"github.com/voicewire/go-voicewire/pkg/inference"
	"github.com/voicewire/go-voicewire/pkg/memory"
	"github.com/voicewire/go-voicewire/pkg/rag"
	"github.com/voicewire/go-voicewire/pkg/stt"
	"github.com/voicewire/go-voicewire/pkg/tts"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "voicewire: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log.Init(cfg.Server.LogLevel)
	logger := log.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence. Redis is best effort; the store degrades to in-process
	// state when it is unreachable.
	redis := cache.NewRedis(ctx, cache.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Logger:   logger,
	})
	defer redis.Close()

	store := memory.NewStore(redis, memory.StoreOptions{
		MaxTurns: cfg.Memory.MaxTurns,
		TTL:      cfg.Redis.TTL,
		Logger:   logger,
	})

	// Providers.
	llm, err := inference.NewClient(
		inference.WithBaseURL(cfg.LLM.BaseURL),
		inference.WithAPIKey(cfg.LLM.APIKey),
		inference.WithModel(cfg.LLM.Model),
		inference.WithTemperature(cfg.LLM.Temperature),
		inference.WithMaxTokens(cfg.LLM.MaxTokens),
		inference.WithTimeout(cfg.LLM.Timeout),
		inference.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("inference client: %w", err)
	}
	defer llm.Close()

	transcriber, err := stt.NewClient(
		stt.WithBaseURL(cfg.STT.BaseURL),
		stt.WithAPIKey(cfg.STT.APIKey),
		stt.WithModel(cfg.STT.Model),
		stt.WithLanguage(cfg.STT.Language),
		stt.WithTimeout(cfg.STT.Timeout),
		stt.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("stt client: %w", err)
	}
	defer transcriber.Close()

	speech, err := tts.NewClient(
		tts.WithBaseURL(cfg.TTS.BaseURL),
		tts.WithAPIKey(cfg.TTS.APIKey),
		tts.WithVoice(cfg.TTS.Voice),
		tts.WithOutputFormat(tts.EncodingPCM24),
		tts.WithTimeout(cfg.TTS.Timeout),
		tts.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("tts client: %w", err)
	}
	defer speech.Close()

	retriever := rag.NewClient(
		rag.WithBaseURL(cfg.RAG.BaseURL),
		rag.WithTopK(cfg.RAG.TopK),
		rag.WithTimeout(cfg.RAG.Timeout),
		rag.WithLogger(logger),
	)
	defer retriever.Close()

	assembler := memory.NewAssembler(store, llm, memory.AssemblerOptions{
		SummaryThreshold: cfg.Memory.SummaryThreshold,
		Logger:           logger,
	})

	gw := gateway.New(func(sessionID string) *agent.Agent {
		return agent.New(sessionID, agent.Options{
			Transcriber:     transcriber,
			LLM:             llm,
			TTS:             speech,
			Retriever:       retriever,
			Store:           store,
			Assembler:       assembler,
			InputSampleRate: cfg.Audio.InputSampleRate,
			Logger:          logger,
		})
	}, gateway.Options{Logger: logger})

	app := fiber.New(fiber.Config{
		AppName:               "voicewire",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.Server.LogLevel == "debug" {
		app.Use(fiberlogger.New())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status":   "ok",
			"sessions": gw.SessionCount(),
			"redis":    redis.Available(),
		}
		return c.JSON(status)
	})

	gw.RegisterRoutes(app)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		app.Shutdown()
	}()

	logger.Info("voicewire listening", "addr", cfg.Addr())
	if err := app.Listen(cfg.Addr()); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
