// Command docchat runs the document Q&A service: upload a document or point
// at a video transcript, get a summary, then ask follow-up questions against
// it in bounded conversational sessions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/docchat/docchat-go/internal/adapters/analysiscache"
	"github.com/docchat/docchat-go/internal/adapters/filewatcher"
	"github.com/docchat/docchat-go/internal/adapters/llm"
	"github.com/docchat/docchat-go/internal/adapters/loader"
	"github.com/docchat/docchat-go/internal/adapters/sessionstore"
	"github.com/docchat/docchat-go/internal/adapters/threads"
	"github.com/docchat/docchat-go/internal/adapters/transcript"
	"github.com/docchat/docchat-go/internal/config"
	"github.com/docchat/docchat-go/internal/domain/ports"
	"github.com/docchat/docchat-go/internal/domain/usecases"
	httpserver "github.com/docchat/docchat-go/internal/infrastructure/http"
	"github.com/docchat/docchat-go/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sessions := sessionstore.NewMemoryStore(
		sessionstore.WithSweepInterval(time.Minute),
		sessionstore.WithLogger(log.Named("sessions")),
	)
	defer sessions.Close()

	registry := threads.NewMemoryRegistry()
	model := llm.NewOllamaAdapter(cfg.OllamaURL, cfg.OllamaModel)

	cache, err := analysiscache.NewSQLiteCache(cfg.CachePath)
	if err != nil {
		return fmt.Errorf("opening analysis cache: %w", err)
	}
	defer cache.Close()

	transcripts := transcript.NewClient(cfg.TranscriptServiceURL,
		transcript.WithLogger(log.Named("transcript")))

	qa := usecases.NewQAUseCase(model, sessions, registry, usecases.QAConfig{
		MaxQuestionsPerSession:     cfg.MaxQuestionsPerSession,
		MaxTokensPerSession:        cfg.MaxTokensPerSession,
		EstimatedTokensPerQuestion: cfg.EstimatedTokensPerQuestion,
		EstimatedTokensPerAnswer:   cfg.EstimatedTokensPerAnswer,
		SessionTTL:                 cfg.SessionTTL,
	}, log.Named("qa"))

	analysis := usecases.NewAnalysisUseCase(model, qa, transcripts, cache,
		cfg.ChunkSize, cfg.ChunkOverlap, log.Named("analysis"))

	if cfg.WatchDir != "" {
		go watchDocuments(ctx, cfg.WatchDir, analysis, log.Named("watcher"))
	}

	server := httpserver.NewServer(analysis, qa, cfg.Addr, log.Named("http"))
	if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// watchDocuments analyzes files dropped into the watch directory.
func watchDocuments(ctx context.Context, dir string, analysis *usecases.AnalysisUseCase, log *zap.Logger) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Warn("creating watch directory failed", zap.Error(err))
		return
	}

	docs := loader.NewTextLoader()
	watcher, err := filewatcher.NewFSNotifyWatcher(docs.SupportedExtensions(), log)
	if err != nil {
		log.Warn("starting file watcher failed", zap.Error(err))
		return
	}
	defer watcher.Stop()

	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		log.Warn("watching directory failed", zap.String("dir", dir), zap.Error(err))
		return
	}
	log.Info("watching for documents", zap.String("dir", dir))

	for event := range events {
		if event.Operation == ports.FileDeleted {
			continue
		}

		doc, err := docs.Load(ctx, event.Path)
		if err != nil {
			log.Warn("loading document failed", zap.String("path", event.Path), zap.Error(err))
			continue
		}

		result, err := analysis.Analyze(ctx, doc)
		if err != nil {
			log.Warn("analyzing document failed", zap.String("path", event.Path), zap.Error(err))
			continue
		}
		log.Info("document ready",
			zap.String("path", event.Path),
			zap.String("session_id", result.SessionID),
			zap.Int("chunks", result.ChunkCount))
	}
}
