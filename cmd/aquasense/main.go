package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/aquasense/aquasense/internal/api"
	"github.com/aquasense/aquasense/internal/config"
	"github.com/aquasense/aquasense/internal/inference"
	"github.com/aquasense/aquasense/internal/observability"
	"github.com/aquasense/aquasense/internal/report"
	"github.com/aquasense/aquasense/internal/risk"
	"github.com/aquasense/aquasense/internal/store"
	"github.com/aquasense/aquasense/internal/upload"
)

const version = "1.0.0"

func main() {
	var (
		addr   = flag.String("addr", "", "Listen address (overrides config)")
		dbPath = flag.String("db", "", "SQLite database path (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	observability.InitMetrics()
	shutdownTracing := observability.InitTracing(ctx, observability.TracingOptions{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: "aquasense",
		Version:     version,
	})

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	analysisCascade, chatCascade := buildCascades(cfg)
	analyzer := risk.NewAnalyzer(analysisCascade)
	assistant := risk.NewAssistant(chatCascade)
	uploads := upload.NewAnalyzer(analysisCascade)

	handler := api.NewServer(st, analyzer, assistant, uploads, report.NewChromiumPDFRenderer())

	log.Printf("aquasense listening addr=%s db=%s ai_backend=%t", cfg.ListenAddr, cfg.DBPath, analyzer.Configured())
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
		if shutdownTracing != nil {
			_ = shutdownTracing(shutdownCtx)
		}
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// buildCascades wires the model cascades. Without an API key both come back
// nil, which puts the whole pipeline in demonstration mode.
func buildCascades(cfg config.Config) (risk.Invoker, risk.Invoker) {
	gen, err := inference.NewAnthropicGeneratorFromEnv()
	if err != nil {
		log.Printf("main ai_backend_unavailable err=%v", err)
		return nil, nil
	}
	analysis, err := inference.NewCascade(gen, cfg.Analysis.Models, cfg.Analysis.Timeout)
	if err != nil {
		log.Fatal(err)
	}
	chat, err := inference.NewCascade(gen, cfg.Chat.Models, cfg.Chat.Timeout)
	if err != nil {
		log.Fatal(err)
	}
	return analysis, chat
}
