// Command gateway is the HTTP entrypoint wiring Embedder, VectorIndex,
// ContentStore, UpstreamClient, and BackgroundWriter into the
// /chat/completions handler.
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	embeddingopenai "semcache/embedding/openai"
	upstreamopenai "semcache/upstream/openai"

	"semcache/backgroundwriter"
	"semcache/contentstore/redis"
	"semcache/internal/config"
	"semcache/internal/logging"
	"semcache/vectorindex/qdrant"
)

func main() {
	cfg := config.Load()
	log := logging.New()

	embedder := embeddingopenai.New(cfg.EmbeddingBaseURL, cfg.EmbeddingModel, cfg.EmbeddingAPIKeyEnv, cfg.EmbeddingDimensions)
	upstreamClient := upstreamopenai.New(cfg.UpstreamBaseURL, cfg.UpstreamAPIKeyEnv)

	index, err := qdrant.New(cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantCollection, cfg.EmbeddingDimensions)
	if err != nil {
		log.Error("fail to init vector index: %s", err)
		os.Exit(1)
	}

	store, err := redis.New(cfg.RedisAddr)
	if err != nil {
		log.Error("fail to init content store: %s", err)
		os.Exit(1)
	}

	writer := backgroundwriter.New(store, index, 4, 256, cfg.BackgroundDeadline, log)

	gw := &Gateway{
		cfg:      cfg,
		log:      log,
		embedder: embedder,
		index:    index,
		store:    store,
		upstream: upstreamClient,
		writer:   writer,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", gw.CompletionHandle)

	if cfg.DebugMode {
		log.Info("debug mode on")
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: mux,
	}

	go func() {
		log.Info("starting server on port %d", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error: %s", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.BackgroundDeadline)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	writer.Shutdown()
}
