package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"spool/internal/chunkstore"
	"spool/internal/config"
	"spool/internal/daemon"
	"spool/internal/ipc"
	"spool/internal/journal"
	"spool/internal/logging"
	"spool/internal/pipeline"
	"spool/internal/server"
	"spool/internal/services/backend"
	"spool/internal/services/edgecache"
	"spool/internal/services/objectstore"
	"spool/internal/services/openai"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	chunks, err := chunkstore.New(cfg.Paths.UploadDir, cfg.Ingest.WriteQueueDepth, logger)
	if err != nil {
		log.Fatalf("open chunk store: %v", err)
	}

	jr, err := journal.Open(cfg)
	if err != nil {
		log.Fatalf("open journal: %v", err)
	}

	objects, err := objectstore.NewClient(ctx, cfg.ObjectStore)
	if err != nil {
		log.Fatalf("init object store client: %v", err)
	}
	cache, err := edgecache.NewClient(ctx, cfg.ObjectStore, cfg.EdgeCache)
	if err != nil {
		log.Fatalf("init edge cache client: %v", err)
	}

	runner := pipeline.NewRunner(pipeline.Deps{
		Chunks:      chunks,
		Backend:     backend.NewClient(cfg.Backend.BaseURL, backend.WithHTTPClient(&http.Client{Timeout: cfg.BackendTimeout()})),
		ObjectStore: objects,
		EdgeCache:   cache,
		Transcriber: openai.NewClient(cfg.OpenAI, openai.WithHTTPClient(&http.Client{Timeout: cfg.OpenAITimeout()})),
		Journal:     jr,
		Logger:      logger,

		MaxTranscribeBytes: cfg.OpenAI.MaxInputBytes,
	})

	srv, err := server.NewServer(ctx, cfg.Ingest, chunks, runner, logger)
	if err != nil {
		log.Fatalf("bind event channel: %v", err)
	}

	d, err := daemon.New(cfg, chunks, jr, srv, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		log.Fatalf("start IPC server: %v", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	logger.Info("spoold shutting down")
}
