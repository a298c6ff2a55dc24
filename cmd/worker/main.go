// The worker runs statement exports on its own, against a shared queue
// backend in production. With the in-memory queue it processes only jobs
// published in this process, which makes it a standalone harness for the
// export path.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"

	"github.com/dvoloshyn/pocket-money/internal/archive"
	jobsinmemory "github.com/dvoloshyn/pocket-money/internal/jobs/inmemory"
	ledgerinmemory "github.com/dvoloshyn/pocket-money/internal/ledger/store/inmemory"
	"github.com/dvoloshyn/pocket-money/internal/logger"
)

func main() {
	var (
		project = flag.String("project", os.Getenv("GCP_PROJECT"), "GCP project for the transaction archive (or set GCP_PROJECT env)")
		dataset = flag.String("dataset", "ledger_archive", "BigQuery dataset for the transaction archive")
		bucket  = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for statement exports (or set GCS_BUCKET env)")
		workers = flag.Int("workers", 5, "Export worker count")
	)
	flag.Parse()

	log := logger.New("ledger-worker")

	if *project == "" || *bucket == "" {
		log.Fatal().Msg("A GCP project and GCS bucket are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bqClient, err := bigquery.NewClient(ctx, *project)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer bqClient.Close()

	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer gcsClient.Close()

	st := ledgerinmemory.NewStore()
	archiver := archive.NewBigQueryArchive(bqClient, *project, *dataset)
	statements := archive.NewGCSStatementWriter(gcsClient, *bucket)
	exporter := archive.NewExporter(st, archiver, statements, log)

	jobStore := jobsinmemory.NewStore()
	jobQueue := jobsinmemory.NewQueue(100, *workers, jobStore)

	if err := jobQueue.Start(ctx, exporter.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
