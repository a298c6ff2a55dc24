package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"

	"github.com/dvoloshyn/pocket-money/internal/api/handlers"
	"github.com/dvoloshyn/pocket-money/internal/api/middleware"
	"github.com/dvoloshyn/pocket-money/internal/archive"
	"github.com/dvoloshyn/pocket-money/internal/auth"
	"github.com/dvoloshyn/pocket-money/internal/jobs"
	jobsinmemory "github.com/dvoloshyn/pocket-money/internal/jobs/inmemory"
	"github.com/dvoloshyn/pocket-money/internal/ledger"
	ledgerinmemory "github.com/dvoloshyn/pocket-money/internal/ledger/store/inmemory"
	"github.com/dvoloshyn/pocket-money/internal/logger"
)

func main() {
	// Parse command-line flags
	var (
		port    = flag.String("port", "8080", "HTTP server port")
		project = flag.String("project", os.Getenv("GCP_PROJECT"), "GCP project for the transaction archive (or set GCP_PROJECT env)")
		dataset = flag.String("dataset", "ledger_archive", "BigQuery dataset for the transaction archive")
		bucket  = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for statement exports (or set GCS_BUCKET env)")
		workers = flag.Int("workers", 2, "Export worker count")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New("ledger-api")

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx := context.Background()

	// Core services
	st := ledgerinmemory.NewStore()
	hasher := auth.NewBcryptHasher()
	tokens := auth.NewTokenIssuer([]byte(secret), 15*time.Minute, 7*24*time.Hour)
	gate := auth.NewGate(st, hasher, log)
	authSvc := auth.NewService(st, hasher, tokens, log)
	ledgerSvc := ledger.NewService(st, gate, log)

	// Statement export infrastructure
	jobStore := jobsinmemory.NewStore()
	jobQueue := jobsinmemory.NewQueue(100, *workers, jobStore)

	var exporter *archive.Exporter
	var archiver archive.Archiver
	if *project != "" && *bucket != "" {
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

		archiver = archive.NewBigQueryArchive(bqClient, *project, *dataset)
		statements := archive.NewGCSStatementWriter(gcsClient, *bucket)
		exporter = archive.NewExporter(st, archiver, statements, log)
	} else {
		log.Warn().Msg("No GCP project or bucket configured - statement exports will fail")
	}

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		if exporter == nil {
			return fmt.Errorf("statement export is not configured")
		}
		return exporter.Handle(ctx, job)
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Msg("Starting export worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Export worker stopped with error")
		}
	}()

	// Handlers
	authHandler := handlers.NewAuthHandler(authSvc, tokens, log)
	accountHandler := handlers.NewAccountHandler(ledgerSvc, log)
	transactionsHandler := handlers.NewTransactionsHandler(ledgerSvc, log)
	savingsHandler := handlers.NewSavingsHandler(ledgerSvc, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, jobQueue, log)
	archiveHandler := handlers.NewArchiveHandler(archiver, log)

	protect := middleware.Auth(tokens, st, log)

	// Create router
	mux := http.NewServeMux()

	// Auth endpoints
	mux.Handle("/api/auth/register", post(authHandler.Register))
	mux.Handle("/api/auth/login", post(authHandler.Login))
	mux.Handle("/api/auth/refresh", post(authHandler.Refresh))
	mux.Handle("/api/auth/logout", post(authHandler.Logout))
	mux.Handle("/api/auth/me", protect(get(authHandler.Me)))
	mux.Handle("/api/auth/pin", protect(put(authHandler.ChangePIN)))
	mux.Handle("/api/auth/password", protect(put(authHandler.ChangePassword)))

	// Account endpoint
	mux.Handle("/api/account", protect(get(accountHandler.GetAccount)))

	// Transaction endpoints
	mux.Handle("/api/transactions", protect(get(transactionsHandler.History)))
	mux.Handle("/api/transactions/deposit", protect(post(transactionsHandler.Deposit)))
	mux.Handle("/api/transactions/withdraw", protect(post(transactionsHandler.Withdraw)))
	mux.Handle("/api/transactions/transfer", protect(post(transactionsHandler.Transfer)))
	mux.Handle("/api/transactions/key-status", protect(get(transactionsHandler.KeyStatus)))

	// Savings endpoints
	mux.Handle("/api/savings", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			savingsHandler.Create(w, r)
		case http.MethodGet:
			savingsHandler.List(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.Handle("/api/savings/", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/api/savings/")
		goalID, action, ok := strings.Cut(rest, "/")
		if !ok || goalID == "" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		switch action {
		case "deposit":
			savingsHandler.Deposit(w, r, goalID)
		case "break":
			savingsHandler.Break(w, r, goalID)
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})))

	// Export and job endpoints
	mux.Handle("/api/archive/export", protect(post(jobsHandler.ExportStatement)))
	mux.Handle("/api/archive/records", protect(get(archiveHandler.Records)))
	mux.Handle("/api/jobs", protect(get(jobsHandler.ListJobs)))
	mux.Handle("/api/jobs/", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	})))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight exports
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}

// post dispatches to h for POST requests and rejects everything else.
func post(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	})
}

// put dispatches to h for PUT requests and rejects everything else.
func put(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	})
}

// get dispatches to h for GET requests and rejects everything else.
func get(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	})
}
