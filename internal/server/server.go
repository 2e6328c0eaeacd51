package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"account-ledger/internal/archive"
	"account-ledger/internal/config"
	"account-ledger/internal/handler"
	"account-ledger/internal/journal"
	"account-ledger/internal/ledger"
	"account-ledger/internal/service"
	"account-ledger/pkg/wal"
)

// Server owns the HTTP surface and the wiring of the ledger core, plus the
// optional WAL and postgres archive.
type Server struct {
	router   *mux.Router
	server   *http.Server
	journal  *journal.Journal
	walLog   *wal.WAL
	db       *sql.DB
	archiver *archive.Archiver
	logger   *slog.Logger
	port     string
}

// NewServer assembles the ledger core and its HTTP boundary from the
// configuration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store := ledger.NewAccountStore()
	ledgerJournal := journal.New()

	var walLog *wal.WAL
	if cfg.WALPath != "" {
		var err error
		walLog, err = wal.Open(cfg.WALPath)
		if err != nil {
			return nil, err
		}
		logger.Info("write-ahead log enabled", "path", cfg.WALPath)
	}

	engine, err := ledger.NewEngine(store, ledgerJournal, walLog, logger)
	if err != nil {
		if walLog != nil {
			walLog.Close()
		}
		return nil, err
	}

	s := &Server{
		journal: ledgerJournal,
		walLog:  walLog,
		logger:  logger,
	}

	if cfg.DatabaseURL != "" {
		if err := s.startArchive(cfg.DatabaseURL); err != nil {
			if walLog != nil {
				walLog.Close()
			}
			return nil, err
		}
	}

	accountService := service.NewAccountService(engine, logger)
	transferService := service.NewTransferService(engine, logger)

	accountHandler := handler.NewAccountHandler(accountService)
	transferHandler := handler.NewTransferHandler(transferService)

	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	api.HandleFunc("/accounts", accountHandler.ListAccounts).Methods("GET")
	api.HandleFunc("/accounts/{account_id}", accountHandler.GetAccount).Methods("GET")
	api.HandleFunc("/accounts/{account_id}/deposit", transferHandler.Deposit).Methods("POST")
	api.HandleFunc("/accounts/{account_id}/withdraw", transferHandler.Withdraw).Methods("POST")
	api.HandleFunc("/accounts/{account_id}/outgoing-transfers", transferHandler.OutgoingTransfers).Methods("GET")
	api.HandleFunc("/transfers", transferHandler.Transfer).Methods("POST")

	router.HandleFunc("/health", s.health).Methods("GET")

	s.router = router
	return s, nil
}

// startArchive connects to postgres, ensures the audit table and starts the
// background copier fed by the journal.
func (s *Server) startArchive(databaseURL string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}
	if err := archive.EnsureSchema(db); err != nil {
		db.Close()
		return err
	}

	s.db = db
	s.archiver = archive.NewArchiver(db, s.logger)
	s.archiver.Run(s.journal.Subscribe(1024))

	s.logger.Info("postgres archive enabled")
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "archive database unavailable"})
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start begins serving on the given port. Port "0" picks a free port, which
// tests rely on; the bound port is available via Port afterwards.
func (s *Server) Start(port string) (string, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server stopped unexpectedly", "error", err)
		}
	}()

	s.logger.Info("server listening", "port", s.port)
	return s.port, nil
}

// Stop shuts the HTTP server down, lets the archiver drain and closes the
// WAL.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	if s.archiver != nil {
		s.journal.Unsubscribe()
		s.archiver.Wait()
	}
	if s.db != nil {
		s.db.Close()
	}
	if s.walLog != nil {
		s.walLog.Close()
	}
	return err
}

// Port returns the port the server is listening on.
func (s *Server) Port() string {
	return s.port
}

// BaseURL returns the local base URL for the running server.
func (s *Server) BaseURL() string {
	return "http://localhost:" + s.port
}

// Router exposes the router for handler-level tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// StartServer builds and starts a server for the given configuration and
// returns it along with the bound port.
func StartServer(cfg *config.Config) (*Server, string, error) {
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		// Test environment, keep the output quiet.
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	srv, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := srv.Start(cfg.ServerPort)
	if err != nil {
		return nil, "", err
	}

	return srv, port, nil
}
