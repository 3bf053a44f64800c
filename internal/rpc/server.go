package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aeolus-crawl/crawlsearch/internal/indexer"
)

// DefaultAddr is the façade's default bind address, carried over from the
// source system's gRPC default port for continuity.
const DefaultAddr = "127.0.0.1:50051"

// Server is the JSON-over-HTTP RPC façade in front of an indexer.Service.
type Server struct {
	addr   string
	logger *logrus.Entry
	svc    *indexer.Service
	http   *http.Server
}

// New creates a Server bound to addr, serving Index and Search against svc.
// logger may be nil, in which case a standalone entry is used.
func New(addr string, svc *indexer.Service, logger *logrus.Entry) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &Server{addr: addr, logger: logger, svc: svc}

	mux := http.NewServeMux()
	mux.HandleFunc("/index", s.handleIndex)
	mux.HandleFunc("/search", s.handleSearch)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // a crawl can run arbitrarily long before /index responds
	}
	return s
}

// ListenAndServe starts the server and blocks until ctx is cancelled or a
// SIGINT/SIGTERM is received, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.addr).Info("rpc server listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, IndexResponse{Status: statusError, Message: errorMessage(fmt.Sprintf("invalid request body: %v", err))})
		return
	}

	if err := s.svc.Index(r.Context(), req.Origin, req.K); err != nil {
		s.logger.WithError(err).WithField("origin", req.Origin).Warn("index failed")
		writeJSON(w, IndexResponse{Status: statusError, Message: errorMessage(err.Error())})
		return
	}
	writeJSON(w, IndexResponse{Status: statusOK})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, SearchResponse{Status: statusError, Message: errorMessage(fmt.Sprintf("invalid request body: %v", err))})
		return
	}

	hits, err := s.svc.Search(req.Query)
	if err != nil {
		s.logger.WithError(err).WithField("query", req.Query).Debug("search failed")
		writeJSON(w, SearchResponse{Status: statusError, Message: errorMessage(err.Error())})
		return
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, SearchResult{RelevantURL: h.RelevantURL, OriginURL: h.OriginURL, Depth: h.Depth})
	}
	writeJSON(w, SearchResponse{Status: statusOK, Results: results})
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("failed to encode rpc response")
	}
}
