// Package apiserver exposes the coordinator over a small HTTP/JSON surface
// for dashboards and scripting. It is a thin presentation layer: every
// decision is delegated to the coordinator.
package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/shrtyk/ledger-coordinator/api"
	"github.com/shrtyk/ledger-coordinator/pkg/logger"
)

// Server serves the coordinator's HTTP facade.
type Server struct {
	coord    api.Coordinator
	accounts []api.Account
	logger   *slog.Logger
	server   *http.Server
}

func NewServer(addr string, coord api.Coordinator, accounts []api.Account, log *slog.Logger) *Server {
	s := &Server{coord: coord, accounts: accounts, logger: log}

	router := mux.NewRouter()
	router.HandleFunc("/cluster", s.handleCluster).Methods(http.MethodGet)
	router.HandleFunc("/operations", s.handleSubmit).Methods(http.MethodPost)
	router.HandleFunc("/algorithm", s.handleSwitch).Methods(http.MethodPost)
	router.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	router.HandleFunc("/election", s.handleElection).Methods(http.MethodPost)
	router.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet)
	router.HandleFunc("/balances", s.handleBalances).Methods(http.MethodGet)
	router.HandleFunc("/balances/{account}", s.handleBalance).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("http facade listening", slog.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type operationRequest struct {
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Source      string  `json:"source"`
	Destination string  `json:"destination,omitempty"`
}

type errorResponse struct {
	Error      string `json:"error"`
	LeaderHint string `json:"leader_hint,omitempty"`
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	view, err := s.coord.ClusterView()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	balances, err := s.coord.SubmitOperation(r.Context(), api.Operation{
		Type:        api.OpType(req.Type),
		Amount:      req.Amount,
		Source:      api.Account(req.Source),
		Destination: api.Account(req.Destination),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"balances": balances})
}

func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Algorithm string `json:"algorithm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	algo, err := api.ParseAlgorithm(req.Algorithm)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.coord.SwitchAlgorithm(r.Context(), algo); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"algorithm": string(algo)})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.ResetCluster(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleElection(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.StartElection(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	logs := s.coord.MergedLogs()
	if r.URL.Query().Get("refresh") == "true" {
		logs = s.coord.PollLogsNow(r.Context())
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"entries": logs})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances := make(map[api.Account]float64)
	for _, account := range s.accounts {
		bal, err := s.coord.Balance(r.Context(), account)
		if err != nil {
			s.writeError(w, err)
			return
		}
		balances[account] = bal
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"balances": balances})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	account := api.Account(mux.Vars(r)["account"])
	bal, err := s.coord.Balance(r.Context(), account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"account": account, "balance": bal})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// writeError maps the coordinator error taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		ierr *api.InvalidOperationError
		derr *api.DispatchError
	)
	switch {
	case errors.As(err, &ierr):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: ierr.Error()})
	case errors.As(err, &derr):
		status := http.StatusBadGateway
		if derr.Reason == api.ReasonRejected || derr.Reason == api.ReasonServerRejected {
			status = http.StatusConflict
		}
		s.writeJSON(w, status, errorResponse{Error: derr.Error(), LeaderHint: derr.LeaderHint})
	case errors.Is(err, api.ErrNoLeader), errors.Is(err, api.ErrClusterUnreachable):
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("unclassified handler failure", logger.ErrAttr(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", logger.ErrAttr(err))
	}
}
