package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/akilaramal69-beep/telelinkworking/types"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controller is the slice of pipeline control the web surface needs.
type Controller interface {
	Formats(ctx context.Context, url string) (*types.FormatQueryResult, error)
	Submit(task *types.Task) error
	Cancel(userID int64) bool
}

// Server is the polling HTTP surface. It reads the same progress store
// as the chat observer and never keeps per-connection state.
type Server struct {
	ctrl  Controller
	store types.ProgressStore
	log   *zap.SugaredLogger
	http  *http.Server
}

func NewServer(addr string, ctrl Controller, store types.ProgressStore, log *zap.SugaredLogger) *Server {
	s := &Server{ctrl: ctrl, store: store, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/formats", s.handleFormats).Methods(http.MethodPost)
	r.HandleFunc("/api/download", s.handleDownload).Methods(http.MethodPost)
	r.HandleFunc("/api/progress", s.handleProgress).Methods(http.MethodGet)
	r.HandleFunc("/api/cancel", s.handleCancel).Methods(http.MethodPost)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) ListenAndServe() error {
	s.log.Infow("web surface listening", "addr", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type formatsRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	var req formatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.ctrl.Formats(r.Context(), req.URL)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if res.Formats == nil {
		res.Formats = []types.FormatDescriptor{}
	}
	writeJSON(w, http.StatusOK, res)
}

type downloadRequest struct {
	UserID   int64  `json:"user_id"`
	ChatID   int64  `json:"chat_id"`
	URL      string `json:"url"`
	FormatID string `json:"format_id"`
	Filename string `json:"filename"`
	Mode     string `json:"mode"`
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.ChatID == 0 {
		req.ChatID = req.UserID
	}
	task := &types.Task{
		UserID:         req.UserID,
		ChatID:         req.ChatID,
		SourceURL:      req.URL,
		FormatID:       req.FormatID,
		Mode:           types.ParseUploadMode(req.Mode),
		TargetFilename: req.Filename,
		Renamed:        req.Filename != "",
	}
	if err := s.ctrl.Submit(task); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "task_id": task.ID})
}

// handleProgress always answers; an unknown or expired user id reads as
// idle so pollers need no special cases.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	rec, err := s.store.Get(userID)
	if err != nil {
		s.log.Errorw("progress read failed", "user", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "progress unavailable")
		return
	}
	if rec == nil {
		rec = &types.ProgressRecord{Action: types.ActionIdle}
	}
	writeJSON(w, http.StatusOK, rec)
}

type cancelRequest struct {
	UserID int64 `json:"user_id"`
}

// handleCancel acknowledges regardless of whether anything was running;
// cancelling an idle user is a no-op, not an error.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.ctrl.Cancel(req.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrTaskInProgress):
		return http.StatusConflict
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "error", "error": msg})
}
