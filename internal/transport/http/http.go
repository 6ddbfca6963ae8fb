// Package http exposes the voicedesk assistant over a REST API.
//
// This is the only inbound surface: clients post a transcript (or raw
// audio, which is transcribed first) and receive the structured result of
// the interpreted command. History, accounts, and email configuration get
// their own endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/voicedesk/voicedesk/internal/assistant"
	"github.com/voicedesk/voicedesk/internal/model"
)

// Service is the assistant surface the transport needs. *assistant.Assistant
// implements it; tests substitute fakes.
type Service interface {
	Handle(ctx context.Context, username, transcript string) (model.Prompt, error)
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
	DeletePrompt(username string, id int64) (bool, error)
	SendPrompt(ctx context.Context, username, recipient string, id int64) (model.Prompt, error)
	History(username string) []model.Prompt
	ClearHistory(username string) (int, error)
	Register(username, password string) error
	Authenticate(username, password string) bool
	EmailConfig(username string) (model.EmailConfig, bool)
	PutEmailConfig(cfg model.EmailConfig) error
	DeleteEmailConfig(username string) (bool, error)
}

// Server serves the voicedesk REST API.
type Server struct {
	port    int
	service Service
	server  *http.Server
}

// New creates a new API server on the given port.
func New(port int, service Service) *Server {
	return &Server{port: port, service: service}
}

// commandRequest is the JSON body of POST /command.
type commandRequest struct {
	Username   string `json:"username"`
	Transcript string `json:"transcript"`

	// SelectedID identifies the history entry a DELETE_PROMPT or SEND_EMAIL
	// command acts on. Selection lives in the client UI, not the transcript.
	SelectedID int64 `json:"selected_id,omitempty"`
}

// commandResponse is the result of one interpreted command.
type commandResponse struct {
	RequestID   string             `json:"request_id"`
	Transcript  string             `json:"transcript"`
	Result      model.Prompt       `json:"result"`
	EmailConfig *model.EmailConfig `json:"email_config,omitempty"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// emailConfigRequest carries the write-side of an email configuration,
// including the credential fields the model type never serializes.
type emailConfigRequest struct {
	Username      string `json:"username"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	DisplayName   string `json:"display_name"`
	Email         string `json:"email"`
	EmailPassword string `json:"email_password"`
	SMTPHost      string `json:"smtp"`
	TLSPort       string `json:"tls"`
}

// Listen starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Listen(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /command", s.handleCommand)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("DELETE /history", s.handleDeleteHistory)
	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /email-config", s.handleGetEmailConfig)
	mux.HandleFunc("PUT /email-config", s.handlePutEmailConfig)
	mux.HandleFunc("DELETE /email-config", s.handleDeleteEmailConfig)

	// Swagger UI serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("api server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		slog.Info("api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleCommand processes a POST /command request.
//
// @Summary     Interpret a spoken command
// @Description Accepts a JSON body (username + transcript + optional selected history id) or raw audio
// @Description bytes with identifying headers. Audio is transcribed first, then the transcript is
// @Description classified into an intent and the intent's side effects are carried out.
// @Tags        command
// @Accept      json
// @Accept      audio/wav
// @Accept      audio/ogg
// @Produce     json
// @Param       command  body      commandRequest  true  "Command (JSON). For raw audio, POST the bytes directly with the appropriate Content-Type."
// @Param       X-Voicedesk-Username     header  string  false  "User identifier (used with raw audio uploads)"
// @Param       X-Voicedesk-Selected-Id  header  string  false  "Selected history entry id (used with raw audio uploads)"
// @Success     200  {object}  commandResponse  "Interpreted command result"
// @Failure     400  {string}  string  "Invalid request body or headers"
// @Failure     500  {string}  string  "Internal processing error"
// @Failure     502  {string}  string  "Transcription backend failure"
// @Router      /command [post]
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	logger := slog.With("request_id", requestID)

	var req commandRequest

	contentType := r.Header.Get("Content-Type")
	switch {
	case contentType == "application/json":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
	default:
		// Treat the body as raw audio; identity comes from headers.
		audio, err := io.ReadAll(io.LimitReader(r.Body, 25<<20)) // 25 MB limit
		if err != nil {
			http.Error(w, "reading audio: "+err.Error(), http.StatusBadRequest)
			return
		}
		req.Username = r.Header.Get("X-Voicedesk-Username")
		if sel := r.Header.Get("X-Voicedesk-Selected-Id"); sel != "" {
			req.SelectedID, err = strconv.ParseInt(sel, 10, 64)
			if err != nil {
				http.Error(w, "invalid selected id header: "+err.Error(), http.StatusBadRequest)
				return
			}
		}
		req.Transcript, err = s.service.Transcribe(r.Context(), audio, contentType)
		if err != nil {
			logger.Error("transcription failed", "error", err)
			http.Error(w, "transcription failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		logger.Debug("audio transcribed", "text_length", len(req.Transcript))
	}

	if req.Username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}

	result, err := s.service.Handle(r.Context(), req.Username, req.Transcript)
	if err != nil {
		logger.Error("command handling failed", "error", err)
		http.Error(w, "command error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := commandResponse{
		RequestID:  requestID,
		Transcript: req.Transcript,
		Result:     result,
	}

	// Complete selection-dependent intents with the caller-supplied id.
	switch result.Type {
	case model.TypeDeletePrompt:
		resp.Result.Output = s.completeDelete(req, logger)
	case model.TypeSendEmail:
		s.completeSend(r.Context(), req, logger, &resp)
	case model.TypeSetupEmail:
		if cfg, ok := s.service.EmailConfig(req.Username); ok {
			resp.EmailConfig = &cfg
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) completeDelete(req commandRequest, logger *slog.Logger) string {
	if req.SelectedID == 0 {
		return "no history entry selected"
	}
	removed, err := s.service.DeletePrompt(req.Username, req.SelectedID)
	if err != nil {
		logger.Error("delete failed", "error", err)
		return "deleting entry failed: " + err.Error()
	}
	if !removed {
		return "no matching history entry"
	}
	return fmt.Sprintf("deleted history entry %d", req.SelectedID)
}

func (s *Server) completeSend(ctx context.Context, req commandRequest, logger *slog.Logger, resp *commandResponse) {
	if req.SelectedID == 0 {
		resp.Result.Type = model.TypeError
		resp.Result.Output = "no history entry selected"
		return
	}
	sent, err := s.service.SendPrompt(ctx, req.Username, resp.Result.Input, req.SelectedID)
	if err != nil {
		logger.Error("send failed", "error", err)
		resp.Result.Type = model.TypeError
		resp.Result.Output = "sending email failed: " + err.Error()
		return
	}
	resp.Result = sent
}

// handleHistory returns the user's prompts in insertion order.
//
// @Summary  Get a user's history
// @Tags     history
// @Produce  json
// @Param    username  query     string  true  "User identifier"
// @Success  200  {array}  model.Prompt
// @Router   /history [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}
	prompts := s.service.History(username)
	if prompts == nil {
		prompts = []model.Prompt{}
	}
	writeJSON(w, http.StatusOK, prompts)
}

// handleDeleteHistory deletes one entry (id given) or the whole history.
//
// @Summary  Delete history entries
// @Tags     history
// @Produce  json
// @Param    username  query  string  true   "User identifier"
// @Param    id        query  string  false  "Entry id; omit to clear the whole history"
// @Success  200  {object}  map[string]int
// @Router   /history [delete]
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}

	if idParam := r.URL.Query().Get("id"); idParam != "" {
		id, err := strconv.ParseInt(idParam, 10, 64)
		if err != nil {
			http.Error(w, "invalid id: "+err.Error(), http.StatusBadRequest)
			return
		}
		removed, err := s.service.DeletePrompt(username, id)
		if err != nil {
			http.Error(w, "delete error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		count := 0
		if removed {
			count = 1
		}
		writeJSON(w, http.StatusOK, map[string]int{"removed": count})
		return
	}

	removed, err := s.service.ClearHistory(username)
	if err != nil {
		http.Error(w, "clear error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// handleSignup registers a new account.
//
// @Summary  Register an account
// @Tags     accounts
// @Accept   json
// @Param    credentials  body  credentialsRequest  true  "Username and password"
// @Success  201
// @Failure  409  {string}  string  "Username already taken"
// @Router   /signup [post]
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}
	if err := s.service.Register(req.Username, req.Password); err != nil {
		if errors.Is(err, assistant.ErrUsernameTaken) {
			http.Error(w, "username already taken", http.StatusConflict)
			return
		}
		http.Error(w, "signup error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// handleLogin checks credentials.
//
// @Summary  Authenticate
// @Tags     accounts
// @Accept   json
// @Param    credentials  body  credentialsRequest  true  "Username and password"
// @Success  204
// @Failure  401  {string}  string  "Invalid credentials"
// @Router   /login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !s.service.Authenticate(req.Username, req.Password) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetEmailConfig returns the user's email configuration.
//
// @Summary  Get email configuration
// @Tags     email-config
// @Produce  json
// @Param    username  query  string  true  "User identifier"
// @Success  200  {object}  model.EmailConfig
// @Failure  404  {string}  string  "No configuration on file"
// @Router   /email-config [get]
func (s *Server) handleGetEmailConfig(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}
	cfg, ok := s.service.EmailConfig(username)
	if !ok {
		http.Error(w, "no email configuration on file", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handlePutEmailConfig replaces the user's email configuration wholesale.
//
// @Summary  Put email configuration
// @Tags     email-config
// @Accept   json
// @Param    config  body  emailConfigRequest  true  "Email configuration"
// @Success  204
// @Router   /email-config [put]
func (s *Server) handlePutEmailConfig(w http.ResponseWriter, r *http.Request) {
	var req emailConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}
	cfg := model.EmailConfig{
		Username:      req.Username,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		DisplayName:   req.DisplayName,
		Email:         req.Email,
		EmailPassword: req.EmailPassword,
		SMTPHost:      req.SMTPHost,
		TLSPort:       req.TLSPort,
	}
	if err := s.service.PutEmailConfig(cfg); err != nil {
		http.Error(w, "save error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteEmailConfig removes the user's email configuration.
//
// @Summary  Delete email configuration
// @Tags     email-config
// @Param    username  query  string  true  "User identifier"
// @Success  204
// @Failure  404  {string}  string  "No configuration on file"
// @Router   /email-config [delete]
func (s *Server) handleDeleteEmailConfig(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}
	removed, err := s.service.DeleteEmailConfig(username)
	if err != nil {
		http.Error(w, "delete error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, "no email configuration on file", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Close gracefully shuts down the HTTP server.
func (s *Server) Close() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
