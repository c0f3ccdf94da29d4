// Package http exposes the diagnosis engine, accounts and history over a
// JSON API.  Routing is done by hand in ServeHTTP to keep dependencies
// light.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"triage-chatbot/internal/db"
	"triage-chatbot/internal/engine"
	"triage-chatbot/internal/lang"
	"triage-chatbot/internal/report"
	"triage-chatbot/pkg"
)

// Repo is the slice of the database layer the handlers use.  It is an
// interface so tests can swap in an in-memory fake.
type Repo interface {
	CreateUser(ctx context.Context, username, password string) (*pkg.User, error)
	Authenticate(ctx context.Context, username, password string) (*pkg.User, error)
	GetUser(ctx context.Context, id string) (*pkg.User, error)
	InsertDiagnosis(ctx context.Context, rec *pkg.DiagnosisRecord) error
	ListDiagnoses(ctx context.Context, userID string, limit int) ([]pkg.DiagnosisRecord, error)
}

// sessionMeta is the per-session context the HTTP layer keeps alongside the
// engine session: who owns it, how to talk back to them, and the persisted
// record once the diagnosis completes.
type sessionMeta struct {
	UserID      string
	PatientName string
	Lang        string
	Record      *pkg.DiagnosisRecord
}

// Server bundles together the dependencies required by HTTP handlers.  It
// implements http.Handler so it can be passed to http.ListenAndServe.
type Server struct {
	Repo      Repo
	Engine    *engine.Engine
	Sessions  *engine.Store
	Lang      lang.Provider
	Log       *slog.Logger
	JWTSecret []byte

	mu   sync.Mutex
	meta map[string]*sessionMeta
}

// NewServer constructs a Server.
func NewServer(repo Repo, eng *engine.Engine, provider lang.Provider, secret []byte, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		Repo:      repo,
		Engine:    eng,
		Sessions:  engine.NewStore(),
		Lang:      provider,
		Log:       log,
		JWTSecret: secret,
		meta:      make(map[string]*sessionMeta),
	}
}

// ServeHTTP dispatches incoming requests based on the URL path.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/register" && r.Method == http.MethodPost:
		s.handleRegister(w, r)
	case path == "/api/login" && r.Method == http.MethodPost:
		s.handleLogin(w, r)
	case path == "/api/sessions" && r.Method == http.MethodPost:
		s.handleCreateSession(w, r)
	case path == "/api/history" && r.Method == http.MethodGet:
		s.handleHistory(w, r)
	case strings.HasPrefix(path, "/api/sessions/"):
		// Session subresources: /api/sessions/{id}/{action}
		parts := strings.Split(path, "/")
		if len(parts) != 5 {
			http.NotFound(w, r)
			return
		}
		sessionID, action := parts[3], parts[4]
		switch {
		case action == "symptoms" && r.Method == http.MethodPost:
			s.handleSymptoms(w, r, sessionID)
		case action == "questions" && r.Method == http.MethodGet:
			s.handleQuestions(w, r, sessionID)
		case action == "answers" && r.Method == http.MethodPost:
			s.handleAnswers(w, r, sessionID)
		case action == "reset" && r.Method == http.MethodPost:
			s.handleReset(w, r, sessionID)
		case action == "report" && r.Method == http.MethodGet:
			s.handleReport(w, r, sessionID)
		case action == "audio" && r.Method == http.MethodPost:
			s.handleAudio(w, r, sessionID)
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

// handleRegister creates an account and logs the new user straight in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req pkg.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.Repo.CreateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeToken(w, http.StatusCreated, user)
}

// handleLogin exchanges credentials for a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req pkg.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.Repo.Authenticate(r.Context(), req.Username, req.Password)
	if errors.Is(err, db.ErrBadCredentials) {
		s.writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, "login", err)
		return
	}
	s.writeToken(w, http.StatusOK, user)
}

func (s *Server) writeToken(w http.ResponseWriter, status int, user *pkg.User) {
	token, err := signToken(s.JWTSecret, user.ID)
	if err != nil {
		s.internalError(w, "sign token", err)
		return
	}
	s.writeJSON(w, status, pkg.TokenResponse{Token: token, User: *user})
}

// handleCreateSession starts a fresh diagnosis session for the caller.
// Tokens can outlive their account, so the subject is checked against the
// database here.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if _, err := s.Repo.GetUser(r.Context(), userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.writeError(w, http.StatusUnauthorized, "unknown account")
			return
		}
		s.internalError(w, "load account", err)
		return
	}
	id := uuid.NewString()
	s.Sessions.Create(id)
	s.mu.Lock()
	s.meta[id] = &sessionMeta{UserID: userID}
	s.mu.Unlock()
	s.writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

// session resolves a session id for the authenticated caller.  Sessions
// owned by someone else look exactly like missing ones.
func (s *Server) session(r *http.Request, sessionID string) (*engine.Session, *sessionMeta, error) {
	userID, err := s.authenticate(r)
	if err != nil {
		return nil, nil, err
	}
	sess, err := s.Sessions.Get(sessionID)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	meta := s.meta[sessionID]
	s.mu.Unlock()
	if meta == nil || meta.UserID != userID {
		return nil, nil, engine.ErrSessionNotFound
	}
	return sess, meta, nil
}

// handleSymptoms runs intake: translate if needed, extract, predict, and
// return the guided follow-up candidates.
func (s *Server) handleSymptoms(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, meta, err := s.session(r, sessionID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	var req pkg.SymptomTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	text := req.Text
	if req.Lang != "" && req.Lang != "en" {
		translated, err := s.Lang.Translate(r.Context(), text, "en")
		if err != nil {
			s.internalError(w, "translate intake", err)
			return
		}
		text = translated
	}

	intake, err := s.Engine.SubmitSymptomText(sess, text)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.mu.Lock()
	meta.PatientName = req.PatientName
	meta.Lang = req.Lang
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, pkg.IntakeResponse{
		SessionID:         sessionID,
		DetectedSymptoms:  intake.Detected,
		InitialLabel:      intake.Initial.Label,
		InitialConfidence: intake.Initial.Confidence,
		Questions:         intake.Candidates,
	})
}

// handleQuestions returns the pending follow-up candidates.
func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, _, err := s.session(r, sessionID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	candidates, err := s.Engine.GuidedCandidates(sess)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"questions": candidates})
}

// handleAnswers completes the session: final prediction, enrichment,
// translation and a persisted history row.
func (s *Server) handleAnswers(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, meta, err := s.session(r, sessionID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	var req pkg.GuidedAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	final, err := s.Engine.SubmitGuidedAnswers(sess, req.Confirmed)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	description, _ := s.Engine.Describe(final.Label)
	precautions := s.Engine.Precautions(final.Label)
	advisory := s.Engine.Advisory(sess.Symptoms)

	rec := &pkg.DiagnosisRecord{
		UserID:            meta.UserID,
		PatientName:       meta.PatientName,
		Symptoms:          sess.Symptoms,
		InitialLabel:      sess.Initial.Label,
		InitialConfidence: sess.Initial.Confidence,
		FinalLabel:        final.Label,
		FinalConfidence:   final.Confidence,
		Description:       description,
		Precautions:       precautions,
		Advisory:          advisory,
	}
	if err := s.Repo.InsertDiagnosis(r.Context(), rec); err != nil {
		s.internalError(w, "persist diagnosis", err)
		return
	}
	s.mu.Lock()
	meta.Record = rec
	s.mu.Unlock()

	resp := pkg.DiagnosisResponse{
		SessionID:       sessionID,
		FinalLabel:      final.Label,
		FinalConfidence: final.Confidence,
		Symptoms:        sess.Symptoms,
		Description:     description,
		Precautions:     precautions,
		Advisory:        advisory,
	}
	if meta.Lang != "" && meta.Lang != "en" {
		s.translateResponse(r.Context(), &resp, meta.Lang)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// translateResponse renders the human-facing fields in the user's language.
// Translation failures degrade to English rather than failing the
// diagnosis.  The precaution slice is replaced, not edited in place: the
// incoming slice is shared with the persisted record, which stays English.
func (s *Server) translateResponse(ctx context.Context, resp *pkg.DiagnosisResponse, target string) {
	translate := func(text string) string {
		if text == "" {
			return text
		}
		out, err := s.Lang.Translate(ctx, text, target)
		if err != nil {
			s.Log.Warn("translation failed, falling back to English", "target", target, "error", err)
			return text
		}
		return out
	}
	resp.Description = translate(resp.Description)
	resp.Advisory = translate(resp.Advisory)
	translated := make([]string, len(resp.Precautions))
	for i, p := range resp.Precautions {
		translated[i] = translate(p)
	}
	resp.Precautions = translated
}

// handleReset returns a session to intake without touching its identity.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, meta, err := s.session(r, sessionID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.Engine.Reset(sess)
	s.mu.Lock()
	meta.Record = nil
	meta.PatientName = ""
	meta.Lang = ""
	s.mu.Unlock()
	s.writeJSON(w, http.StatusOK, map[string]string{"session_id": sessionID, "state": string(sess.State)})
}

// handleHistory lists the caller's past diagnoses, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	records, err := s.Repo.ListDiagnoses(r.Context(), userID, 0)
	if err != nil {
		s.internalError(w, "list history", err)
		return
	}
	if records == nil {
		records = []pkg.DiagnosisRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

// handleReport streams the PDF report for a completed session.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, sessionID string) {
	_, meta, err := s.session(r, sessionID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.mu.Lock()
	rec := meta.Record
	s.mu.Unlock()
	if rec == nil {
		s.writeError(w, http.StatusConflict, "diagnosis is not complete")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="diagnosis-report.pdf"`)
	if err := report.Build(w, *rec); err != nil {
		s.Log.Error("render report", "session_id", sessionID, "error", err)
	}
}

// handleAudio synthesizes a spoken narration of the final diagnosis.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request, sessionID string) {
	_, meta, err := s.session(r, sessionID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.mu.Lock()
	rec := meta.Record
	language := meta.Lang
	s.mu.Unlock()
	if rec == nil {
		s.writeError(w, http.StatusConflict, "diagnosis is not complete")
		return
	}
	if language == "" {
		language = "en"
	}

	narration := narrate(rec)
	if language != "en" {
		translated, err := s.Lang.Translate(r.Context(), narration, language)
		if err == nil {
			narration = translated
		} else {
			s.Log.Warn("narration translation failed", "target", language, "error", err)
		}
	}
	audio, err := s.Lang.Synthesize(r.Context(), narration, language)
	if err != nil {
		s.internalError(w, "synthesize audio", err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(audio)
}

// narrate composes the text spoken aloud for a completed diagnosis.
func narrate(rec *pkg.DiagnosisRecord) string {
	var b strings.Builder
	b.WriteString("Based on your symptoms, you may have ")
	b.WriteString(rec.FinalLabel)
	b.WriteString(".")
	if rec.Description != "" {
		b.WriteString(" ")
		b.WriteString(rec.Description)
	}
	if rec.Advisory != "" {
		b.WriteString(" ")
		b.WriteString(rec.Advisory)
	}
	return b.String()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, pkg.ErrorResponse{Error: msg})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.Log.Error(op, "error", err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

// writeEngineError maps engine and auth errors onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errUnauthorized):
		s.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, engine.ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrNoSymptomsDetected):
		s.writeError(w, http.StatusUnprocessableEntity,
			"no recognizable symptoms found, please rephrase")
	case errors.Is(err, engine.ErrInvalidStateTransition):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.internalError(w, "session operation", err)
	}
}
