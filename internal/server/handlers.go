package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/timvw/joke-bot/internal/gateway"
	"github.com/timvw/joke-bot/internal/jokes"
	"github.com/timvw/joke-bot/internal/session"
	"go.uber.org/zap"
)

type categoryResp struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Emoji string `json:"emoji"`
}

type catalogResp struct {
	Categories []categoryResp `json:"categories"`
	Languages  []string       `json:"languages"`
}

type validateReq struct {
	APIKey string `json:"api_key"`
}

type validateResp struct {
	Valid   bool            `json:"valid"`
	Message string          `json:"message"`
	Session session.Session `json:"session"`
}

type jokeReq struct {
	Category          string   `json:"category"`
	Language          string   `json:"language"`
	WriterTemperature *float64 `json:"writer_temperature"`
	CriticTemperature *float64 `json:"critic_temperature"`
}

type jokeResp struct {
	Joke    jokes.Result    `json:"joke"`
	HTML    string          `json:"html"`
	Session session.Session `json:"session"`
}

type errorResp struct {
	Error string `json:"error"`
}

type pageData struct {
	Provider          string
	Categories        []string
	Languages         []string
	WriterTemperature float64
	CriticTemperature float64
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.page.Execute(w, pageData{
		Provider:          s.cfg.Provider,
		Categories:        jokes.Categories(),
		Languages:         jokes.Languages(),
		WriterTemperature: s.cfg.WriterTemperature,
		CriticTemperature: s.cfg.CriticTemperature,
	})
	if err != nil {
		s.logger.Error("rendering index", zap.Error(err))
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	resp := catalogResp{Languages: jokes.Languages()}
	for _, c := range jokes.Categories() {
		resp.Categories = append(resp.Categories, categoryResp{
			Name:  c,
			Label: jokes.Label(c),
			Emoji: jokes.Emoji(c),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, s.cfg.Sessions.Create())
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.cfg.Sessions.Get(r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	s.cfg.Sessions.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.cfg.Sessions.Get(id); err != nil {
		writeSessionError(w, err)
		return
	}

	var req validateReq
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		writeError(w, http.StatusBadRequest, "Please enter an API key first!")
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()
	err := s.cfg.Validate(ctx, key)

	switch {
	case err == nil:
		sess, err := s.cfg.Sessions.SetKey(id, key, true)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, validateResp{Valid: true, Message: "API key validated successfully", Session: sess})
	case errors.Is(err, gateway.ErrAuthentication):
		sess, err := s.cfg.Sessions.SetKey(id, "", false)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, validateResp{Valid: false, Message: "Invalid API key", Session: sess})
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "Request timed out. Please check your internet connection and try again.")
	default:
		s.logger.Warn("API key validation failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Error validating API key: "+err.Error())
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.cfg.Sessions.Start(r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, err := s.cfg.Sessions.Reset(r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleJoke(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.cfg.Sessions.Get(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if !sess.Started {
		writeSessionError(w, session.ErrNotStarted)
		return
	}

	var req jokeReq
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	genReq := jokes.Request{
		Category:          req.Category,
		Language:          req.Language,
		WriterTemperature: s.cfg.WriterTemperature,
		CriticTemperature: s.cfg.CriticTemperature,
		APIKey:            sess.APIKey,
	}
	if req.WriterTemperature != nil {
		genReq.WriterTemperature = *req.WriterTemperature
	}
	if req.CriticTemperature != nil {
		genReq.CriticTemperature = *req.CriticTemperature
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()
	res, err := s.cfg.Generator.Generate(ctx, genReq)
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}

	sess, err = s.cfg.Sessions.Record(id, res)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jokeResp{Joke: res, HTML: renderMarkdown(res.Text), Session: sess})
}

func (s *Server) writeGenerationError(w http.ResponseWriter, err error) {
	var cfgErr *jokes.ConfigurationError
	var failed *jokes.GenerationFailed
	switch {
	case errors.As(err, &cfgErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "Failed to generate joke: request timed out")
	case errors.As(err, &failed):
		s.logger.Warn("joke generation failed", zap.String("stage", string(failed.Stage)), zap.Error(err))
		msg := "Failed to generate joke: " + err.Error()
		if errors.Is(err, gateway.ErrAuthentication) || errors.Is(err, gateway.ErrRateLimit) {
			msg += ". Make sure your API key is valid and you have API credits available."
		}
		writeError(w, http.StatusBadGateway, msg)
	default:
		s.logger.Error("joke generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNotValidated), errors.Is(err, session.ErrNotStarted):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResp{Error: msg})
}
