package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/dinkelberg/pkg/bot"
	"github.com/Sternrassler/dinkelberg/pkg/cache"
	"github.com/Sternrassler/dinkelberg/pkg/logging"
	"github.com/Sternrassler/dinkelberg/pkg/metrics"
)

const requestIDHeader = "X-Request-ID"

type server struct {
	botName string
	handler *bot.Handler
	store   *cache.Store
	logger  zerolog.Logger
}

func newServer(botName string, handler *bot.Handler, store *cache.Store) *server {
	return &server{
		botName: botName,
		handler: handler,
		store:   store,
		logger:  logging.NewLogger("http"),
	}
}

func newRouter(s *server) *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/chats/{chat_id:-?[0-9]+}/commands", s.command).Methods(http.MethodPost)

	r.HandleFunc("/admin/cache", s.enableCache).Methods(http.MethodPut)
	r.HandleFunc("/admin/cache", s.disableCache).Methods(http.MethodDelete)
	r.HandleFunc("/admin/cache/reinitialize", s.reinitializeCache).Methods(http.MethodPost)

	return r
}

// requestID tags each request with an id and a request scoped logger.
func (s *server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		logger := s.logger.With().Str("request_id", id).Logger()
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))

		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

type healthResponse struct {
	Status string              `json:"status"`
	Cache  cache.Status        `json:"cache"`
	Stats  cache.StatsSnapshot `json:"stats"`
}

// health reports 503 only when a configured cache is unreachable; a bot
// without a cache still serves every command.
func (s *server) health(w http.ResponseWriter, r *http.Request) {
	status := s.store.Status(r.Context())

	code := http.StatusOK
	if status.Enabled && !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, healthResponse{
		Status: status.String(),
		Cache:  status,
		Stats:  s.store.Stats().Snapshot(),
	})
}

type commandRequest struct {
	Text string `json:"text"`
}

type commandResponse struct {
	Replies []replyJSON `json:"replies"`
	Error   string      `json:"error,omitempty"`
}

func (s *server) command(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	chatID, err := strconv.ParseInt(mux.Vars(r)["chat_id"], 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid chat id")
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd, ok := bot.ParseCommand(req.Text, s.botName)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "not a command")
		return
	}

	rec := &recorder{replies: []replyJSON{}}
	err = s.handler.Handle(r.Context(), bot.ChatID(chatID), cmd, rec)
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, commandResponse{Replies: rec.replies})
	case errors.Is(err, bot.ErrUnknownCommand):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		logger.Error().Err(err).Int64("chat_id", chatID).Str("command", cmd.Name).Msg("Command failed")
		writeJSON(w, r, http.StatusBadGateway, commandResponse{Replies: rec.replies, Error: err.Error()})
	}
}

func (s *server) enableCache(w http.ResponseWriter, r *http.Request) {
	s.store.Enable()
	writeJSON(w, r, http.StatusOK, s.store.Status(r.Context()))
}

func (s *server) disableCache(w http.ResponseWriter, r *http.Request) {
	s.store.Disable()
	writeJSON(w, r, http.StatusOK, s.store.Status(r.Context()))
}

func (s *server) reinitializeCache(w http.ResponseWriter, r *http.Request) {
	s.store.Reinitialize()
	writeJSON(w, r, http.StatusOK, s.store.Status(r.Context()))
}

// replyJSON is one answer the handler produced.
type replyJSON struct {
	Type      string  `json:"type"`
	Text      string  `json:"text,omitempty"`
	URL       string  `json:"url,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// recorder is a bot.Replier collecting answers for the HTTP response.
type recorder struct {
	replies []replyJSON
}

func (rec *recorder) Text(_ context.Context, text string) error {
	rec.replies = append(rec.replies, replyJSON{Type: "text", Text: text})
	return nil
}

func (rec *recorder) Photo(_ context.Context, url string) error {
	rec.replies = append(rec.replies, replyJSON{Type: "photo", URL: url})
	return nil
}

func (rec *recorder) Location(_ context.Context, latitude, longitude float64) error {
	rec.replies = append(rec.replies, replyJSON{Type: "location", Latitude: latitude, Longitude: longitude})
	return nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", code).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, r, code, map[string]string{"error": msg})
}
