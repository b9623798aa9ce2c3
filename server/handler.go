package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jcooky/go-din"
	"github.com/samber/lo"

	"github.com/chatrelay/chatrelay/chat"
	"github.com/chatrelay/chatrelay/config"
	"github.com/chatrelay/chatrelay/entity"
	"github.com/chatrelay/chatrelay/errors"
	"github.com/chatrelay/chatrelay/internal/mylog"
	"github.com/chatrelay/chatrelay/thread"
)

type (
	ThreadSummary struct {
		ThreadID  string    `json:"threadId"`
		Title     string    `json:"title"`
		UserEmail string    `json:"userEmail"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	MessageView struct {
		Role       string             `json:"role"`
		Content    string             `json:"content"`
		Attachment *entity.Attachment `json:"attachment,omitempty"`
	}

	turnRequest struct {
		ThreadID  string `json:"threadId"`
		Message   string `json:"message"`
		UserID    string `json:"userId"`
		UserEmail string `json:"userEmail"`
		Image     string `json:"image"`
	}

	handler struct {
		logger       *mylog.Logger
		threads      thread.Manager
		chat         chat.Service
		maxBodyBytes int64
	}
)

// NewHandler builds the HTTP surface: thread listing/reading/deletion
// and the turn endpoint, wrapped in CORS and panic recovery.
func NewHandler(c *din.Container) (http.Handler, error) {
	logger, err := din.Get[*mylog.Logger](c, mylog.Key)
	if err != nil {
		return nil, err
	}
	cfg, err := din.GetT[*config.ServerConfig](c)
	if err != nil {
		return nil, err
	}
	threads, err := din.GetT[thread.Manager](c)
	if err != nil {
		return nil, err
	}
	chatService, err := din.GetT[chat.Service](c)
	if err != nil {
		return nil, err
	}

	h := &handler{
		logger:       logger,
		threads:      threads,
		chat:         chatService,
		maxBodyBytes: cfg.MaxBodyBytes,
	}

	router := mux.NewRouter()
	router.HandleFunc("/threads", h.listThreads).Methods(http.MethodGet)
	router.HandleFunc("/threads/{threadId}", h.getThread).Methods(http.MethodGet)
	router.HandleFunc("/threads/{threadId}", h.deleteThread).Methods(http.MethodDelete)
	router.HandleFunc("/", h.handleTurn).Methods(http.MethodPost)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.PrintRecoveryStack(true),
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
	)

	return cors(recovery(router)), nil
}

func (h *handler) listThreads(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	threads, err := h.threads.GetThreads(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to fetch threads", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch threads")
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(threads, func(t entity.Thread, _ int) ThreadSummary {
		return ThreadSummary{
			ThreadID:  t.ThreadKey,
			Title:     t.Title,
			UserEmail: t.UserEmail,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		}
	}))
}

func (h *handler) getThread(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	key := thread.Key{ThreadID: mux.Vars(r)["threadId"], UserID: userID}
	loaded, err := h.threads.GetThread(r.Context(), key)
	if errors.Is(err, errors.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Thread not found")
		return
	} else if err != nil {
		h.logger.Error("failed to fetch thread", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch chat")
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(loaded.Messages, func(m entity.Message, _ int) MessageView {
		view := MessageView{Role: m.Role, Content: m.Content}
		if attachment := m.Attachment.Data(); attachment.MIMEType != "" {
			view.Attachment = &attachment
		}
		return view
	}))
}

func (h *handler) deleteThread(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	key := thread.Key{ThreadID: mux.Vars(r)["threadId"], UserID: userID}
	err := h.threads.DeleteThread(r.Context(), key)
	if errors.Is(err, errors.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Thread not found")
		return
	} else if err != nil {
		h.logger.Error("failed to delete thread", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete thread")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"success": "Thread deleted successfully"})
}

func (h *handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.chat.HandleTurn(r.Context(), chat.TurnRequest{
		ThreadID:  req.ThreadID,
		UserID:    req.UserID,
		UserEmail: req.UserEmail,
		Message:   req.Message,
		Image:     req.Image,
	})
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("turn failed", "thread_id", req.ThreadID, "err", err)
		}
		writeError(w, status, userMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, errors.ErrUpstream),
		errors.Is(err, errors.ErrModelUnavailable),
		errors.Is(err, errors.ErrInvalidResponseShape):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// userMessage strips the sentinel suffix that pkg/errors wrapping
// appends, leaving the human-readable part for the response body.
func userMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{
		errors.ErrInvalidParams,
		errors.ErrNotFound,
		errors.ErrUpstream,
		errors.ErrUpstreamTimeout,
		errors.ErrModelUnavailable,
		errors.ErrInvalidResponseShape,
		errors.ErrEmptyReply,
		errors.ErrPersistence,
	} {
		msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
