package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/brainbites/brainbites-server/internal/repository"
	"github.com/brainbites/brainbites-server/internal/service"
)

// Registry is the per-device session source the handler drives.
type Registry interface {
	Session(ctx context.Context, deviceID string) *service.Session
	Bank() *service.QuestionBank
	Reset(ctx context.Context, deviceID string)
}

// Handler exposes the reward-economy core over REST plus a websocket stream
// of balance changes. It is a thin seam: all rules live in the services.
type Handler struct {
	registry Registry
	hub      *Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewHandler(registry Registry, hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{
		registry: registry,
		hub:      hub,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Router builds the route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/categories", h.handleCategories).Methods(http.MethodGet)
	api.HandleFunc("/achievements", h.handleAchievements).Methods(http.MethodGet)

	device := api.PathPrefix("/devices/{id}").Subrouter()
	device.HandleFunc("/question", h.handleQuestion).Methods(http.MethodGet)
	device.HandleFunc("/answers", h.handleAnswer).Methods(http.MethodPost)
	device.HandleFunc("/stats", h.handleStats).Methods(http.MethodGet)
	device.HandleFunc("/corpus", h.handleCorpusStats).Methods(http.MethodGet)
	device.HandleFunc("/goals", h.handleGoals).Methods(http.MethodGet)
	device.HandleFunc("/goals/{goalId}/claim", h.handleClaim).Methods(http.MethodPost)
	device.HandleFunc("/time/consume", h.handleConsume).Methods(http.MethodPost)
	device.HandleFunc("/time/background", h.handleBackground).Methods(http.MethodPost)
	device.HandleFunc("/time/sync", h.handleSync).Methods(http.MethodPost)
	device.HandleFunc("/login", h.handleLogin).Methods(http.MethodPost)
	device.HandleFunc("/reset", h.handleReset).Methods(http.MethodPost)

	r.HandleFunc("/ws", h.handleWebSocket)

	return r
}

// questionPayload hides the answer key; grading happens server side.
type questionPayload struct {
	ID       int               `json:"id"`
	Category string            `json:"category"`
	Question string            `json:"question"`
	Options  map[string]string `json:"options"`
	Level    string            `json:"level"`
}

func (h *Handler) handleQuestion(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]
	category := r.URL.Query().Get("category")
	difficulty := r.URL.Query().Get("difficulty")

	q, err := h.registry.Bank().Select(r.Context(), deviceID, category, difficulty)
	if err != nil {
		if errors.Is(err, service.ErrNoQuestionsAvailable) {
			h.respondError(w, http.StatusNotFound, "no questions available for this filter")
			return
		}
		h.serverError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, questionPayload{
		ID:       q.ID,
		Category: q.Category,
		Question: q.Question,
		Options:  q.Options,
		Level:    q.Level,
	})
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	var req struct {
		QuestionID int    `json:"questionId"`
		Selected   string `json:"selected"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := h.registry.Session(r.Context(), deviceID)
	sess.Lock()
	result, err := sess.Rewards.SubmitAnswer(r.Context(), req.QuestionID, req.Selected)
	sess.Unlock()

	if err != nil {
		switch {
		case errors.Is(err, repository.ErrQuestionNotFound):
			h.respondError(w, http.StatusNotFound, "unknown question")
		case errors.Is(err, service.ErrInvalidOption):
			h.respondError(w, http.StatusBadRequest, "selected option is invalid")
		default:
			h.serverError(w, r, err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	sess := h.registry.Session(r.Context(), deviceID)
	sess.Lock()
	available := sess.Timer.Available()
	timeStats := sess.Timer.Stats()
	score := sess.Score.Info()
	goals := sess.Goals.Summary()
	sess.Unlock()

	h.respondJSON(w, http.StatusOK, map[string]any{
		"availableTime": available,
		"formattedTime": service.FormatSeconds(available),
		"timeEarned":    timeStats,
		"score":         score,
		"goals":         goals,
	})
}

func (h *Handler) handleCorpusStats(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]
	h.respondJSON(w, http.StatusOK, h.registry.Bank().Stats(r.Context(), deviceID))
}

func (h *Handler) handleGoals(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	sess := h.registry.Session(r.Context(), deviceID)
	sess.Lock()
	goals := sess.Goals.Goals()
	summary := sess.Goals.Summary()
	rewards := sess.Goals.TotalRewardsEarned()
	sess.Unlock()

	h.respondJSON(w, http.StatusOK, map[string]any{
		"goals":              goals,
		"summary":            summary,
		"totalRewardsEarned": rewards,
	})
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	deviceID := vars["id"]
	goalID := vars["goalId"]

	sess := h.registry.Session(r.Context(), deviceID)
	sess.Lock()
	seconds := sess.Rewards.ClaimGoalReward(r.Context(), goalID)
	sess.Unlock()

	if seconds == 0 {
		h.respondError(w, http.StatusConflict, "goal is not claimable")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"rewardSeconds": seconds,
	})
}

func (h *Handler) handleConsume(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := h.registry.Session(r.Context(), deviceID)
	sess.Lock()
	ok := sess.Timer.ConsumeTime(r.Context(), req.Seconds)
	available := sess.Timer.Available()
	sess.Unlock()

	if !ok {
		h.respondError(w, http.StatusConflict, "insufficient time balance")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"availableTime": available,
	})
}

func (h *Handler) handleBackground(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	var req struct {
		Elapsed int `json:"elapsed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := h.registry.Session(r.Context(), deviceID)
	sess.Lock()
	sess.Timer.RecordBackgroundUsage(r.Context(), req.Elapsed)
	available := sess.Timer.Available()
	sess.Unlock()

	h.respondJSON(w, http.StatusOK, map[string]any{
		"availableTime": available,
	})
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	sess := h.registry.Session(r.Context(), deviceID)
	sess.Lock()
	sess.Timer.Sync(r.Context())
	available := sess.Timer.Available()
	sess.Unlock()

	h.respondJSON(w, http.StatusOK, map[string]any{
		"availableTime": available,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	sess := h.registry.Session(r.Context(), deviceID)
	sess.Lock()
	streak := sess.Score.UpdateDailyLoginStreak(r.Context())
	sess.Unlock()

	h.respondJSON(w, http.StatusOK, map[string]any{
		"dailyStreak": streak,
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]
	h.registry.Reset(r.Context(), deviceID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{
		"categories": h.registry.Bank().Categories(),
	})
}

func (h *Handler) handleAchievements(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{
		"achievements": service.Achievements(),
	})
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device")
	if deviceID == "" {
		h.respondError(w, http.StatusBadRequest, "device query parameter is required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:      h.hub,
		conn:     conn,
		send:     make(chan []byte, 16),
		deviceID: deviceID,
	}
	h.hub.register <- client

	go client.writePump()
	go client.readPump()

	// Ensure the session exists so its timer listener feeds the hub.
	h.registry.Session(r.Context(), deviceID)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	h.respondError(w, http.StatusInternalServerError, "internal error")
}
