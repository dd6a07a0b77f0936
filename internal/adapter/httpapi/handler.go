package httpapi

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/wordladder/internal/adapter/mapping"
	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/usecase"
)

const defaultHistoryLimit = 20

// Handler serves the learning endpoints.
type Handler struct {
	pool     usecase.PoolUsecase
	answers  usecase.AnswerUsecase
	sessions usecase.SessionUsecase
	words    usecase.WordUsecase
	logger   logrus.FieldLogger
	clock    func() time.Time
}

func NewHandler(
	pool usecase.PoolUsecase,
	answers usecase.AnswerUsecase,
	sessions usecase.SessionUsecase,
	words usecase.WordUsecase,
	logger logrus.FieldLogger,
) *Handler {
	return &Handler{
		pool:     pool,
		answers:  answers,
		sessions: sessions,
		words:    words,
		logger:   logger.WithField("component", "httpapi"),
		clock:    time.Now,
	}
}

type answerRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	WordID    string `json:"word_id" binding:"required"`
	Mode      string `json:"mode" binding:"required"`
	IsCorrect *bool  `json:"is_correct" binding:"required"`
}

// SubmitAnswer handles POST /api/answer.
func (h *Handler) SubmitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	mode, err := entity.ParseMode(req.Mode)
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.answers.SubmitAnswer(c.Request.Context(), usecase.AnswerRequest{
		UserID:    req.UserID,
		WordID:    req.WordID,
		Mode:      mode,
		IsCorrect: *req.IsCorrect,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, mapping.ToAnswer(res))
}

// ActivePool handles GET /api/pool/:userID.
func (h *Handler) ActivePool(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("userID")
	records, err := h.pool.ActivePool(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	tiers, err := h.pool.ActiveTiers(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"items": mapping.ToProgresses(records), "active_tiers": tiers})
}

// InitializeUser handles POST /api/users/:userID/init.
func (h *Handler) InitializeUser(c *gin.Context) {
	records, err := h.pool.InitializeNewUser(c.Request.Context(), c.Param("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"added": mapping.ToProgresses(records)})
}

// AddToPool handles POST /api/pool/:userID/words/:wordID.
func (h *Handler) AddToPool(c *gin.Context) {
	rec, err := h.pool.AddToActivePool(c.Request.Context(), c.Param("userID"), c.Param("wordID"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, mapping.ToProgress(rec))
}

// RemoveFromPool handles DELETE /api/pool/:userID/words/:wordID.
func (h *Handler) RemoveFromPool(c *gin.Context) {
	if err := h.pool.RemoveFromActivePool(c.Request.Context(), c.Param("userID"), c.Param("wordID")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"removed": c.Param("wordID")})
}

// TierStatuses handles GET /api/tiers/:userID.
func (h *Handler) TierStatuses(c *gin.Context) {
	statuses, err := h.pool.TierStatuses(c.Request.Context(), c.Param("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"tiers": statuses})
}

// DueForReview handles GET /api/due/:userID?date=YYYY-MM-DD.
func (h *Handler) DueForReview(c *gin.Context) {
	today, err := h.dateParam(c)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	records, err := h.words.DueForReview(c.Request.Context(), c.Param("userID"), today, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"date": entity.FormatDay(today), "items": mapping.ToProgresses(records)})
}

// RestartWord handles POST /api/words/:userID/:wordID/restart.
func (h *Handler) RestartWord(c *gin.Context) {
	rec, err := h.words.PutBackToStudy(c.Request.Context(), c.Param("userID"), c.Param("wordID"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, mapping.ToProgress(rec))
}

// DeleteWord handles DELETE /api/words/:userID/:wordID.
func (h *Handler) DeleteWord(c *gin.Context) {
	if err := h.words.RemoveWord(c.Request.Context(), c.Param("userID"), c.Param("wordID")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"removed": c.Param("wordID")})
}

// ListWords handles GET /api/words/:userID?filter=&order_by=&page_no=&page_size=.
func (h *Handler) ListWords(c *gin.Context) {
	pageNo, err := intQuery(c, "page_no", 1)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	pageSize, err := intQuery(c, "page_size", 0)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	items, total, err := h.words.ListWords(c.Request.Context(), usecase.ListWordsRequest{
		UserID:   c.Param("userID"),
		Filter:   c.Query("filter"),
		OrderBy:  c.Query("order_by"),
		PageNo:   clampInt32(pageNo),
		PageSize: clampInt32(pageSize),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, mapping.ProgressList{Items: mapping.ToProgresses(items), Total: total})
}

type startSessionRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Mode   string `json:"mode" binding:"required"`
	Date   string `json:"date"`
}

// StartSession handles POST /api/sessions.
func (h *Handler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	mode, err := entity.ParseMode(req.Mode)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	var session *usecase.Session
	switch mode {
	case entity.ModeReview:
		today := entity.Day(h.clock())
		if strings.TrimSpace(req.Date) != "" {
			if today, err = entity.ParseDay(req.Date); err != nil {
				respondBadRequest(c, fmt.Errorf("invalid date %q: %w", req.Date, err))
				return
			}
		}
		session, err = h.sessions.StartReview(ctx, req.UserID, today)
	default:
		session, err = h.sessions.StartStudy(ctx, req.UserID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	h.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"user_id":    session.UserID,
		"mode":       session.Mode,
		"questions":  len(session.Questions),
	}).Debug("session started")
	respondOK(c, session)
}

type sessionAnswerRequest struct {
	WordID    string `json:"word_id" binding:"required"`
	IsCorrect *bool  `json:"is_correct" binding:"required"`
}

// AnswerInSession handles POST /api/sessions/:id/answers.
func (h *Handler) AnswerInSession(c *gin.Context) {
	var req sessionAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	res, err := h.sessions.Answer(c.Request.Context(), c.Param("id"), req.WordID, *req.IsCorrect)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, mapping.ToAnswer(res))
}

type skipRequest struct {
	WordID string `json:"word_id" binding:"required"`
}

// SkipInSession handles POST /api/sessions/:id/skip.
func (h *Handler) SkipInSession(c *gin.Context) {
	var req skipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	res, err := h.sessions.Skip(c.Request.Context(), c.Param("id"), req.WordID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, mapping.ToAnswer(res))
}

// CompleteSession handles POST /api/sessions/:id/complete.
func (h *Handler) CompleteSession(c *gin.Context) {
	summary, err := h.sessions.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, summary)
}

// SessionHistory handles GET /api/sessions/history/:userID.
func (h *Handler) SessionHistory(c *gin.Context) {
	limit, err := intQuery(c, "limit", defaultHistoryLimit)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	logs, err := h.sessions.History(c.Request.Context(), c.Param("userID"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"items": logs})
}

func (h *Handler) dateParam(c *gin.Context) (time.Time, error) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		return entity.Day(h.clock()), nil
	}
	day, err := entity.ParseDay(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return day, nil
}

var errNegative = errors.New("must not be negative")

// clampInt32 saturates non-negative query values instead of wrapping them.
func clampInt32(v int) int32 {
	return int32(min(v, math.MaxInt32))
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid %s: %w", key, errNegative)
	}
	return v, nil
}
