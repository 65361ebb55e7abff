// Package httpapi is a thin Gin adapter over the execution core, exposing
// the routes the original Flask app exposed. It translates JSON to core
// operations and back; it owns no business logic of its own. Grounded on
// weizsw-fusionn-muse's internal/handler package (Handler struct holding
// its collaborators, RegisterRoutes, gin.H error bodies).
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/isipython-edu/isipython-core/internal/core"
	"github.com/isipython-edu/isipython-core/internal/grade"
	"github.com/isipython-edu/isipython-core/internal/score"
	"github.com/isipython-edu/isipython-core/internal/session"
	"github.com/isipython-edu/isipython-core/internal/transpile"
)

// Handler wires the session supervisor and the grader to HTTP routes.
type Handler struct {
	sessions *session.Supervisor
	grader   *grade.Grader
	log      *zap.Logger
}

func New(sessions *session.Supervisor, grader *grade.Grader, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{sessions: sessions, grader: grader, log: log}
}

// RegisterRoutes registers every route under /api, mirroring the original
// backend's surface.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.POST("/code", h.RunCode)
		api.POST("/debug/start", h.DebugStart)
		api.POST("/debug/step", h.DebugStep)
		api.GET("/session/:id", h.SessionStatus)
		api.POST("/session/:id/input", h.SupplyInput)
		api.POST("/session/kill/:id", h.KillSession)
		api.POST("/challenge/submit", h.SubmitChallenge)
		api.POST("/quiz/submit", h.SubmitQuiz)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// runCodeRequest is shared by /code and /debug/start; only the route
// determines which session.Mode is used.
type runCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// RunCode starts an interactive (non-debug) session.
func (h *Handler) RunCode(c *gin.Context) {
	h.startSession(c, session.ModeInteractive)
}

// DebugStart starts a debug-instrumented session.
func (h *Handler) DebugStart(c *gin.Context) {
	h.startSession(c, session.ModeDebug)
}

func (h *Handler) startSession(c *gin.Context, mode session.Mode) {
	var req runCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := h.sessions.Start(c.Request.Context(), req.Code, mode)
	if err != nil {
		writeCoreError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type sessionIDRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// DebugStep resumes a session waiting at a debug breakpoint; it supplies an
// empty line, matching the original's "press any key to step" semantics.
func (h *Handler) DebugStep(c *gin.Context) {
	var req sessionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := h.sessions.SupplyInput(req.SessionID, "")
	if err != nil {
		writeCoreError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SessionStatus polls a session without supplying input.
func (h *Handler) SessionStatus(c *gin.Context) {
	id := c.Param("id")
	snap, err := h.sessions.Status(id)
	if err != nil {
		writeCoreError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type supplyInputRequest struct {
	Line string `json:"line"`
}

// SupplyInput feeds one line of stdin to a session waiting for input.
func (h *Handler) SupplyInput(c *gin.Context) {
	id := c.Param("id")
	var req supplyInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := h.sessions.SupplyInput(id, req.Line)
	if err != nil {
		writeCoreError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// KillSession force-terminates a session. Matches the original's
// fire-and-forget semantics: killing an unknown session is not an error.
func (h *Handler) KillSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.sessions.Kill(id); err != nil {
		writeCoreError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"killed": id})
}

type submitChallengeRequest struct {
	ChallengeID string `json:"challenge_id" binding:"required"`
	UserID      string `json:"user_id" binding:"required"`
	Code        string `json:"code" binding:"required"`
}

// SubmitChallenge grades one submission against a challenge's test cases.
func (h *Handler) SubmitChallenge(c *gin.Context) {
	var req submitChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.grader.Grade(c.Request.Context(), req.ChallengeID, req.UserID, req.Code)
	if err != nil {
		h.log.Warn("grading failed", zap.String("challenge_id", req.ChallengeID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type quizQuestion struct {
	ID            string  `json:"id" binding:"required"`
	CorrectAnswer string  `json:"correct_answer"`
	PointsWeight  float64 `json:"points_weight"`
}

type submitQuizRequest struct {
	Questions   []quizQuestion    `json:"questions" binding:"required"`
	UserAnswers map[string]string `json:"user_answers"`
	TotalPoints float64           `json:"total_points"`
}

// SubmitQuiz scores a quiz submission in-process; unlike SubmitChallenge
// this needs no child process, so it never fails except on a malformed
// request body.
func (h *Handler) SubmitQuiz(c *gin.Context) {
	var req submitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions := make([]score.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = score.Question{ID: q.ID, CorrectAnswer: q.CorrectAnswer, PointsWeight: q.PointsWeight}
	}

	result := score.Quiz(questions, req.UserAnswers, req.TotalPoints)
	c.JSON(http.StatusOK, result)
}

// writeCoreError maps a transpile rejection to 422 and a core.Error's Kind
// to an HTTP status; anything else is a 500. Matches the teacher's practice of logging and swallowing
// recoverable failures rather than crashing the handler.
func writeCoreError(c *gin.Context, log *zap.Logger, err error) {
	var transpileErr *transpile.Error
	if errors.As(err, &transpileErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		switch coreErr.Kind {
		case core.KindSessionMissing:
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		case core.KindProcessNotRunning:
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		case core.KindTranspileIO, core.KindChildSpawnFailed:
			log.Warn("request failed", zap.String("kind", string(coreErr.Kind)), zap.Error(err))
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
	}
	log.Error("unhandled request error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
