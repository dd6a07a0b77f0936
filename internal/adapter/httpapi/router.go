package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// NewRouter registers every route on a fresh engine. CORS is applied by the
// server around the engine.
func NewRouter(h *Handler, logger logrus.FieldLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	router.GET("/healthz", HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/answer", h.SubmitAnswer)
		api.GET("/due/:userID", h.DueForReview)
		api.GET("/tiers/:userID", h.TierStatuses)
		api.POST("/users/:userID/init", h.InitializeUser)

		api.GET("/pool/:userID", h.ActivePool)
		api.POST("/pool/:userID/words/:wordID", h.AddToPool)
		api.DELETE("/pool/:userID/words/:wordID", h.RemoveFromPool)

		api.GET("/words/:userID", h.ListWords)
		api.POST("/words/:userID/:wordID/restart", h.RestartWord)
		api.DELETE("/words/:userID/:wordID", h.DeleteWord)

		api.POST("/sessions", h.StartSession)
		api.GET("/sessions/history/:userID", h.SessionHistory)
		api.POST("/sessions/:id/answers", h.AnswerInSession)
		api.POST("/sessions/:id/skip", h.SkipInSession)
		api.POST("/sessions/:id/complete", h.CompleteSession)
	}

	return router
}
