package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-prep/internal/config"
	"github.com/stemsi/exstem-prep/internal/handler"
	"github.com/stemsi/exstem-prep/internal/middleware"
	"github.com/stemsi/exstem-prep/internal/response"
)

// subjectsMaxAge is the Cache-Control max-age of the subject listing.
const subjectsMaxAge = 300

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Quiz    *handler.QuizHandler
	History *handler.HistoryHandler
	Bank    *handler.BankHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// startLimiter guards quiz creation.
func SetupRouter(handlers *Handlers, startLimiter *middleware.RateLimiter, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Compress larger JSON bodies (results, normalized banks).
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")

	// ─── 1. Banks ──────────────────────────────────────────────────────
	api.GET("/subjects", middleware.CacheControl(subjectsMaxAge), handlers.Bank.ListSubjects)
	api.POST("/banks/normalize", handlers.Bank.Normalize)

	// ─── 2. Quizzes ────────────────────────────────────────────────────
	quizzes := api.Group("/quizzes")
	{
		quizzes.POST("", startLimiter.Middleware(), handlers.Quiz.Start)
		quizzes.GET("/:id", handlers.Quiz.Get)
		quizzes.DELETE("/:id", handlers.Quiz.Abandon)
		quizzes.POST("/:id/answer", handlers.Quiz.Answer)
		quizzes.DELETE("/:id/answer", handlers.Quiz.Clear)
		quizzes.POST("/:id/next", handlers.Quiz.Next)
		quizzes.POST("/:id/previous", handlers.Quiz.Previous)
		quizzes.POST("/:id/jump", handlers.Quiz.Jump)
		quizzes.POST("/:id/submit", handlers.Quiz.Submit)
	}

	// ─── 3. History ────────────────────────────────────────────────────
	api.GET("/results", handlers.History.ListResults)
	api.GET("/results/:id", handlers.History.GetResult)
	api.GET("/revision", handlers.History.Revision)
	api.DELETE("/revision/:question_id", handlers.History.MarkRevised)

	// ─── 4. WebSocket ──────────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/quizzes/:id/stream", handlers.WS.QuizStream)
	}

	return router
}
