// internal/handlers/router.go
package handlers

import (
	"net/http"

	"pawcare-back/internal/analysis"
	"pawcare-back/internal/auth"
	"pawcare-back/internal/middleware"
	"pawcare-back/internal/notify"
	"pawcare-back/internal/repository"
	"pawcare-back/internal/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the services the HTTP API is built on
type Deps struct {
	DB             *gorm.DB
	Tokens         *auth.TokenManager
	Orchestrator   *analysis.Orchestrator
	Dogs           *repository.DogRepository
	Files          *storage.Gateway
	Events         notify.Subscriber
	AllowedOrigins string
	CookieDomain   string
}

// NewRouter registers every API route on a new gin engine
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORSMiddleware(d.AllowedOrigins))
	r.MaxMultipartMemory = 32 << 20

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", Readiness(d.DB, d.Events))

	// Public routes
	public := r.Group("/api")
	{
		public.POST("/register", Register(d.DB, d.Tokens, d.CookieDomain))
		public.POST("/login", Login(d.DB, d.Tokens, d.CookieDomain))
		public.POST("/logout", Logout(d.CookieDomain))
		public.GET("/ai/health", AIHealth(d.Orchestrator))
	}

	// Protected routes
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware(d.Tokens))
	{
		protected.GET("/profile", GetProfile(d.DB))

		ai := protected.Group("/ai/analyze")
		ai.POST("/text", AIAnalyzeText(d.Orchestrator))
		ai.POST("/image", AIAnalyzeImage(d.Orchestrator))
		ai.POST("/audio", AIAnalyzeAudio(d.Orchestrator))
		ai.POST("/comprehensive", AIAnalyzeComprehensive(d.Orchestrator))

		protected.GET("/dogs", ListDogs(d.Dogs))
		protected.POST("/dogs", CreateDog(d.Dogs, d.Files))
		protected.GET("/dogs/:id", GetDog(d.Dogs))
		protected.PUT("/dogs/:id", UpdateDog(d.Dogs, d.Files))
		protected.DELETE("/dogs/:id", DeleteDog(d.Dogs, d.Files))
		protected.GET("/dogs/:id/profile-image", GetProfileImage(d.Dogs, d.Files))
		protected.POST("/dogs/:id/medical-history", AddMedicalHistory(d.Dogs))
		protected.POST("/dogs/:id/vaccinations", AddVaccination(d.Dogs))
		protected.POST("/dogs/:id/medications", AddMedication(d.Dogs))

		health := protected.Group("/health")
		health.POST("/submit-analysis", SubmitAnalysis(d.Orchestrator))
		health.POST("/analyze", SubmitAnalysis(d.Orchestrator))
		health.GET("/analysis-status/:id", GetAnalysisStatus(d.Orchestrator))
		health.GET("/analyze/:id", GetAnalysisStatus(d.Orchestrator))
		if d.Events != nil {
			health.GET("/analysis-status/:id/events", AnalysisEvents(d.Orchestrator, d.Events))
		}
		health.GET("/dogs/:dogId/logs", ListDogLogs(d.Orchestrator))
		health.PUT("/logs/:id/status", UpdateLogStatus(d.Orchestrator))
		health.GET("/logs/:id/files/:kind/:index", DownloadLogFile(d.Orchestrator, d.Files))
		health.GET("/stats", GetStats(d.Orchestrator))
	}

	return r
}
