package http

import (
	"github.com/gin-gonic/gin"

	"docflow/internal/bootstrap"
	"docflow/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	documentHandler := handler.NewDocumentHandler(app.Ingestion, app.IngestPublisher)
	queryHandler := handler.NewQueryHandler(app.Query)

	v1 := router.Group("/api/v1")

	docs := v1.Group("/documents")
	docs.POST("", documentHandler.Ingest)
	docs.POST("/upload", documentHandler.Upload)
	docs.GET("", documentHandler.List)
	docs.GET("/:id", documentHandler.Get)
	docs.GET("/:id/status", documentHandler.Status)
	docs.GET("/:id/chunks", documentHandler.ListChunks)
	docs.GET("/:id/failures", documentHandler.ListFailures)
	docs.DELETE("/:id", documentHandler.Delete)

	// Status lookup by source key, which may contain slashes.
	v1.GET("/status", documentHandler.Status)

	v1.POST("/query", queryHandler.Query)
	v1.GET("/queries", queryHandler.History)

	return router
}
