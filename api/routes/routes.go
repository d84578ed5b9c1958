package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/arigen-tech/docsearch/api/handlers"
	"github.com/arigen-tech/docsearch/api/middleware"
)

// SetupRoutes wires every endpoint onto the engine.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers) {
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")

	docs := v1.Group("/documents")
	{
		docs.POST("/process", h.Document.ProcessDocument)
		docs.POST("/batch", h.Document.ProcessBatch)
		docs.GET("", h.Document.ListDocuments)
		docs.GET("/status/:taskId", h.Document.GetStatus)
		docs.DELETE("/task/:taskId", h.Document.CancelTask)
		docs.DELETE("/:docId", h.Document.DeleteDocument)
	}

	searchGroup := v1.Group("/search")
	{
		searchGroup.GET("/all", h.Search.SearchAll)
		searchGroup.POST("/selected", h.Search.SearchSelected)
	}

	v1.POST("/clean", h.Document.Clean)

	chatGroup := v1.Group("/chat")
	{
		chatGroup.POST("/message", h.Chat.PostMessage)
		chatGroup.GET("/history/:sessionId", h.Chat.GetHistory)
		chatGroup.POST("/clear", h.Chat.Clear)
	}
}
