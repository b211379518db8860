package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mrecall/internal/middleware"
)

type RouterDeps struct {
	Sessions *SessionHandler
	Memories *MemoryHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/sessions/:id/messages", deps.Sessions.Append)
	api.GET("/sessions/:id/messages", deps.Sessions.GetMessages)
	// Extraction shells out to an LLM; one in-flight run per path is enough.
	api.POST("/sessions/:id/extract", middleware.RateLimit(2*time.Second), deps.Sessions.Extract)
	api.POST("/extract", middleware.RateLimit(5*time.Second), deps.Sessions.ExtractPending)

	api.POST("/memories/search", deps.Memories.Search)
	api.GET("/memories", deps.Memories.List)
	api.GET("/memories/:id", deps.Memories.Get)
	api.DELETE("/memories/:id", deps.Memories.Delete)

	api.GET("/embedding/status", deps.Memories.EmbeddingStatus)
}
