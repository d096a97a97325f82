package http

import "github.com/gin-gonic/gin"

// Register registers the cleanup routes. Every action route answers GET as
// well as POST so plain cron callers can trigger it.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/cleanup-projects", h.CleanupProjects)
	rg.GET("/cleanup-projects", h.CleanupProjects)
	rg.POST("/cleanup-storage", h.CleanupStorage)
	rg.GET("/cleanup-storage", h.CleanupStorage)
	rg.POST("/cleanup", h.Cleanup)
	rg.GET("/cleanup", h.Cleanup)

	rg.GET("/cleanup/runs", h.ListRuns)
}
