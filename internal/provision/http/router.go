package http

import "github.com/gin-gonic/gin"

// Register registers the provisioning routes. The per-step routes mirror
// what the browser drives one call at a time; /provision runs the whole
// workflow server-side.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/create-project", h.CreateProject)
	rg.POST("/create-authorization", h.CreateAuthorization)
	rg.POST("/create-storage", h.CreateStorage)
	rg.POST("/connect-storage-to-project", h.ConnectStorage)
	rg.POST("/deploy", h.Deploy)
	rg.GET("/wait-for-deploy/:id", h.WaitForDeploy)
	rg.PATCH("/cancel-deployment/:id", h.CancelDeployment)
	rg.POST("/start-project-transfer", h.StartTransfer)

	rg.POST("/provision", h.Provision)
	rg.GET("/provision/runs/:id", h.GetRun)
}
