package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/claim-deploy/claim-deploy-backend/internal/provision/domain"
	"github.com/claim-deploy/claim-deploy-backend/internal/provision/service"
	"github.com/claim-deploy/claim-deploy-backend/internal/templates"
	"github.com/claim-deploy/claim-deploy-backend/internal/vercel"
	"github.com/gin-gonic/gin"
)

// maxUploadBytes caps user-uploaded archives.
const maxUploadBytes = 100 << 20

// Handler exposes the provisioning HTTP surface consumed by the
// presentation layer: the per-step endpoints driven by the browser plus the
// orchestrated /provision workflow.
type Handler struct {
	client   *vercel.Client
	registry *templates.Registry
	svc      *service.Service
	poller   *service.Poller
	defaults service.Defaults
}

// NewHandler creates the provisioning handler.
func NewHandler(client *vercel.Client, registry *templates.Registry, svc *service.Service, poller *service.Poller, defaults service.Defaults) *Handler {
	return &Handler{
		client:   client,
		registry: registry,
		svc:      svc,
		poller:   poller,
		defaults: defaults,
	}
}

// CreateProject creates a project under a generated temporary name.
func (h *Handler) CreateProject(c *gin.Context) {
	var body CreateProjectRequest
	if err := c.ShouldBindJSON(&body); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	name, err := service.GenerateProjectName()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create project"})
		return
	}

	project, err := h.client.CreateProject(c.Request.Context(), vercel.CreateProjectRequest{
		Name:                 name,
		EnvironmentVariables: body.EnvironmentVariables,
	})
	if err != nil {
		respondUpstreamError(c, "Failed to create project", err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// CreateAuthorization creates a billing authorization. Integration identity
// must come from the request; only the region falls back to config.
func (h *Handler) CreateAuthorization(c *gin.Context) {
	var body CreateAuthorizationRequest
	if err := c.ShouldBindJSON(&body); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if body.IntegrationIDOrSlug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "integrationIdOrSlug is required"})
		return
	}
	if body.IntegrationProductID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "integrationProductId is required"})
		return
	}
	if body.BillingPlanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "billingPlanId is required"})
		return
	}
	if body.Region == "" {
		body.Region = h.defaults.Region
	}
	if h.defaults.IntegrationConfigID == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTEGRATION_CONFIG_ID environment variable is required"})
		return
	}

	auth, err := h.client.CreateBillingAuthorization(c.Request.Context(), vercel.CreateAuthorizationRequest{
		IntegrationIDOrSlug: body.IntegrationIDOrSlug,
		ProductID:           body.IntegrationProductID,
		BillingPlanID:       body.BillingPlanID,
		IntegrationConfigID: h.defaults.IntegrationConfigID,
		Region:              body.Region,
	})
	if err != nil {
		respondUpstreamError(c, "Failed to create authorization", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authorization": auth})
}

// CreateStorage creates a storage store tied to an authorization.
func (h *Handler) CreateStorage(c *gin.Context) {
	var body CreateStorageRequest
	if err := c.ShouldBindJSON(&body); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if body.ProjectName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectName is required"})
		return
	}
	if body.IntegrationProductID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "integrationProductId is required"})
		return
	}
	if body.AuthorizationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorizationId is required"})
		return
	}
	if body.BillingPlanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "billingPlanId is required"})
		return
	}
	if body.Region == "" {
		body.Region = h.defaults.Region
	}
	if h.defaults.IntegrationConfigID == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTEGRATION_CONFIG_ID environment variable is required"})
		return
	}

	store, err := h.client.CreateStore(c.Request.Context(), vercel.CreateStoreRequest{
		Name:                "prisma-postgres-" + body.ProjectName,
		ProductID:           body.IntegrationProductID,
		AuthorizationID:     body.AuthorizationID,
		BillingPlanID:       body.BillingPlanID,
		IntegrationConfigID: h.defaults.IntegrationConfigID,
		Region:              body.Region,
	})
	if err != nil {
		respondUpstreamError(c, "Failed to create storage store", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"storage": gin.H{"store": store}})
}

// ConnectStorage connects a storage store to a project. The upstream call
// is idempotent: reconnecting an already-connected pair reports success.
func (h *Handler) ConnectStorage(c *gin.Context) {
	var body ConnectStorageRequest
	if err := c.ShouldBindJSON(&body); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if body.StoreID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "storeId is required"})
		return
	}
	if body.ProjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId is required"})
		return
	}
	if h.defaults.IntegrationConfigID == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTEGRATION_CONFIG_ID environment variable is required"})
		return
	}

	connection, err := h.client.ConnectStoreToProject(c.Request.Context(),
		h.defaults.IntegrationConfigID, h.defaults.ProductID, body.StoreID, body.ProjectID)
	if err != nil {
		respondUpstreamError(c, "Failed to connect storage store to project", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"connection": connection})
}

// Deploy uploads a template archive or user-provided file and creates a
// deployment for the given project.
func (h *Handler) Deploy(c *gin.Context) {
	projectName := c.Query("projectName")
	if projectName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectName is required"})
		return
	}

	templateKey := c.PostForm("template")

	var data []byte
	framework := "nextjs"

	if templateKey != "" {
		tmpl, ok := h.registry.Get(templateKey)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Template file '%s' not found", templateKey)})
			return
		}
		archive, err := h.registry.LoadArchive(c.Request.Context(), templateKey)
		if err != nil {
			log.Printf("[deploy] error reading template archive: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Template file '%s' not found", templateKey)})
			return
		}
		data = archive.Data
		framework = tmpl.Framework
	} else {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "either template or file is required"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return
		}
		defer file.Close()

		data, err = io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return
		}
	}

	digest := templates.DigestOf(data)
	if err := h.client.UploadFile(c.Request.Context(), data, digest); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}

	deployment, err := h.client.CreateDeployment(c.Request.Context(), vercel.CreateDeploymentRequest{
		Name:      fmt.Sprintf("deployment-%d", time.Now().UnixMilli()),
		Project:   projectName,
		FileSHA:   digest,
		Framework: framework,
	})
	if err != nil {
		respondUpstreamError(c, "Failed to create deployment", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deployment": deployment})
}

// WaitForDeploy holds the request open until the deployment reaches a
// terminal state or the wait budget elapses (which cancels the deployment).
func (h *Handler) WaitForDeploy(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deployment id is required"})
		return
	}

	result, err := h.poller.AwaitReady(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrWaitInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		respondUpstreamError(c, "Failed waiting for deployment", err)
		return
	}

	switch result.Outcome {
	case service.OutcomeReady:
		c.JSON(http.StatusOK, gin.H{"deployment": result.Deployment})
	case service.OutcomeTimedOut:
		body := gin.H{"error": "Deployment cancelled due to timeout."}
		if result.CancelErr != nil {
			body["error"] = "Deployment timed out."
			body["details"] = "Failed to cancel deployment: " + result.CancelErr.Error()
		}
		c.JSON(http.StatusGatewayTimeout, body)
	case service.OutcomeCanceled:
		c.JSON(http.StatusOK, gin.H{"deployment": result.Deployment, "canceled": true})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "deployment failed", "deployment": result.Deployment})
	}
}

// CancelDeployment cancels an in-flight deployment.
func (h *Handler) CancelDeployment(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deployment id is required"})
		return
	}

	deployment, err := h.client.CancelDeployment(c.Request.Context(), id)
	if err != nil {
		respondUpstreamError(c, "Failed to cancel deployment", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deployment": deployment})
}

// StartTransfer starts the ownership transfer and passes the claim code
// through verbatim. No state about issued codes is kept here.
func (h *Handler) StartTransfer(c *gin.Context) {
	var body StartTransferRequest
	if err := c.ShouldBindJSON(&body); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if body.ProjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId is required"})
		return
	}

	transfer, err := h.client.CreateTransferRequest(c.Request.Context(), body.ProjectID)
	if err != nil {
		respondUpstreamError(c, "Failed to start project transfer", err)
		return
	}

	c.JSON(http.StatusOK, transfer)
}

// Provision runs the full orchestrated workflow in one request. Accepts
// either JSON {"template": key} or the same multipart form as Deploy.
func (h *Handler) Provision(c *gin.Context) {
	req, ok := h.bindProvisionRequest(c)
	if !ok {
		return
	}

	result, runID, stepErr := h.svc.Provision(c.Request.Context(), req)
	if stepErr != nil {
		status := http.StatusInternalServerError
		body := gin.H{
			"error": stepErr.Err.Error(),
			"step":  stepErr.Step,
		}
		var apiErr *vercel.APIError
		if errors.As(stepErr.Err, &apiErr) {
			status = apiErr.Status
			body["details"] = upstreamDetails(apiErr)
		}
		if runID != "" {
			body["run_id"] = runID
		}
		c.JSON(status, body)
		return
	}

	resp := gin.H{"result": result}
	if runID != "" {
		resp["run_id"] = runID
	}
	c.JSON(http.StatusOK, resp)
}

// GetRun returns recorded progress for a provisioning run.
func (h *Handler) GetRun(c *gin.Context) {
	runID := c.Param("id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run ID is required"})
		return
	}

	run, err := h.svc.GetRun(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get run"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (h *Handler) bindProvisionRequest(c *gin.Context) (domain.ProvisionRequest, bool) {
	var req domain.ProvisionRequest

	if fileHeader, err := c.FormFile("file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return req, false
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return req, false
		}
		req.ArchiveData = data
		return req, true
	}

	if key := c.PostForm("template"); key != "" {
		req.TemplateKey = key
		return req, true
	}

	var body ProvisionRequest
	if err := c.ShouldBindJSON(&body); err == nil && body.Template != "" {
		req.TemplateKey = body.Template
		return req, true
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "either template or file is required"})
	return req, false
}

// respondUpstreamError maps client errors to responses: upstream failures
// pass the upstream status and body through as details, everything else is
// an opaque 500.
func respondUpstreamError(c *gin.Context, action string, err error) {
	var apiErr *vercel.APIError
	if errors.As(err, &apiErr) {
		log.Printf("[vercel] %s: status=%d body=%s", action, apiErr.Status, apiErr.Body)
		c.JSON(apiErr.Status, gin.H{
			"error":   fmt.Sprintf("%s: %d", action, apiErr.Status),
			"details": upstreamDetails(apiErr),
		})
		return
	}

	log.Printf("[vercel] %s: %v", action, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": action})
}

func upstreamDetails(apiErr *vercel.APIError) interface{} {
	var details interface{}
	if err := json.Unmarshal(apiErr.Body, &details); err != nil || details == nil {
		return string(apiErr.Body)
	}
	return details
}
