package http

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/claim-deploy/claim-deploy-backend/internal/cleanup/domain"
	"github.com/claim-deploy/claim-deploy-backend/internal/cleanup/repository"
	"github.com/claim-deploy/claim-deploy-backend/internal/cleanup/service"
	"github.com/gin-gonic/gin"
)

// Handler exposes the cleanup endpoints. They are meant to be hit by an
// external cron caller, so each one is guarded by a shared bearer secret
// and also answers GET for callers that cannot POST.
type Handler struct {
	reaper  *service.Reaper
	reports *repository.ReportRepository // nil disables audit endpoints and rows
	secret  string
}

// NewHandler creates the cleanup handler. An empty secret disables the
// bearer guard.
func NewHandler(reaper *service.Reaper, reports *repository.ReportRepository, secret string) *Handler {
	return &Handler{reaper: reaper, reports: reports, secret: secret}
}

// CleanupProjects reaps abandoned temporary projects.
func (h *Handler) CleanupProjects(c *gin.Context) {
	h.runKind(c, "projects")
}

// CleanupStorage reaps abandoned temporary storage stores.
func (h *Handler) CleanupStorage(c *gin.Context) {
	h.runKind(c, "storage")
}

// Cleanup reaps every kind. The pass succeeds when at least one kind
// completed; only a full failure is an error.
func (h *Handler) Cleanup(c *gin.Context) {
	if !h.authorized(c) {
		return
	}

	report, err := h.reaper.Run(c.Request.Context())
	h.record(c, report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// ListRuns returns recent cleanup audit rows.
func (h *Handler) ListRuns(c *gin.Context) {
	if !h.authorized(c) {
		return
	}
	if h.reports == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cleanup history is not configured"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := h.reports.Recent(c.Request.Context(), limit)
	if err != nil {
		log.Printf("[cleanup] failed to list runs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list cleanup runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": records})
}

func (h *Handler) runKind(c *gin.Context, kind string) {
	if !h.authorized(c) {
		return
	}

	started := time.Now().UTC()
	report, err := h.reaper.RunKind(c.Request.Context(), kind)
	if err != nil {
		log.Printf("[cleanup] %s: %v", kind, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clean up " + kind})
		return
	}

	h.record(c, &domain.Report{
		Kinds:      []domain.KindReport{*report},
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	})
	c.JSON(http.StatusOK, report)
}

func (h *Handler) record(c *gin.Context, report *domain.Report) {
	if h.reports == nil || report == nil {
		return
	}
	if err := h.reports.Record(c.Request.Context(), domain.TriggerHTTP, report); err != nil {
		log.Printf("[cleanup] failed to record report: %v", err)
	}
}

func (h *Handler) authorized(c *gin.Context) bool {
	if h.secret == "" {
		return true
	}
	if c.GetHeader("Authorization") != "Bearer "+h.secret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return false
	}
	return true
}
