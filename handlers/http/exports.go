package httpHandler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"iot-monitor/entities"
	"iot-monitor/exporter"
	"iot-monitor/handlers/middleware"
	"iot-monitor/storage"
	"iot-monitor/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type createExportRequest struct {
	Format   string `json:"format" binding:"required"`
	DateFrom string `json:"date_from" binding:"required"`
	DateTo   string `json:"date_to" binding:"required"`
}

type exportStatusResponse struct {
	*entities.ExportJob
	DownloadURL string `json:"download_url,omitempty"`
}

type ExportHandler struct {
	useCase *usecases.ExportUseCase
	store   *storage.ArtifactStore
	logger  *zap.Logger
}

func NewExportHandler(useCase *usecases.ExportUseCase, store *storage.ArtifactStore, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{useCase: useCase, store: store, logger: logger}
}

func downloadURL(job *entities.ExportJob) string {
	if job.Status != entities.ExportCompleted {
		return ""
	}
	return fmt.Sprintf("/api/v1/exports/%s/download", job.ID)
}

// CreateExport handles POST /api/v1/devices/:deviceId/sessions/export
func (h *ExportHandler) CreateExport(c *gin.Context) {
	var req createExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	from, err := usecases.ParseTimestamp(req.DateFrom)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	to, err := usecases.ParseTimestamp(req.DateTo)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	p := middleware.PrincipalFrom(c)
	job, err := h.useCase.CreateExportJob(c.Request.Context(), usecases.ExportRequest{
		TenantID: p.TenantID,
		UserID:   p.UserID,
		DeviceID: c.Param("deviceId"),
		Format:   entities.ExportFormat(req.Format),
		DateFrom: from,
		DateTo:   to,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data": gin.H{
			"export_id": job.ID,
			"status":    job.Status,
			"message":   usecases.MsgExportCreated,
		},
	})
}

// ListExports handles GET /api/v1/exports
func (h *ExportHandler) ListExports(c *gin.Context) {
	page := max(queryInt(c, "page", 1), 1)
	limit := min(max(queryInt(c, "limit", 20), 1), 100)

	p := middleware.PrincipalFrom(c)
	jobs, total, err := h.useCase.ListExportJobs(c.Request.Context(), p.TenantID, p.UserID, page, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	out := make([]exportStatusResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, exportStatusResponse{ExportJob: &jobs[i], DownloadURL: downloadURL(&jobs[i])})
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    out,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetExport handles GET /api/v1/exports/:exportId
func (h *ExportHandler) GetExport(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	job, err := h.useCase.GetExportJob(c.Request.Context(), p.TenantID, p.UserID, c.Param("exportId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, exportStatusResponse{ExportJob: job, DownloadURL: downloadURL(job)}, "")
}

// DownloadExport handles GET /api/v1/exports/:exportId/download
func (h *ExportHandler) DownloadExport(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	path, err := h.useCase.GetDownloadPath(c.Request.Context(), p.TenantID, p.UserID, c.Param("exportId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	f, err := h.store.Open(path)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": usecases.MsgExportMissing})
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	name := filepath.Base(path)
	c.DataFromReader(http.StatusOK, info.Size(), exporter.ContentType(filepath.Ext(name)), f, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, name),
	})
}
