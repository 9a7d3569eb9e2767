package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/coop-records-api/internal/config"
	"github.com/coop-records-api/internal/ingest"
	"github.com/coop-records-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ImportHandler handles import endpoints
type ImportHandler struct {
	imports *ingest.Service
	cfg     *config.Config
	log     zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(imports *ingest.Service, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		imports: imports,
		cfg:     cfg,
		log:     log.With().Str("handler", "import").Logger(),
	}
}

// CreateImport handles POST /v1/imports: a multipart upload of one
// delimited file into one domain's table.
func (h *ImportHandler) CreateImport(c *gin.Context) {
	ctx := c.Request.Context()

	sess := currentSession(c)
	if !sess.CanImport() {
		c.JSON(http.StatusForbidden, gin.H{"error": "imports require an admin session"})
		return
	}

	domainParam := c.PostForm("domain")
	if domainParam == "" {
		domainParam = c.Query("domain")
	}
	d, err := models.ParseDomain(domainParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain must be one of: dispatch, receivables, ticketing, dues"})
		return
	}

	replace := c.PostForm("replace") == "true"
	idempotencyKey := c.GetHeader("Idempotency-Key")

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required"})
		return
	}
	defer file.Close()

	if header.Size > h.cfg.Import.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("file too large, max size is %d MB", h.cfg.Import.MaxUploadSize/(1024*1024)),
		})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".csv" && ext != ".txt" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "import requires a delimited text file (.csv or .txt)"})
		return
	}

	// Save uploaded file
	uploadDir := h.cfg.Import.UploadDir
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		h.log.Error().Err(err).Msg("Failed to create upload directory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
		return
	}

	filename := fmt.Sprintf("%s_%s%s", d, uuid.New().String()[:8], ext)
	filePath := filepath.Join(uploadDir, filename)

	dst, err := os.Create(filePath)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		h.log.Error().Err(err).Msg("Failed to copy file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
		return
	}

	job, existed, err := h.imports.CreateJob(ctx, d, replace, idempotencyKey, filePath)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create import job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create import job"})
		return
	}

	if existed {
		h.log.Info().Str("job_id", job.ID).Msg("Returning existing job for idempotency key")
		c.JSON(http.StatusOK, job)
		return
	}

	h.log.Info().
		Str("job_id", job.ID).
		Str("domain", string(d)).
		Str("file", header.Filename).
		Int64("size_bytes", header.Size).
		Bool("replace", replace).
		Msg("Import job created")

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":  job.ID,
		"status":  job.Status,
		"domain":  job.Domain,
		"message": "Import job created and queued for processing",
	})
}

// GetImportStatus handles GET /v1/imports/:job_id
func (h *ImportHandler) GetImportStatus(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id is required"})
		return
	}

	job, err := h.imports.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job status"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}
