package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/coop-records-api/internal/aggregate"
	"github.com/coop-records-api/internal/export"
	"github.com/coop-records-api/internal/models"
	"github.com/coop-records-api/internal/query"
	"github.com/coop-records-api/internal/schema"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RecordsHandler handles query, watch, and export endpoints
type RecordsHandler struct {
	builder    *query.Builder
	feed       query.ChangeFeed
	reconciler *schema.Reconciler
	log        zerolog.Logger
}

// NewRecordsHandler creates a new RecordsHandler
func NewRecordsHandler(deps *Deps, log zerolog.Logger) *RecordsHandler {
	return &RecordsHandler{
		builder:    deps.Builder,
		feed:       deps.Feed,
		reconciler: deps.Reconciler,
		log:        log.With().Str("handler", "records").Logger(),
	}
}

// bindQuery parses the domain and filter from the query string.
func bindQuery(c *gin.Context) (models.Domain, models.QueryFilter, bool) {
	d, err := models.ParseDomain(c.Query("domain"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain must be one of: dispatch, receivables, ticketing, dues"})
		return "", models.QueryFilter{}, false
	}

	var f models.QueryFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter parameters"})
		return "", models.QueryFilter{}, false
	}
	return d, f, true
}

// resultPayload shapes one result set for the wire.
func resultPayload(d models.Domain, sess *models.Session, records []models.Record) gin.H {
	payload := gin.H{
		"domain":  d,
		"count":   len(records),
		"records": records,
	}
	if summary := aggregate.Summarize(d, sess.Tier, records); summary != nil {
		payload["summary"] = summary
	}
	return payload
}

// GetRecords handles GET /v1/records
func (h *RecordsHandler) GetRecords(c *gin.Context) {
	sess := currentSession(c)
	d, f, ok := bindQuery(c)
	if !ok {
		return
	}

	records, err := h.builder.Run(c.Request.Context(), sess, d, f)
	if err != nil {
		// Retryable: the client keeps whatever it was showing
		if errors.Is(err, query.ErrQueryFailed) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "query failed, retry", "retryable": true})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	c.JSON(http.StatusOK, resultPayload(d, sess, records))
}

// Watch handles GET /v1/records/watch: a server-sent event stream that
// re-emits the full result set whenever the domain's table changes.
func (h *RecordsHandler) Watch(c *gin.Context) {
	sess := currentSession(c)
	d, f, ok := bindQuery(c)
	if !ok {
		return
	}

	view := query.NewLiveView(h.builder, h.feed, h.log)
	defer view.Close()

	ctx := c.Request.Context()
	if _, err := view.Set(ctx, sess, d, f); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "query failed, retry", "retryable": true})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// The initial run already queued the first event.
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case records := <-view.Updates():
			c.SSEvent("records", resultPayload(d, sess, records))
			return true
		}
	})
}

// Export handles GET /v1/export: the current filtered view as an XLSX
// workbook, one sheet named after the domain.
func (h *RecordsHandler) Export(c *gin.Context) {
	sess := currentSession(c)
	d, f, ok := bindQuery(c)
	if !ok {
		return
	}

	records, err := h.builder.Run(c.Request.Context(), sess, d, f)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "query failed, retry", "retryable": true})
		return
	}

	columns, err := h.reconciler.ColumnsFor(c.Request.Context(), d)
	if err != nil {
		h.log.Error().Err(err).Str("domain", string(d)).Msg("Column listing failed for export")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	workbook, err := export.Workbook(d, columns, records)
	if err != nil {
		h.log.Error().Err(err).Str("domain", string(d)).Msg("Workbook build failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", d))
	if err := workbook.Write(c.Writer); err != nil {
		h.log.Error().Err(err).Msg("Failed to stream workbook")
	}
}
