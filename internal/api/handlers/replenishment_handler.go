package handlers

import (
	"net/http"
	"time"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/pipeline/replenishment"
	"github.com/andresuchdata/shelfstock/internal/service"
	"github.com/gin-gonic/gin"
)

type ReplenishmentHandler struct {
	service   *service.ReplenishmentService
	uploadDir string
	now       func() time.Time
}

func NewReplenishmentHandler(service *service.ReplenishmentService, uploadDir string) *ReplenishmentHandler {
	return &ReplenishmentHandler{service: service, uploadDir: uploadDir, now: time.Now}
}

type evaluateRequest struct {
	Records []inventoryRecordRequest `json:"records"`
	Persist bool                     `json:"persist"`
	Source  string                   `json:"source"`
}

func (h *ReplenishmentHandler) parseFilter(c *gin.Context) domain.ReplenishmentFilter {
	return domain.ReplenishmentFilter{
		RunID:    c.Query("run_id"),
		ABCSKUs:  queryList(c, "abc_sku"),
		Statuses: queryList(c, "status"),
	}
}

// Evaluate classifies a JSON body or an uploaded CSV/XLSX file.
func (h *ReplenishmentHandler) Evaluate(c *gin.Context) {
	format, err := replenishment.ParseOutputFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var out *service.ReplenishmentRun
	if isMultipart(c) {
		table, filename, err := readUploadedTable(c, h.uploadDir)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		out, err = h.service.EvaluateTable(c.Request.Context(), table, service.ReplenishmentInput{
			Source:  filename,
			Persist: parseBool(c.PostForm("persist")) || parseBool(c.Query("persist")),
		})
		if err != nil {
			writeError(c, err)
			return
		}
	} else {
		var req evaluateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		records, err := toInventoryRecords(req.Records)
		if err != nil {
			writeError(c, err)
			return
		}
		out, err = h.service.Evaluate(c.Request.Context(), service.ReplenishmentInput{
			Records: records,
			Source:  req.Source,
			Persist: req.Persist || parseBool(c.Query("persist")),
		})
		if err != nil {
			writeError(c, err)
			return
		}
	}

	if wantsCSV(c) {
		writeCSV(c, replenishment.ToTable(out.Results, format))
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetSummary returns the key metrics of the latest persisted snapshot.
func (h *ReplenishmentHandler) GetSummary(c *gin.Context) {
	summary, err := h.service.GetSummary(c.Request.Context(), h.parseFilter(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetLatest returns the rows of the latest persisted snapshot.
func (h *ReplenishmentHandler) GetLatest(c *gin.Context) {
	format, err := replenishment.ParseOutputFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.service.GetLatest(c.Request.Context(), h.parseFilter(c))
	if err != nil {
		writeError(c, err)
		return
	}

	if wantsCSV(c) {
		writeCSV(c, replenishment.ToTable(out.Results, format))
		return
	}
	c.JSON(http.StatusOK, out)
}

// Sample evaluates the built-in eight-product sample.
func (h *ReplenishmentHandler) Sample(c *gin.Context) {
	out, err := h.service.Evaluate(c.Request.Context(), service.ReplenishmentInput{
		Records: replenishment.SampleRecords(h.now()),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
