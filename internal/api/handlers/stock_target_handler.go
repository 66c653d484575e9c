package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/andresuchdata/shelfstock/internal/pipeline/shelf_life"
	"github.com/andresuchdata/shelfstock/internal/service"
	"github.com/andresuchdata/shelfstock/internal/tabular"
	"github.com/gin-gonic/gin"
)

type StockTargetHandler struct {
	service   *service.StockTargetService
	uploadDir string
}

func NewStockTargetHandler(service *service.StockTargetService, uploadDir string) *StockTargetHandler {
	return &StockTargetHandler{service: service, uploadDir: uploadDir}
}

type policyRequest struct {
	ShelfLifeDays          *float64 `json:"shelf_life_days"`
	InventoryCapPercentage *float64 `json:"inventory_cap_percentage"`
	HighZScore             *float64 `json:"high_z_score"`
}

type computeStockTargetsRequest struct {
	Records []stockRecordRequest `json:"records"`
	Policy  *policyRequest       `json:"policy,omitempty"`
	Persist bool                 `json:"persist"`
	Source  string               `json:"source"`
}

// toPolicy overrides the fields that were given; the rest come from base.
func (p *policyRequest) toPolicy(base shelf_life.Policy) *shelf_life.Policy {
	if p == nil {
		return nil
	}
	out := base
	if p.ShelfLifeDays != nil {
		out.ShelfLifeDays = *p.ShelfLifeDays
	}
	if p.InventoryCapPercentage != nil {
		out.CapFraction = *p.InventoryCapPercentage
	}
	if p.HighZScore != nil {
		out.HighZScore = *p.HighZScore
	}
	return &out
}

// policyFromForm reads policy overrides from multipart form fields. It returns nil when none is set.
func policyFromForm(c *gin.Context) (*policyRequest, error) {
	var req policyRequest
	var set bool
	fields := []struct {
		name string
		dst  **float64
	}{
		{"shelf_life_days", &req.ShelfLifeDays},
		{"inventory_cap_percentage", &req.InventoryCapPercentage},
		{"high_z_score", &req.HighZScore},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(c.PostForm(f.name))
		if raw == "" {
			continue
		}
		v, err := tabular.ParseNumber(raw)
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", f.name, err)
		}
		*f.dst = &v
		set = true
	}
	if !set {
		return nil, nil
	}
	return &req, nil
}

// Compute derives stock targets from a JSON body or an uploaded CSV/XLSX file.
func (h *StockTargetHandler) Compute(c *gin.Context) {
	format, err := shelf_life.ParseOutputFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var out *service.StockTargetRun
	if isMultipart(c) {
		table, filename, err := readUploadedTable(c, h.uploadDir)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		policy, err := policyFromForm(c)
		if err != nil {
			writeError(c, err)
			return
		}
		out, err = h.service.ComputeTable(c.Request.Context(), table, service.StockTargetInput{
			Policy:  policy.toPolicy(h.service.DefaultPolicy()),
			Source:  filename,
			Persist: parseBool(c.PostForm("persist")) || parseBool(c.Query("persist")),
		})
		if err != nil {
			writeError(c, err)
			return
		}
	} else {
		var req computeStockTargetsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		records, err := toStockRecords(req.Records)
		if err != nil {
			writeError(c, err)
			return
		}
		out, err = h.service.Compute(c.Request.Context(), service.StockTargetInput{
			Records: records,
			Policy:  req.Policy.toPolicy(h.service.DefaultPolicy()),
			Source:  req.Source,
			Persist: req.Persist || parseBool(c.Query("persist")),
		})
		if err != nil {
			writeError(c, err)
			return
		}
	}

	if wantsCSV(c) {
		writeCSV(c, shelf_life.ToTable(out.Results, format))
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetRun returns a persisted derivation.
func (h *StockTargetHandler) GetRun(c *gin.Context) {
	format, err := shelf_life.ParseOutputFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	if wantsCSV(c) {
		writeCSV(c, shelf_life.ToTable(out.Results, format))
		return
	}
	c.JSON(http.StatusOK, out)
}

// Sample derives the built-in three-product sample.
func (h *StockTargetHandler) Sample(c *gin.Context) {
	format, err := shelf_life.ParseOutputFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.service.Compute(c.Request.Context(), service.StockTargetInput{Records: shelf_life.SampleRecords()})
	if err != nil {
		writeError(c, err)
		return
	}

	if wantsCSV(c) {
		writeCSV(c, shelf_life.ToTable(out.Results, format))
		return
	}
	c.JSON(http.StatusOK, out)
}
