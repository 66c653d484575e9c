package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/tabular"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const csvContentType = "text/csv; charset=utf-8"

// writeError maps computation errors to 422, missing runs to 404 and everything else to 500.
func writeError(c *gin.Context, err error) {
	var recErr *domain.RecordError
	switch {
	case errors.As(err, &recErr) && domain.IsComputationError(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  err.Error(),
			"row":    recErr.Row,
			"record": recErr.Record,
			"rule":   recErr.Rule,
		})
	case domain.IsComputationError(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// readUploadedTable stores the multipart "file" field in dir and parses it as CSV or XLSX.
func readUploadedTable(c *gin.Context, dir string) (*tabular.Table, string, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("missing file field: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", err
	}
	tmp, err := os.CreateTemp(dir, "upload-*"+filepath.Ext(file.Filename))
	if err != nil {
		return nil, "", err
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := c.SaveUploadedFile(file, tmp.Name()); err != nil {
		log.Error().Err(err).Str("filename", file.Filename).Msg("failed to save uploaded file")
		return nil, "", err
	}

	t, err := tabular.ReadFile(tmp.Name())
	if err != nil {
		return nil, "", err
	}
	return t, file.Filename, nil
}

func parseBool(value string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && v
}

// wantsCSV reports whether the caller asked for a CSV body instead of JSON.
func wantsCSV(c *gin.Context) bool {
	if strings.EqualFold(c.Query("output"), "csv") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "text/csv")
}

func writeCSV(c *gin.Context, t *tabular.Table) {
	body, err := tabular.Bytes(t)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, csvContentType, body)
}

// queryList accepts both ?k=a&k=b and ?k=a,b.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		out = append(out, domain.SplitList(v)...)
	}
	return out
}
