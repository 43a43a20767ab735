package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/csi-attendance-api/internal/middleware"
	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/service"
	appErrors "github.com/noah-isme/csi-attendance-api/pkg/errors"
	"github.com/noah-isme/csi-attendance-api/pkg/response"
)

// issuerPayload is the optional body of mutations that carry no other fields.
type issuerPayload struct {
	IssuerID string `json:"issuer_id"`
}

func issuerFrom(c *gin.Context, fromBody string) string {
	return middleware.ResolveIssuer(c, fromBody)
}

// bindJSON decodes the body into dest, responding with 400 on failure.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints where an empty body is acceptable.
func bindOptionalJSON(c *gin.Context, dest interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return fallback
}

// dateRange reads start_date and end_date, applying the lookback default.
func dateRange(c *gin.Context, lookbackMonths int) (models.DateRange, error) {
	return service.ParseDateRange(c.Query("start_date"), c.Query("end_date"), lookbackMonths, time.Now())
}

// queryList accepts both repeated keys and comma separated values.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func rangeMeta(c *gin.Context, rng models.DateRange) map[string]interface{} {
	middleware.SetMeta(c, "start_date", rng.Start.Format(service.DateLayout))
	middleware.SetMeta(c, "end_date", rng.End.Format(service.DateLayout))
	return middleware.ExtractMeta(c)
}
