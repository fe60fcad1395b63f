// Package http exposes the mapping pipeline over a gin HTTP API.
package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/shared/common"
	"github.com/insightgrid/platform/shared/types"
	"github.com/insightgrid/platform/usecase"
)

// LineageReader serves lineage lookups for the read endpoint.
type LineageReader interface {
	GetByMappingID(ctx context.Context, mappingID types.MappingID) (*entity.LineageRecord, error)
}

// HealthChecker reports readiness of one dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handlers of the pipeline API.
type Handlers struct {
	mapping *usecase.DataMappingUseCase
	quality *usecase.QualityEvaluationUseCase
	lineage LineageReader
	health  map[string]HealthChecker
	logger  *logging.Logger
	version string
}

// NewHandlers creates the handler set.
func NewHandlers(
	mapping *usecase.DataMappingUseCase,
	quality *usecase.QualityEvaluationUseCase,
	lineage LineageReader,
	health map[string]HealthChecker,
	logger *logging.Logger,
	version string,
) *Handlers {
	return &Handlers{
		mapping: mapping,
		quality: quality,
		lineage: lineage,
		health:  health,
		logger:  logger.WithComponent("http_handlers"),
		version: version,
	}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateMapping runs the data-mapping pipeline for a source/target pair.
// Expected pipeline failures come back as 200 with success=false; only
// malformed requests and unexpected internal failures produce error
// status codes.
func (h *Handlers) CreateMapping(c *gin.Context) {
	var req entity.MappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}
	req.RequestContext = getRequestContext(c)

	result, err := h.mapping.Execute(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// EvaluateQuality runs the standalone quality evaluation for a file.
func (h *Handlers) EvaluateQuality(c *gin.Context) {
	var req entity.QualityEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}
	req.RequestContext = getRequestContext(c)

	result, err := h.quality.Execute(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLineage returns the lineage record of one mapping invocation.
func (h *Handlers) GetLineage(c *gin.Context) {
	mappingID := types.MappingID(c.Param("mapping_id"))
	if mappingID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "mapping_id is required",
		})
		return
	}

	if h.lineage == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "unavailable",
			Message: "lineage store not configured",
		})
		return
	}

	record, err := h.lineage.GetByMappingID(c.Request.Context(), mappingID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// HealthCheck reports service liveness and dependency status.
func (h *Handlers) HealthCheck(c *gin.Context) {
	status := "healthy"
	checks := make(map[string]string, len(h.health))

	for name, checker := range h.health {
		if err := checker.Ping(c.Request.Context()); err != nil {
			checks[name] = "unhealthy"
			status = "degraded"
		} else {
			checks[name] = "healthy"
		}
	}

	code := http.StatusOK
	c.JSON(code, gin.H{
		"status":  status,
		"version": h.version,
		"checks":  checks,
	})
}

func (h *Handlers) writeError(c *gin.Context, err error) {
	if appErr := common.GetAppError(err); appErr != nil {
		status := appErr.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		c.JSON(status, ErrorResponse{
			Error:   string(appErr.Code),
			Message: appErr.Message,
		})
		return
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: err.Error(),
	})
}
