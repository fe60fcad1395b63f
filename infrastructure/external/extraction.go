package external

import (
	"context"

	"github.com/insightgrid/platform/config"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/types"
)

// FieldExtractorClient talks to the field-extraction service, which pulls
// named fields out of unstructured documents with citations.
type FieldExtractorClient struct {
	client *Client
}

// NewFieldExtractorClient creates a field extractor client.
func NewFieldExtractorClient(cfg config.CollaboratorConfig, logger *logging.Logger, collector *metrics.Collector) *FieldExtractorClient {
	return &FieldExtractorClient{
		client: NewClient("field_extractor", cfg, logger, collector),
	}
}

type extractFieldsRequest struct {
	FileID           types.FileID            `json:"file_id"`
	ExtractionSchema entity.ExtractionSchema `json:"extraction_schema"`
}

// ExtractFields runs field extraction against a stored document.
func (c *FieldExtractorClient) ExtractFields(ctx context.Context, fileID types.FileID, schema entity.ExtractionSchema) (*entity.ExtractionResult, error) {
	var out entity.ExtractionResult
	req := extractFieldsRequest{FileID: fileID, ExtractionSchema: schema}
	if err := c.client.PostJSON(ctx, "/api/v1/extractions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
