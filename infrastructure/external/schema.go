package external

import (
	"context"

	"github.com/insightgrid/platform/config"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/types"
)

// SchemaClient talks to the schema service, which derives field schemas
// from stored files.
type SchemaClient struct {
	client *Client
}

// NewSchemaClient creates a schema service client.
func NewSchemaClient(cfg config.CollaboratorConfig, logger *logging.Logger, collector *metrics.Collector) *SchemaClient {
	return &SchemaClient{
		client: NewClient("schema_service", cfg, logger, collector),
	}
}

type extractSchemaRequest struct {
	FileID      types.FileID       `json:"file_id"`
	SchemaType  string             `json:"schema_type"`
	MappingType entity.MappingType `json:"mapping_type,omitempty"`
}

// ExtractSourceSchema derives the source schema. For unstructured sources
// the schema service infers fields from document content.
func (c *SchemaClient) ExtractSourceSchema(ctx context.Context, fileID types.FileID, mappingType entity.MappingType) (*entity.Schema, error) {
	var out entity.Schema
	req := extractSchemaRequest{FileID: fileID, SchemaType: "source", MappingType: mappingType}
	if err := c.client.PostJSON(ctx, "/api/v1/schemas/extract", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExtractTargetSchema derives the target schema. Targets are always
// structured.
func (c *SchemaClient) ExtractTargetSchema(ctx context.Context, fileID types.FileID) (*entity.Schema, error) {
	var out entity.Schema
	req := extractSchemaRequest{FileID: fileID, SchemaType: "target"}
	if err := c.client.PostJSON(ctx, "/api/v1/schemas/extract", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
