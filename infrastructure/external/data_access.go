package external

import (
	"context"
	"fmt"

	"github.com/insightgrid/platform/config"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/types"
)

// DataAccessClient talks to the data-access service for file metadata,
// parsed-file content, and lineage tracking.
type DataAccessClient struct {
	client *Client
}

// NewDataAccessClient creates a data-access service client.
func NewDataAccessClient(cfg config.CollaboratorConfig, logger *logging.Logger, collector *metrics.Collector) *DataAccessClient {
	return &DataAccessClient{
		client: NewClient("data_access", cfg, logger, collector),
	}
}

// GetFile fetches file metadata by identifier.
func (c *DataAccessClient) GetFile(ctx context.Context, id types.FileID) (*entity.FileInfo, error) {
	var out entity.FileInfo
	if err := c.client.GetJSON(ctx, fmt.Sprintf("/api/v1/files/%s", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetParsedFile fetches a parsed file with its records and any validation
// rules the parser recovered.
func (c *DataAccessClient) GetParsedFile(ctx context.Context, id types.FileID) (*entity.ParsedFile, error) {
	var out entity.ParsedFile
	if err := c.client.GetJSON(ctx, fmt.Sprintf("/api/v1/parsed-files/%s", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListParsedFiles lists the parsed files derived from a source file,
// newest first.
func (c *DataAccessClient) ListParsedFiles(ctx context.Context, fileID types.FileID) ([]entity.ParsedFileRef, error) {
	var out struct {
		ParsedFiles []entity.ParsedFileRef `json:"parsed_files"`
	}
	if err := c.client.GetJSON(ctx, fmt.Sprintf("/api/v1/files/%s/parsed-files", fileID), &out); err != nil {
		return nil, err
	}
	return out.ParsedFiles, nil
}

// TrackDataLineage records a lineage entry with the data-access service.
func (c *DataAccessClient) TrackDataLineage(ctx context.Context, record *entity.LineageRecord) error {
	return c.client.PostJSON(ctx, "/api/v1/lineage", record, nil)
}
