package external

import (
	"context"

	"github.com/insightgrid/platform/config"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
)

// TransformerClient talks to the data-transformation service, which
// applies mapping rules and writes the output artifact.
type TransformerClient struct {
	client *Client
}

// NewTransformerClient creates a data transformer client.
func NewTransformerClient(cfg config.CollaboratorConfig, logger *logging.Logger, collector *metrics.Collector) *TransformerClient {
	return &TransformerClient{
		client: NewClient("transformer", cfg, logger, collector),
	}
}

// TransformData runs the transformation and returns the output file handle.
func (c *TransformerClient) TransformData(ctx context.Context, req entity.TransformRequest) (*entity.TransformResult, error) {
	var out entity.TransformResult
	if err := c.client.PostJSON(ctx, "/api/v1/transformations", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
