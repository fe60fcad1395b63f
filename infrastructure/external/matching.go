package external

import (
	"context"
	"fmt"

	"github.com/insightgrid/platform/config"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
)

// SemanticIndexClient talks to the semantic index, which stores field
// embeddings keyed by content metadata identifier.
type SemanticIndexClient struct {
	client *Client
}

// NewSemanticIndexClient creates a semantic index client.
func NewSemanticIndexClient(cfg config.CollaboratorConfig, logger *logging.Logger, collector *metrics.Collector) *SemanticIndexClient {
	return &SemanticIndexClient{
		client: NewClient("semantic_index", cfg, logger, collector),
	}
}

// GetEmbeddings fetches the stored field embeddings for a content item.
func (c *SemanticIndexClient) GetEmbeddings(ctx context.Context, contentMetadataID string) ([]entity.Embedding, error) {
	var out struct {
		Embeddings []entity.Embedding `json:"embeddings"`
	}
	path := fmt.Sprintf("/api/v1/embeddings/%s", contentMetadataID)
	if err := c.client.GetJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Embeddings, nil
}

// RuleGeneratorClient talks to the mapping-rule generation service, which
// matches source fields to target fields using schemas and embeddings.
type RuleGeneratorClient struct {
	client *Client
}

// NewRuleGeneratorClient creates a rule generator client.
func NewRuleGeneratorClient(cfg config.CollaboratorConfig, logger *logging.Logger, collector *metrics.Collector) *RuleGeneratorClient {
	return &RuleGeneratorClient{
		client: NewClient("rule_generator", cfg, logger, collector),
	}
}

type generateRulesRequest struct {
	SourceSchema     *entity.Schema     `json:"source_schema"`
	TargetSchema     *entity.Schema     `json:"target_schema"`
	SourceEmbeddings []entity.Embedding `json:"source_embeddings,omitempty"`
	TargetEmbeddings []entity.Embedding `json:"target_embeddings,omitempty"`
}

// GenerateMappingRules requests field mapping rules for a schema pair.
func (c *RuleGeneratorClient) GenerateMappingRules(ctx context.Context, sourceSchema, targetSchema *entity.Schema,
	sourceEmbeddings, targetEmbeddings []entity.Embedding) ([]entity.MappingRule, error) {
	var out struct {
		MappingRules []entity.MappingRule `json:"mapping_rules"`
	}
	req := generateRulesRequest{
		SourceSchema:     sourceSchema,
		TargetSchema:     targetSchema,
		SourceEmbeddings: sourceEmbeddings,
		TargetEmbeddings: targetEmbeddings,
	}
	if err := c.client.PostJSON(ctx, "/api/v1/mapping-rules/generate", req, &out); err != nil {
		return nil, err
	}
	return out.MappingRules, nil
}
