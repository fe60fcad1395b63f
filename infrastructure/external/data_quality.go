package external

import (
	"context"

	"github.com/insightgrid/platform/config"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/types"
)

// DataQualityClient talks to the data-quality service for record
// validation and cleanup-action synthesis.
type DataQualityClient struct {
	client *Client
}

// NewDataQualityClient creates a data-quality service client.
func NewDataQualityClient(cfg config.CollaboratorConfig, logger *logging.Logger, collector *metrics.Collector) *DataQualityClient {
	return &DataQualityClient{
		client: NewClient("data_quality", cfg, logger, collector),
	}
}

type validateRecordsRequest struct {
	Records      []entity.Record      `json:"records"`
	TargetSchema *entity.Schema       `json:"target_schema"`
	MappingRules []entity.MappingRule `json:"mapping_rules,omitempty"`
}

// ValidateRecords validates a record set against a target schema.
func (c *DataQualityClient) ValidateRecords(ctx context.Context, records []entity.Record, targetSchema *entity.Schema,
	mappingRules []entity.MappingRule) (*entity.QualityReport, error) {
	var out entity.QualityReport
	req := validateRecordsRequest{Records: records, TargetSchema: targetSchema, MappingRules: mappingRules}
	if err := c.client.PostJSON(ctx, "/api/v1/validations", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type cleanupActionsRequest struct {
	QualityReport *entity.QualityReport `json:"quality_report"`
	SourceFileID  types.FileID          `json:"source_file_id"`
}

// GenerateCleanupActions synthesizes cleanup actions from a quality report.
func (c *DataQualityClient) GenerateCleanupActions(ctx context.Context, report *entity.QualityReport,
	sourceFileID types.FileID) (*entity.CleanupActionResult, error) {
	var out entity.CleanupActionResult
	req := cleanupActionsRequest{QualityReport: report, SourceFileID: sourceFileID}
	if err := c.client.PostJSON(ctx, "/api/v1/cleanup-actions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReasonerClient talks to the quality reasoning service, which analyzes
// validation issues and enriches cleanup actions with rationale.
type ReasonerClient struct {
	client *Client
}

// NewReasonerClient creates a quality reasoner client.
func NewReasonerClient(cfg config.CollaboratorConfig, logger *logging.Logger, collector *metrics.Collector) *ReasonerClient {
	return &ReasonerClient{
		client: NewClient("reasoner", cfg, logger, collector),
	}
}

type analyzeIssuesRequest struct {
	QualityReport *entity.QualityReport `json:"quality_report"`
	SourceFileID  types.FileID          `json:"source_file_id"`
}

// AnalyzeQualityIssues requests an issue analysis for a quality report.
func (c *ReasonerClient) AnalyzeQualityIssues(ctx context.Context, report *entity.QualityReport,
	sourceFileID types.FileID) (*entity.QualityAnalysis, error) {
	var out entity.QualityAnalysis
	req := analyzeIssuesRequest{QualityReport: report, SourceFileID: sourceFileID}
	if err := c.client.PostJSON(ctx, "/api/v1/quality-analysis", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type enhanceActionsRequest struct {
	CleanupActions []entity.CleanupAction  `json:"cleanup_actions"`
	Analysis       *entity.QualityAnalysis `json:"analysis"`
}

// EnhanceCleanupActions enriches cleanup actions with reasoning output.
func (c *ReasonerClient) EnhanceCleanupActions(ctx context.Context, actions []entity.CleanupAction,
	analysis *entity.QualityAnalysis) ([]entity.CleanupAction, error) {
	var out struct {
		CleanupActions []entity.CleanupAction `json:"cleanup_actions"`
	}
	req := enhanceActionsRequest{CleanupActions: actions, Analysis: analysis}
	if err := c.client.PostJSON(ctx, "/api/v1/cleanup-actions/enhance", req, &out); err != nil {
		return nil, err
	}
	return out.CleanupActions, nil
}
