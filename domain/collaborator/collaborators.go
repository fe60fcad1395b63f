// Package collaborator defines the narrow interfaces through which the
// mapping pipeline talks to its external services. Every collaborator is
// individually optional: a nil handle or a failed call degrades the
// pipeline per the stage's policy instead of aborting it.
package collaborator

import (
	"context"

	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/shared/types"
)

// DataAccess resolves files, parsed files, and records data lineage.
type DataAccess interface {
	GetFile(ctx context.Context, id types.FileID) (*entity.FileInfo, error)
	GetParsedFile(ctx context.Context, id types.FileID) (*entity.ParsedFile, error)
	ListParsedFiles(ctx context.Context, fileID types.FileID) ([]entity.ParsedFileRef, error)
	TrackDataLineage(ctx context.Context, record *entity.LineageRecord) error
}

// SchemaExtractor derives field schemas from source and target artifacts.
type SchemaExtractor interface {
	ExtractSourceSchema(ctx context.Context, fileID types.FileID, mappingType entity.MappingType) (*entity.Schema, error)
	ExtractTargetSchema(ctx context.Context, fileID types.FileID) (*entity.Schema, error)
}

// SemanticIndex returns stored embeddings for a content item.
type SemanticIndex interface {
	GetEmbeddings(ctx context.Context, contentMetadataID string) ([]entity.Embedding, error)
}

// MappingRuleGenerator performs semantic plus structural field matching.
type MappingRuleGenerator interface {
	GenerateMappingRules(ctx context.Context, sourceSchema, targetSchema *entity.Schema,
		sourceEmbeddings, targetEmbeddings []entity.Embedding) ([]entity.MappingRule, error)
}

// FieldExtractor pulls fields out of unstructured sources.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, fileID types.FileID, schema entity.ExtractionSchema) (*entity.ExtractionResult, error)
}

// DataQualityValidator validates record sets and synthesizes cleanup
// actions from validation results.
type DataQualityValidator interface {
	ValidateRecords(ctx context.Context, records []entity.Record, targetSchema *entity.Schema,
		mappingRules []entity.MappingRule) (*entity.QualityReport, error)
	GenerateCleanupActions(ctx context.Context, report *entity.QualityReport,
		sourceFileID types.FileID) (*entity.CleanupActionResult, error)
}

// DataTransformer converts source data to the target format and writes
// the output artifact.
type DataTransformer interface {
	TransformData(ctx context.Context, req entity.TransformRequest) (*entity.TransformResult, error)
}

// QualityReasoner analyzes quality issues and enriches cleanup actions.
type QualityReasoner interface {
	AnalyzeQualityIssues(ctx context.Context, report *entity.QualityReport,
		sourceFileID types.FileID) (*entity.QualityAnalysis, error)
	EnhanceCleanupActions(ctx context.Context, actions []entity.CleanupAction,
		analysis *entity.QualityAnalysis) ([]entity.CleanupAction, error)
}

// SagaCoordinator is the external transaction coordinator. The pipeline
// only needs these three calls; compensation execution is entirely the
// coordinator's business.
type SagaCoordinator interface {
	DesignSagaJourney(ctx context.Context, req entity.DesignJourneyRequest) (*entity.SagaJourney, error)
	ExecuteSagaJourney(ctx context.Context, req entity.ExecuteJourneyRequest) (*entity.SagaExecution, error)
	AdvanceSagaStep(ctx context.Context, req entity.AdvanceStepRequest) error
}

// CoordinatorLocator discovers the saga coordinator. A discovery failure
// is a degradable event: the caller falls back to direct execution.
type CoordinatorLocator interface {
	Locate(ctx context.Context) (SagaCoordinator, error)
}

// PolicySource resolves the saga policy for an orchestrator.
type PolicySource interface {
	GetSagaPolicy(ctx context.Context, orchestratorName string, reqCtx *types.RequestContext) (*entity.SagaPolicy, error)
}

// LineageRecorder persists and publishes lineage records. Best-effort:
// failures are logged and swallowed by the pipeline.
type LineageRecorder interface {
	RecordLineage(ctx context.Context, record *entity.LineageRecord) error
}
