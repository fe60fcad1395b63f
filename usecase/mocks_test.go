package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/insightgrid/platform/domain/collaborator"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/shared/types"
)

type mockDataAccess struct {
	mock.Mock
}

func (m *mockDataAccess) GetFile(ctx context.Context, id types.FileID) (*entity.FileInfo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.FileInfo), args.Error(1)
}

func (m *mockDataAccess) GetParsedFile(ctx context.Context, id types.FileID) (*entity.ParsedFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ParsedFile), args.Error(1)
}

func (m *mockDataAccess) ListParsedFiles(ctx context.Context, fileID types.FileID) ([]entity.ParsedFileRef, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ParsedFileRef), args.Error(1)
}

func (m *mockDataAccess) TrackDataLineage(ctx context.Context, record *entity.LineageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

type mockSchemaExtractor struct {
	mock.Mock
}

func (m *mockSchemaExtractor) ExtractSourceSchema(ctx context.Context, fileID types.FileID, mappingType entity.MappingType) (*entity.Schema, error) {
	args := m.Called(ctx, fileID, mappingType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Schema), args.Error(1)
}

func (m *mockSchemaExtractor) ExtractTargetSchema(ctx context.Context, fileID types.FileID) (*entity.Schema, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Schema), args.Error(1)
}

type mockSemanticIndex struct {
	mock.Mock
}

func (m *mockSemanticIndex) GetEmbeddings(ctx context.Context, contentMetadataID string) ([]entity.Embedding, error) {
	args := m.Called(ctx, contentMetadataID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Embedding), args.Error(1)
}

type mockRuleGenerator struct {
	mock.Mock
}

func (m *mockRuleGenerator) GenerateMappingRules(ctx context.Context, sourceSchema, targetSchema *entity.Schema,
	sourceEmbeddings, targetEmbeddings []entity.Embedding) ([]entity.MappingRule, error) {
	args := m.Called(ctx, sourceSchema, targetSchema, sourceEmbeddings, targetEmbeddings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.MappingRule), args.Error(1)
}

type mockFieldExtractor struct {
	mock.Mock
}

func (m *mockFieldExtractor) ExtractFields(ctx context.Context, fileID types.FileID, schema entity.ExtractionSchema) (*entity.ExtractionResult, error) {
	args := m.Called(ctx, fileID, schema)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ExtractionResult), args.Error(1)
}

type mockDataQualityValidator struct {
	mock.Mock
}

func (m *mockDataQualityValidator) ValidateRecords(ctx context.Context, records []entity.Record, targetSchema *entity.Schema,
	mappingRules []entity.MappingRule) (*entity.QualityReport, error) {
	args := m.Called(ctx, records, targetSchema, mappingRules)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.QualityReport), args.Error(1)
}

func (m *mockDataQualityValidator) GenerateCleanupActions(ctx context.Context, report *entity.QualityReport,
	sourceFileID types.FileID) (*entity.CleanupActionResult, error) {
	args := m.Called(ctx, report, sourceFileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CleanupActionResult), args.Error(1)
}

type mockTransformer struct {
	mock.Mock
}

func (m *mockTransformer) TransformData(ctx context.Context, req entity.TransformRequest) (*entity.TransformResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TransformResult), args.Error(1)
}

type mockQualityReasoner struct {
	mock.Mock
}

func (m *mockQualityReasoner) AnalyzeQualityIssues(ctx context.Context, report *entity.QualityReport,
	sourceFileID types.FileID) (*entity.QualityAnalysis, error) {
	args := m.Called(ctx, report, sourceFileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.QualityAnalysis), args.Error(1)
}

func (m *mockQualityReasoner) EnhanceCleanupActions(ctx context.Context, actions []entity.CleanupAction,
	analysis *entity.QualityAnalysis) ([]entity.CleanupAction, error) {
	args := m.Called(ctx, actions, analysis)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CleanupAction), args.Error(1)
}

type mockSagaCoordinator struct {
	mock.Mock
}

func (m *mockSagaCoordinator) DesignSagaJourney(ctx context.Context, req entity.DesignJourneyRequest) (*entity.SagaJourney, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SagaJourney), args.Error(1)
}

func (m *mockSagaCoordinator) ExecuteSagaJourney(ctx context.Context, req entity.ExecuteJourneyRequest) (*entity.SagaExecution, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SagaExecution), args.Error(1)
}

func (m *mockSagaCoordinator) AdvanceSagaStep(ctx context.Context, req entity.AdvanceStepRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

type mockCoordinatorLocator struct {
	mock.Mock
}

func (m *mockCoordinatorLocator) Locate(ctx context.Context) (collaborator.SagaCoordinator, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(collaborator.SagaCoordinator), args.Error(1)
}

type mockPolicySource struct {
	mock.Mock
}

func (m *mockPolicySource) GetSagaPolicy(ctx context.Context, orchestratorName string, reqCtx *types.RequestContext) (*entity.SagaPolicy, error) {
	args := m.Called(ctx, orchestratorName, reqCtx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SagaPolicy), args.Error(1)
}

type mockLineageRecorder struct {
	mock.Mock
}

func (m *mockLineageRecorder) RecordLineage(ctx context.Context, record *entity.LineageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}
