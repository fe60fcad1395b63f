package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/insightgrid/platform/domain/collaborator"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/domain/service/quality"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/types"
)

// QualityEvaluationUseCase runs the standalone data quality evaluation:
// parsed-file resolution, the local rule pass, an independent schema
// validation through the quality collaborator, completeness metrics, and
// reasoning-backed recommendations, compiled into one weighted report.
type QualityEvaluationUseCase struct {
	dataAccess  collaborator.DataAccess
	dataQuality collaborator.DataQualityValidator
	reasoner    collaborator.QualityReasoner

	logger  *logging.Logger
	metrics *metrics.Collector

	now func() time.Time
}

// NewQualityEvaluationUseCase creates the quality evaluation use case.
func NewQualityEvaluationUseCase(
	dataAccess collaborator.DataAccess,
	dataQuality collaborator.DataQualityValidator,
	reasoner collaborator.QualityReasoner,
	logger *logging.Logger,
	collector *metrics.Collector,
) *QualityEvaluationUseCase {
	return &QualityEvaluationUseCase{
		dataAccess:  dataAccess,
		dataQuality: dataQuality,
		reasoner:    reasoner,
		logger:      logger.WithComponent("quality_evaluation"),
		metrics:     collector,
		now:         time.Now,
	}
}

// Execute evaluates data quality for one parsed file. Expected failures
// (unresolvable parsed file, empty record set) come back through the
// result's Success/Err fields.
func (u *QualityEvaluationUseCase) Execute(ctx context.Context, req entity.QualityEvaluationRequest) (*entity.QualityResult, error) {
	if req.FileID == "" {
		return nil, errors.New("file_id is required")
	}

	reqCtx := req.RequestContext
	if reqCtx == nil {
		reqCtx = types.NewRequestContext()
	}

	logger := u.logger.WithRequestContext(reqCtx).WithFields(
		logging.String("file_id", string(req.FileID)))
	logger.Info("Starting data quality evaluation",
		logging.String("parsed_file_id", string(req.ParsedFileID)))

	start := u.now()

	if u.dataAccess == nil {
		return failedQualityResult(req.FileID, "data access service not available"), nil
	}

	parsedFileID := u.resolveParsedFileID(ctx, req.FileID, req.ParsedFileID)
	if parsedFileID == "" {
		return failedQualityResult(req.FileID,
			fmt.Sprintf("no parsed file found for file_id: %s", req.FileID)), nil
	}

	parsedFile, err := u.dataAccess.GetParsedFile(ctx, types.FileID(parsedFileID))
	if err != nil || parsedFile == nil {
		return failedQualityResult(req.FileID,
			fmt.Sprintf("parsed file not found: %s", parsedFileID)), nil
	}

	records := parsedFile.FileData.Records
	if len(records) == 0 {
		return failedQualityResult(req.FileID, "no records found in parsed file"), nil
	}

	validationRules := parsedFile.ParseResult.ValidationRules

	validationResults := quality.ApplyValidationRules(records, validationRules)
	schemaValidation := u.runSchemaValidation(ctx, records, validationRules, logger)
	qualityMetrics := quality.CompletenessMetrics(records)
	recommendations := u.generateRecommendations(ctx, req.FileID, validationResults, schemaValidation, qualityMetrics, logger)

	report := quality.CompileReport(validationResults, schemaValidation, qualityMetrics, recommendations, len(records))

	u.metrics.RecordQualityScore(report.OverallQualityScore)
	u.metrics.RecordPipelineOperation("quality_evaluation", "success", time.Since(start))
	logger.LogPipelineComplete("quality_evaluation", true, time.Since(start),
		logging.Float64("overall_quality_score", report.OverallQualityScore))

	return &entity.QualityResult{
		Success:       true,
		FileID:        req.FileID,
		ParsedFileID:  parsedFileID,
		QualityReport: &report,
		WorkflowID:    reqCtx.WorkflowID,
	}, nil
}

// resolveParsedFileID resolves a parsed file identifier: the explicit
// request value wins, then the parsed_file_id entry in the file metadata,
// then the first parsed file listed for the file.
func (u *QualityEvaluationUseCase) resolveParsedFileID(
	ctx context.Context,
	fileID types.FileID,
	explicit types.ParsedFileID,
) types.ParsedFileID {
	if explicit != "" {
		return explicit
	}

	fileInfo, err := u.dataAccess.GetFile(ctx, fileID)
	if err == nil && fileInfo != nil && fileInfo.Metadata != nil {
		if v, ok := fileInfo.Metadata["parsed_file_id"].(string); ok && v != "" {
			return types.ParsedFileID(v)
		}
	}

	parsedFiles, err := u.dataAccess.ListParsedFiles(ctx, fileID)
	if err == nil && len(parsedFiles) > 0 {
		return parsedFiles[0].ParsedFileID
	}

	return ""
}

// runSchemaValidation synthesizes a schema from the validation rules and
// runs the external validator against it with no mapping rules. Absent
// rules, validator, or a validator failure all yield nil, which the
// report compiler treats as a perfect partial score.
func (u *QualityEvaluationUseCase) runSchemaValidation(
	ctx context.Context,
	records []entity.Record,
	rules *entity.ValidationRules,
	logger *logging.Logger,
) *entity.SchemaValidation {
	if u.dataQuality == nil || rules.IsEmpty() {
		return nil
	}

	schema := quality.SchemaFromValidationRules(rules)
	if schema == nil {
		return nil
	}

	report, err := u.dataQuality.ValidateRecords(ctx, records, schema, nil)
	if err != nil || report == nil {
		logger.LogStageDegraded("schema_validation", err)
		u.metrics.RecordStageFailure("schema_validation", "degraded")
		return nil
	}

	return &entity.SchemaValidation{
		Success:           report.Success,
		ValidationResults: report.ValidationResults,
		Summary:           &report.Summary,
		Err:               report.Err,
	}
}

func (u *QualityEvaluationUseCase) generateRecommendations(
	ctx context.Context,
	fileID types.FileID,
	validationResults []entity.ValidationResult,
	schemaValidation *entity.SchemaValidation,
	qualityMetrics *entity.QualityMetrics,
	logger *logging.Logger,
) []entity.Recommendation {
	if u.reasoner == nil {
		return nil
	}

	interim := &entity.QualityReport{
		ValidationResults: validationResults,
		SchemaValidation:  schemaValidation,
		QualityMetrics:    qualityMetrics,
	}

	analysis, err := u.reasoner.AnalyzeQualityIssues(ctx, interim, fileID)
	if err != nil || analysis == nil {
		logger.LogStageDegraded("generate_recommendations", err)
		return nil
	}
	return analysis.Recommendations
}

func failedQualityResult(fileID types.FileID, msg string) *entity.QualityResult {
	return &entity.QualityResult{
		Success: false,
		FileID:  fileID,
		Err:     msg,
	}
}
