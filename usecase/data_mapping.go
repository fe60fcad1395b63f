package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/insightgrid/platform/domain/collaborator"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/types"
)

// DataMappingUseCase orchestrates the end-to-end data mapping pipeline:
// type detection, schema and embedding acquisition, rule generation,
// extraction or transformation, quality validation, cleanup actions, and
// lineage recording. Every collaborator is constructor-injected and
// individually optional; the degradation policy per stage decides whether
// a failure is absorbed or carried into the result payload.
type DataMappingUseCase struct {
	dataAccess     collaborator.DataAccess
	schemas        collaborator.SchemaExtractor
	semanticIndex  collaborator.SemanticIndex
	ruleGenerator  collaborator.MappingRuleGenerator
	fieldExtractor collaborator.FieldExtractor
	dataQuality    collaborator.DataQualityValidator
	transformer    collaborator.DataTransformer
	reasoner       collaborator.QualityReasoner
	lineage        collaborator.LineageRecorder
	saga           *SagaExecutor

	logger  *logging.Logger
	metrics *metrics.Collector

	now func() time.Time
}

// NewDataMappingUseCase creates the data mapping use case.
func NewDataMappingUseCase(
	dataAccess collaborator.DataAccess,
	schemas collaborator.SchemaExtractor,
	semanticIndex collaborator.SemanticIndex,
	ruleGenerator collaborator.MappingRuleGenerator,
	fieldExtractor collaborator.FieldExtractor,
	dataQuality collaborator.DataQualityValidator,
	transformer collaborator.DataTransformer,
	reasoner collaborator.QualityReasoner,
	lineage collaborator.LineageRecorder,
	saga *SagaExecutor,
	logger *logging.Logger,
	collector *metrics.Collector,
) *DataMappingUseCase {
	return &DataMappingUseCase{
		dataAccess:     dataAccess,
		schemas:        schemas,
		semanticIndex:  semanticIndex,
		ruleGenerator:  ruleGenerator,
		fieldExtractor: fieldExtractor,
		dataQuality:    dataQuality,
		transformer:    transformer,
		reasoner:       reasoner,
		lineage:        lineage,
		saga:           saga,
		logger:         logger.WithComponent("data_mapping"),
		metrics:        collector,
		now:            time.Now,
	}
}

// Execute runs one mapping invocation, optionally under saga guarantees.
// Expected failures are flattened into the result's Success/Err fields;
// the returned error is reserved for request-level defects such as a
// missing source or target identifier.
func (u *DataMappingUseCase) Execute(ctx context.Context, req entity.MappingRequest) (*entity.MappingResult, error) {
	if req.SourceFileID == "" || req.TargetFileID == "" {
		return nil, errors.New("source_file_id and target_file_id are required")
	}

	reqCtx := req.RequestContext
	if reqCtx == nil {
		reqCtx = types.NewRequestContext()
	}

	mappingID := entity.NewMappingID(u.now())
	logger := u.logger.WithRequestContext(reqCtx).WithFields(
		logging.String("mapping_id", string(mappingID)))
	logger.Info("Starting data mapping pipeline",
		logging.String("source_file_id", string(req.SourceFileID)),
		logging.String("target_file_id", string(req.TargetFileID)))

	start := u.now()

	outcome, err := u.saga.Execute(ctx, entity.OperationDataMapping, entity.DataMappingMilestones, reqCtx,
		func(ctx context.Context) (StepOutcome, error) {
			return u.run(ctx, mappingID, req, reqCtx, logger)
		})
	if err != nil {
		logger.LogPipelineComplete(entity.OperationDataMapping, false, time.Since(start))
		u.metrics.RecordPipelineOperation(entity.OperationDataMapping, "failed", time.Since(start))
		return &entity.MappingResult{
			Success:   false,
			MappingID: mappingID,
			Err:       err.Error(),
		}, nil
	}

	result := outcome.(*entity.MappingResult)
	logger.LogPipelineComplete(entity.OperationDataMapping, result.Success, time.Since(start))
	u.metrics.RecordPipelineOperation(entity.OperationDataMapping, "success", time.Since(start))
	return result, nil
}

// run executes the pipeline stages in order. It only returns an error for
// defects that should trip saga compensation; stage-level failures are
// carried in the result payload.
func (u *DataMappingUseCase) run(
	ctx context.Context,
	mappingID types.MappingID,
	req entity.MappingRequest,
	reqCtx *types.RequestContext,
	logger *logging.Logger,
) (*entity.MappingResult, error) {
	mappingType := u.timedStageType(ctx, "detect_mapping_type", req.SourceFileID, req.TargetFileID)
	logger.Info("Mapping type detected", logging.String("mapping_type", string(mappingType)))

	sourceSchema := u.extractSourceSchema(ctx, req.SourceFileID, mappingType)
	targetSchema := u.extractTargetSchema(ctx, req.TargetFileID)

	sourceEmbeddings := u.getEmbeddings(ctx, req.SourceFileID)
	targetEmbeddings := u.getEmbeddings(ctx, req.TargetFileID)

	mappingRules := u.generateMappingRules(ctx, sourceSchema, targetSchema, sourceEmbeddings, targetEmbeddings)

	var sourceData *entity.SourceData
	if mappingType == entity.MappingTypeUnstructuredToStructured {
		sourceData = u.extractFieldsFromUnstructured(ctx, req.SourceFileID, mappingRules)
	} else {
		sourceData = u.getStructuredSourceData(ctx, req.SourceFileID)
	}

	var qualityReport *entity.QualityReport
	if mappingType == entity.MappingTypeStructuredToStructured {
		qualityReport = u.validateDataQuality(ctx, sourceData, targetSchema, mappingRules)
		if qualityReport != nil && qualityReport.Success {
			u.metrics.RecordQualityScore(qualityReport.OverallQualityScore)
		}
	}

	transformed := u.transformData(ctx, sourceData, mappingRules, targetSchema, qualityReport)

	var outputFileID types.FileID
	if transformed.Success {
		outputFileID = transformed.OutputFileID
	}

	var cleanupActions []entity.CleanupAction
	if qualityReport != nil && qualityReport.HasIssues {
		cleanupActions = u.generateCleanupActions(ctx, qualityReport, req.SourceFileID)
	}

	u.trackLineage(ctx, req.SourceFileID, req.TargetFileID, mappingID, mappingRules, qualityReport, reqCtx)

	citations := map[string]string{}
	confidenceScores := map[string]float64{}
	if mappingType == entity.MappingTypeUnstructuredToStructured {
		if sourceData.Citations != nil {
			citations = sourceData.Citations
		}
		if sourceData.ConfidenceScores != nil {
			confidenceScores = sourceData.ConfidenceScores
		}
	}

	var workflowID types.WorkflowID
	if reqCtx != nil {
		workflowID = reqCtx.WorkflowID
	}

	return &entity.MappingResult{
		Success:          true,
		MappingID:        mappingID,
		MappingType:      mappingType,
		MappingRules:     mappingRules,
		MappedData:       transformed,
		DataQuality:      qualityReport,
		CleanupActions:   cleanupActions,
		OutputFileID:     outputFileID,
		Citations:        citations,
		ConfidenceScores: confidenceScores,
		Metadata: entity.MappingMetadata{
			SourceFileID:     req.SourceFileID,
			TargetFileID:     req.TargetFileID,
			MappingTimestamp: u.now().UTC(),
			WorkflowID:       workflowID,
		},
	}, nil
}

func (u *DataMappingUseCase) timedStageType(ctx context.Context, stage string, sourceFileID, targetFileID types.FileID) entity.MappingType {
	start := u.now()
	mappingType := u.detectMappingType(ctx, sourceFileID, targetFileID)
	u.metrics.RecordStageDuration(stage, time.Since(start))
	return mappingType
}

// extractSourceSchema degrades to an empty schema carrying the error; the
// rule generator works with whatever fields survive.
func (u *DataMappingUseCase) extractSourceSchema(ctx context.Context, fileID types.FileID, mappingType entity.MappingType) *entity.Schema {
	if u.schemas == nil {
		return &entity.Schema{SchemaType: string(mappingType), Fields: []entity.FieldDescriptor{}, Err: "schema extraction service not available"}
	}
	schema, err := u.schemas.ExtractSourceSchema(ctx, fileID, mappingType)
	if err != nil || schema == nil {
		u.logger.LogStageDegraded("analyze_source", err)
		u.metrics.RecordStageFailure("analyze_source", "degraded")
		return &entity.Schema{SchemaType: string(mappingType), Fields: []entity.FieldDescriptor{}, Err: errString(err)}
	}
	return schema
}

func (u *DataMappingUseCase) extractTargetSchema(ctx context.Context, fileID types.FileID) *entity.Schema {
	if u.schemas == nil {
		return &entity.Schema{SchemaType: "structured", Fields: []entity.FieldDescriptor{}, Err: "schema extraction service not available"}
	}
	schema, err := u.schemas.ExtractTargetSchema(ctx, fileID)
	if err != nil || schema == nil {
		u.logger.LogStageDegraded("analyze_target", err)
		u.metrics.RecordStageFailure("analyze_target", "degraded")
		return &entity.Schema{SchemaType: "structured", Fields: []entity.FieldDescriptor{}, Err: errString(err)}
	}
	return schema
}

// getEmbeddings resolves the content metadata identifier through the
// parsed file, then fetches embeddings. Every miss returns an empty set.
func (u *DataMappingUseCase) getEmbeddings(ctx context.Context, fileID types.FileID) []entity.Embedding {
	if u.dataAccess == nil || u.semanticIndex == nil {
		return nil
	}
	parsedFile, err := u.dataAccess.GetParsedFile(ctx, fileID)
	if err != nil || parsedFile == nil {
		u.logger.LogStageDegraded("get_embeddings", err, logging.String("file_id", string(fileID)))
		return nil
	}
	if parsedFile.ContentMetadataID == "" {
		return nil
	}
	embeddings, err := u.semanticIndex.GetEmbeddings(ctx, parsedFile.ContentMetadataID)
	if err != nil {
		u.logger.LogStageDegraded("get_embeddings", err, logging.String("file_id", string(fileID)))
		return nil
	}
	return embeddings
}

func (u *DataMappingUseCase) generateMappingRules(
	ctx context.Context,
	sourceSchema, targetSchema *entity.Schema,
	sourceEmbeddings, targetEmbeddings []entity.Embedding,
) []entity.MappingRule {
	if u.ruleGenerator == nil {
		return nil
	}
	rules, err := u.ruleGenerator.GenerateMappingRules(ctx, sourceSchema, targetSchema, sourceEmbeddings, targetEmbeddings)
	if err != nil {
		u.logger.LogStageDegraded("generate_mapping", err)
		u.metrics.RecordStageFailure("generate_mapping", "degraded")
		return nil
	}
	return rules
}

// extractFieldsFromUnstructured builds the extraction contract from the
// mapping rules and runs the field extractor. A failed extraction is a
// stage failure carried in the source data payload, not an abort.
func (u *DataMappingUseCase) extractFieldsFromUnstructured(
	ctx context.Context,
	fileID types.FileID,
	mappingRules []entity.MappingRule,
) *entity.SourceData {
	if u.fieldExtractor == nil {
		return &entity.SourceData{Success: false, Err: "field extraction service not available"}
	}

	fields := make([]entity.FieldDescriptor, 0, len(mappingRules))
	for _, rule := range mappingRules {
		fields = append(fields, entity.FieldDescriptor{
			Name:        rule.SourceField,
			Type:        "string",
			Required:    false,
			Description: fmt.Sprintf("Extract %s", rule.SourceField),
		})
	}

	result, err := u.fieldExtractor.ExtractFields(ctx, fileID, entity.ExtractionSchema{Fields: fields})
	if err != nil {
		u.logger.LogStageFailed("apply_mapping", err)
		u.metrics.RecordStageFailure("apply_mapping", "failed")
		return &entity.SourceData{Success: false, Err: err.Error()}
	}
	if result == nil || !result.Success {
		errMsg := "field extraction failed"
		if result != nil && result.Err != "" {
			errMsg = result.Err
		}
		u.logger.LogStageFailed("apply_mapping", errors.New(errMsg))
		u.metrics.RecordStageFailure("apply_mapping", "failed")
		return &entity.SourceData{Success: false, Err: errMsg}
	}

	citations := make(map[string]string, len(result.ExtractedFields))
	confidenceScores := make(map[string]float64, len(result.ExtractedFields))
	for name, field := range result.ExtractedFields {
		citations[name] = field.Citation
		confidenceScores[name] = field.Confidence
	}

	return &entity.SourceData{
		Success:          true,
		ExtractedFields:  result.ExtractedFields,
		Citations:        citations,
		ConfidenceScores: confidenceScores,
	}
}

// getStructuredSourceData fetches the parsed source file and normalizes
// the parser's raw shape into a flat record list.
func (u *DataMappingUseCase) getStructuredSourceData(ctx context.Context, fileID types.FileID) *entity.SourceData {
	if u.dataAccess == nil {
		return &entity.SourceData{Success: false, Err: "data access service not available"}
	}
	parsedFile, err := u.dataAccess.GetParsedFile(ctx, fileID)
	if err != nil {
		u.logger.LogStageFailed("apply_mapping", err)
		u.metrics.RecordStageFailure("apply_mapping", "failed")
		return &entity.SourceData{Success: false, Err: err.Error()}
	}
	if parsedFile == nil {
		return &entity.SourceData{Success: false, Err: fmt.Sprintf("parsed file not found: %s", fileID)}
	}

	records := normalizeRecords(parsedFile)
	return &entity.SourceData{
		Success: true,
		Records: records,
		Schema:  parsedFile.Schema,
	}
}

// normalizeRecords flattens the parser's raw shapes into records: a plain
// record list, a columns+rows table (rows zipped against column names and
// given a record_id), a wrapped records key, or a single record. Falls
// back to FileData.Records when no raw payload is present.
func normalizeRecords(parsedFile *entity.ParsedFile) []entity.Record {
	if parsedFile.ParsedData == nil {
		return parsedFile.FileData.Records
	}

	switch data := parsedFile.ParsedData.(type) {
	case []interface{}:
		records := make([]entity.Record, 0, len(data))
		for _, item := range data {
			if m, ok := item.(map[string]interface{}); ok {
				records = append(records, entity.Record(m))
			}
		}
		return records
	case map[string]interface{}:
		if cols, hasCols := data["columns"]; hasCols {
			if rows, hasRows := data["rows"]; hasRows {
				return recordsFromTable(cols, rows)
			}
		}
		if wrapped, ok := data["records"].([]interface{}); ok {
			records := make([]entity.Record, 0, len(wrapped))
			for _, item := range wrapped {
				if m, ok := item.(map[string]interface{}); ok {
					records = append(records, entity.Record(m))
				}
			}
			return records
		}
		return []entity.Record{entity.Record(data)}
	default:
		return parsedFile.FileData.Records
	}
}

func recordsFromTable(cols, rows interface{}) []entity.Record {
	columnList, ok := cols.([]interface{})
	if !ok {
		return nil
	}
	columns := make([]string, 0, len(columnList))
	for _, c := range columnList {
		columns = append(columns, fmt.Sprintf("%v", c))
	}

	rowList, ok := rows.([]interface{})
	if !ok {
		return nil
	}

	records := make([]entity.Record, 0, len(rowList))
	for _, row := range rowList {
		var record entity.Record
		switch r := row.(type) {
		case []interface{}:
			record = make(entity.Record, len(columns))
			for i := 0; i < len(columns) && i < len(r); i++ {
				record[columns[i]] = r[i]
			}
		case map[string]interface{}:
			record = entity.Record(r)
		default:
			continue
		}
		if _, ok := record["record_id"]; !ok {
			record["record_id"] = fmt.Sprintf("record_%d", len(records))
		}
		records = append(records, record)
	}
	return records
}

// validateDataQuality runs the external validator on the extracted
// records. An empty record set short-circuits to a perfect report without
// invoking the validator at all.
func (u *DataMappingUseCase) validateDataQuality(
	ctx context.Context,
	sourceData *entity.SourceData,
	targetSchema *entity.Schema,
	mappingRules []entity.MappingRule,
) *entity.QualityReport {
	if u.dataQuality == nil {
		return &entity.QualityReport{Success: false, Err: "data quality service not available"}
	}

	if len(sourceData.Records) == 0 {
		return &entity.QualityReport{
			Success:             true,
			OverallQualityScore: 1.0,
			HasIssues:           false,
			ValidationResults:   []entity.ValidationResult{},
			Summary: entity.QualitySummary{
				TotalRecords:     0,
				ValidRecords:     0,
				InvalidRecords:   0,
				IssuesByType:     map[string]int{},
				IssuesBySeverity: map[types.Severity]int{},
			},
		}
	}

	report, err := u.dataQuality.ValidateRecords(ctx, sourceData.Records, targetSchema, mappingRules)
	if err != nil {
		u.logger.LogStageFailed("validate", err)
		u.metrics.RecordStageFailure("validate", "failed")
		return &entity.QualityReport{Success: false, Err: err.Error()}
	}
	return report
}

// transformData selects the output format from the target schema's file
// type and runs the transformer. Failures are carried in the payload.
func (u *DataMappingUseCase) transformData(
	ctx context.Context,
	sourceData *entity.SourceData,
	mappingRules []entity.MappingRule,
	targetSchema *entity.Schema,
	qualityReport *entity.QualityReport,
) *entity.TransformResult {
	if u.transformer == nil {
		return &entity.TransformResult{Success: false, Err: "data transformation service not available"}
	}

	outputFormat := "excel"
	switch strings.ToLower(targetSchema.FileType) {
	case "json", "jsonl":
		outputFormat = "json"
	case "csv":
		outputFormat = "csv"
	}

	result, err := u.transformer.TransformData(ctx, entity.TransformRequest{
		SourceData:    sourceData,
		MappingRules:  mappingRules,
		TargetSchema:  targetSchema,
		OutputFormat:  outputFormat,
		QualityReport: qualityReport,
	})
	if err != nil {
		u.logger.LogStageFailed("apply_mapping", err)
		u.metrics.RecordStageFailure("apply_mapping", "failed")
		return &entity.TransformResult{Success: false, Err: err.Error()}
	}
	return result
}

// generateCleanupActions delegates action synthesis to the quality
// validator and optionally enriches the actions through the reasoning
// collaborator. Enrichment failure keeps the base actions.
func (u *DataMappingUseCase) generateCleanupActions(
	ctx context.Context,
	qualityReport *entity.QualityReport,
	sourceFileID types.FileID,
) []entity.CleanupAction {
	if u.dataQuality == nil {
		return nil
	}

	result, err := u.dataQuality.GenerateCleanupActions(ctx, qualityReport, sourceFileID)
	if err != nil || result == nil || !result.Success {
		u.logger.LogStageDegraded("generate_cleanup_actions", err)
		u.metrics.RecordStageFailure("generate_cleanup_actions", "degraded")
		return nil
	}
	actions := result.CleanupActions

	if u.reasoner != nil {
		analysis, err := u.reasoner.AnalyzeQualityIssues(ctx, qualityReport, sourceFileID)
		if err != nil {
			u.logger.LogStageDegraded("enhance_cleanup_actions", err)
			return actions
		}
		enhanced, err := u.reasoner.EnhanceCleanupActions(ctx, actions, analysis)
		if err != nil {
			u.logger.LogStageDegraded("enhance_cleanup_actions", err)
			return actions
		}
		actions = enhanced
	}

	return actions
}

// trackLineage records provenance best-effort; a failed write never fails
// the mapping.
func (u *DataMappingUseCase) trackLineage(
	ctx context.Context,
	sourceFileID, targetFileID types.FileID,
	mappingID types.MappingID,
	mappingRules []entity.MappingRule,
	qualityReport *entity.QualityReport,
	reqCtx *types.RequestContext,
) {
	if u.lineage == nil {
		return
	}

	var qualityScore *float64
	if qualityReport != nil && qualityReport.Success {
		score := qualityReport.OverallQualityScore
		qualityScore = &score
	}

	var workflowID types.WorkflowID
	if reqCtx != nil {
		workflowID = reqCtx.WorkflowID
	}

	record := &entity.LineageRecord{
		MappingID:          mappingID,
		SourceFileID:       sourceFileID,
		TargetFileID:       targetFileID,
		TransformationType: "data_mapping",
		MappingRules:       mappingRules,
		QualityScore:       qualityScore,
		QualityReport:      qualityReport,
		WorkflowID:         workflowID,
		CreatedAt:          u.now().UTC(),
	}

	if err := u.lineage.RecordLineage(ctx, record); err != nil {
		u.logger.LogStageDegraded("track_lineage", err, logging.String("mapping_id", string(mappingID)))
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
