package usecase

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/insightgrid/platform/domain/collaborator"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/types"
)

func newQualityEvaluation(dataAccess collaborator.DataAccess, dataQuality collaborator.DataQualityValidator, reasoner collaborator.QualityReasoner) *QualityEvaluationUseCase {
	logger := logging.NewDevelopmentLogger("quality-test")
	collector := metrics.NewCollector("quality_test")
	return NewQualityEvaluationUseCase(dataAccess, dataQuality, reasoner, logger, collector)
}

func statusParsedFile() *entity.ParsedFile {
	records := make([]entity.Record, 0, 10)
	for i := 0; i < 7; i++ {
		records = append(records, entity.Record{"STATUS": "A"})
	}
	for i := 0; i < 3; i++ {
		records = append(records, entity.Record{"STATUS": "X"})
	}
	return &entity.ParsedFile{
		ParsedFileID: "pf-1",
		ParseResult: entity.ParseResult{
			ValidationRules: &entity.ValidationRules{
				Level88Fields: []entity.Level88Rule{
					{FieldName: "STATUS", Value: "A", ConditionName: "ACTIVE"},
				},
			},
		},
		FileData: entity.FileData{Records: records},
	}
}

func TestQualityEvaluation_EndToEnd(t *testing.T) {
	dataAccess := new(mockDataAccess)
	dataAccess.On("GetParsedFile", mock.Anything, types.FileID("pf-1")).
		Return(statusParsedFile(), nil)

	dataQuality := new(mockDataQualityValidator)
	dataQuality.On("ValidateRecords", mock.Anything, mock.Anything, mock.MatchedBy(func(schema *entity.Schema) bool {
		// Schema synthesized from the rules: STATUS required with A allowed.
		return len(schema.Fields) == 1 && schema.Fields[0].Name == "STATUS" && schema.Fields[0].Required
	}), mock.Anything).Return(&entity.QualityReport{
		Success: true,
		Summary: entity.QualitySummary{TotalRecords: 10, ValidRecords: 7, InvalidRecords: 3},
	}, nil)

	reasoner := new(mockQualityReasoner)
	reasoner.On("AnalyzeQualityIssues", mock.Anything, mock.Anything, types.FileID("file-1")).
		Return(&entity.QualityAnalysis{Recommendations: []entity.Recommendation{
			{Description: "Review STATUS values outside the ACTIVE set"},
		}}, nil)

	u := newQualityEvaluation(dataAccess, dataQuality, reasoner)
	result, err := u.Execute(context.Background(), entity.QualityEvaluationRequest{
		FileID:       "file-1",
		ParsedFileID: "pf-1",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, types.ParsedFileID("pf-1"), result.ParsedFileID)

	report := result.QualityReport
	require.NotNil(t, report)
	assert.Equal(t, 10, report.Summary.TotalRecords)
	assert.Equal(t, 7, report.Summary.ValidRecords)
	assert.Equal(t, 3, report.Summary.InvalidRecords)
	assert.True(t, report.HasIssues)
	// All records are fully populated, so completeness is perfect:
	// 0.7*0.4 + 0.7*0.3 + 1.0*0.3
	assert.InDelta(t, 0.79, report.OverallQualityScore, 1e-9)
	require.Len(t, report.Recommendations, 1)

	for _, vr := range report.ValidationResults {
		if !vr.IsValid {
			require.Len(t, vr.Issues, 1)
			assert.Equal(t, []string{"A"}, vr.Issues[0].AllowedValues)
			assert.Equal(t, types.SeverityError, vr.Issues[0].Severity)
		}
	}
}

func TestQualityEvaluation_ResolvesParsedFileFromMetadata(t *testing.T) {
	dataAccess := new(mockDataAccess)
	dataAccess.On("GetFile", mock.Anything, types.FileID("file-1")).
		Return(&entity.FileInfo{
			FileID:   "file-1",
			Metadata: map[string]interface{}{"parsed_file_id": "pf-meta"},
		}, nil)
	dataAccess.On("GetParsedFile", mock.Anything, types.FileID("pf-meta")).
		Return(statusParsedFile(), nil)

	u := newQualityEvaluation(dataAccess, nil, nil)
	result, err := u.Execute(context.Background(), entity.QualityEvaluationRequest{FileID: "file-1"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, types.ParsedFileID("pf-meta"), result.ParsedFileID)
	dataAccess.AssertNotCalled(t, "ListParsedFiles", mock.Anything, mock.Anything)
}

func TestQualityEvaluation_ResolvesParsedFileFromListing(t *testing.T) {
	dataAccess := new(mockDataAccess)
	dataAccess.On("GetFile", mock.Anything, types.FileID("file-1")).
		Return(&entity.FileInfo{FileID: "file-1"}, nil)
	dataAccess.On("ListParsedFiles", mock.Anything, types.FileID("file-1")).
		Return([]entity.ParsedFileRef{
			{ParsedFileID: "pf-first", FileID: "file-1"},
			{ParsedFileID: "pf-second", FileID: "file-1"},
		}, nil)
	dataAccess.On("GetParsedFile", mock.Anything, types.FileID("pf-first")).
		Return(statusParsedFile(), nil)

	u := newQualityEvaluation(dataAccess, nil, nil)
	result, err := u.Execute(context.Background(), entity.QualityEvaluationRequest{FileID: "file-1"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, types.ParsedFileID("pf-first"), result.ParsedFileID)
}

func TestQualityEvaluation_NoParsedFileFound(t *testing.T) {
	dataAccess := new(mockDataAccess)
	dataAccess.On("GetFile", mock.Anything, types.FileID("file-1")).
		Return(&entity.FileInfo{FileID: "file-1"}, nil)
	dataAccess.On("ListParsedFiles", mock.Anything, types.FileID("file-1")).
		Return([]entity.ParsedFileRef{}, nil)

	u := newQualityEvaluation(dataAccess, nil, nil)
	result, err := u.Execute(context.Background(), entity.QualityEvaluationRequest{FileID: "file-1"})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "no parsed file found")
}

func TestQualityEvaluation_NoRecords(t *testing.T) {
	dataAccess := new(mockDataAccess)
	dataAccess.On("GetParsedFile", mock.Anything, types.FileID("pf-1")).
		Return(&entity.ParsedFile{ParsedFileID: "pf-1"}, nil)

	u := newQualityEvaluation(dataAccess, nil, nil)
	result, err := u.Execute(context.Background(), entity.QualityEvaluationRequest{
		FileID:       "file-1",
		ParsedFileID: "pf-1",
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "no records")
}

func TestQualityEvaluation_CollaboratorFailuresDegrade(t *testing.T) {
	dataAccess := new(mockDataAccess)
	dataAccess.On("GetParsedFile", mock.Anything, types.FileID("pf-1")).
		Return(statusParsedFile(), nil)

	dataQuality := new(mockDataQualityValidator)
	dataQuality.On("ValidateRecords", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("validator offline"))

	reasoner := new(mockQualityReasoner)
	reasoner.On("AnalyzeQualityIssues", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("reasoner offline"))

	u := newQualityEvaluation(dataAccess, dataQuality, reasoner)
	result, err := u.Execute(context.Background(), entity.QualityEvaluationRequest{
		FileID:       "file-1",
		ParsedFileID: "pf-1",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	report := result.QualityReport
	require.NotNil(t, report)
	assert.Nil(t, report.SchemaValidation)
	assert.Empty(t, report.Recommendations)
	// Rule pass alone: 0.7*0.4 + 1.0*0.3 + 1.0*0.3
	assert.InDelta(t, 0.88, report.OverallQualityScore, 1e-9)
}

func TestQualityEvaluation_MissingFileIDRejected(t *testing.T) {
	u := newQualityEvaluation(new(mockDataAccess), nil, nil)
	_, err := u.Execute(context.Background(), entity.QualityEvaluationRequest{})
	assert.Error(t, err)
}
