package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightgrid/platform/config"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/common"
	"github.com/insightgrid/platform/shared/types"
	"github.com/insightgrid/platform/usecase"
)

type stubLineageReader struct {
	records map[types.MappingID]*entity.LineageRecord
}

func (s *stubLineageReader) GetByMappingID(ctx context.Context, mappingID types.MappingID) (*entity.LineageRecord, error) {
	if record, ok := s.records[mappingID]; ok {
		return record, nil
	}
	return nil, common.ErrNotFound("lineage record")
}

type stubChecker struct {
	err error
}

func (s stubChecker) Ping(ctx context.Context) error {
	return s.err
}

// newTestServer wires the API over use cases with no collaborators
// configured, so the pipeline runs fully degraded but still responds.
func newTestServer(t *testing.T, lineageReader LineageReader, health map[string]HealthChecker) *Server {
	t.Helper()

	logger := logging.NewDevelopmentLogger("http-test")
	collector := metrics.NewCollector("http_test_" + strings.ReplaceAll(t.Name(), "/", "_"))

	saga := usecase.NewSagaExecutor(nil, nil, entity.SagaPolicy{EnableSaga: false},
		"mapping-pipeline", time.Minute, logger, collector)
	mapping := usecase.NewDataMappingUseCase(nil, nil, nil, nil, nil, nil, nil, nil, nil,
		saga, logger, collector)
	quality := usecase.NewQualityEvaluationUseCase(nil, nil, nil, logger, collector)

	handlers := NewHandlers(mapping, quality, lineageReader, health, logger, "test")
	return NewServer(config.HTTPConfig{
		Host: "127.0.0.1", Port: "0",
		ReadTimeout: time.Second, WriteTimeout: time.Second, IdleTimeout: time.Second,
	}, "mapping-pipeline", handlers, logger, collector, false)
}

func TestCreateMapping_DegradedPipelineStillResponds(t *testing.T) {
	server := newTestServer(t, nil, nil)

	body := `{"source_file_id":"src-1","target_file_id":"tgt-1"}`
	req := httptest.NewRequest("POST", "/api/v1/mappings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))

	var result entity.MappingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.MappingID)
	assert.Equal(t, entity.MappingTypeStructuredToStructured, result.MappingType)
	require.NotNil(t, result.MappedData)
	assert.False(t, result.MappedData.Success)
}

func TestCreateMapping_MissingIdentifiers(t *testing.T) {
	server := newTestServer(t, nil, nil)

	req := httptest.NewRequest("POST", "/api/v1/mappings", strings.NewReader(`{"source_file_id":"src-1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestCreateMapping_MalformedBody(t *testing.T) {
	server := newTestServer(t, nil, nil)

	req := httptest.NewRequest("POST", "/api/v1/mappings", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestEvaluateQuality_NoDataAccessReportsFailure(t *testing.T) {
	server := newTestServer(t, nil, nil)

	req := httptest.NewRequest("POST", "/api/v1/quality-evaluations",
		strings.NewReader(`{"file_id":"file-1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)

	var result entity.QualityResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "not available")
}

func TestGetLineage(t *testing.T) {
	score := 0.95
	reader := &stubLineageReader{records: map[types.MappingID]*entity.LineageRecord{
		"mapping_1_abc": {
			MappingID:          "mapping_1_abc",
			SourceFileID:       "src-1",
			TargetFileID:       "tgt-1",
			TransformationType: "data_mapping",
			QualityScore:       &score,
			CreatedAt:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}}
	server := newTestServer(t, reader, nil)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/lineage/mapping_1_abc", nil))
	require.Equal(t, 200, rec.Code)

	var record entity.LineageRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, types.MappingID("mapping_1_abc"), record.MappingID)
	require.NotNil(t, record.QualityScore)
	assert.Equal(t, 0.95, *record.QualityScore)

	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/lineage/unknown", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestGetLineage_NotConfigured(t *testing.T) {
	server := newTestServer(t, nil, nil)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/lineage/mapping_1_abc", nil))
	assert.Equal(t, 503, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(t, nil, map[string]HealthChecker{
		"postgresql": stubChecker{},
		"redis":      stubChecker{err: errors.New("connection refused")},
	})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, 200, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "healthy", body.Checks["postgresql"])
	assert.Equal(t, "unhealthy", body.Checks["redis"])
}

func TestRequestContextPropagation(t *testing.T) {
	server := newTestServer(t, nil, nil)

	req := httptest.NewRequest("POST", "/api/v1/mappings",
		strings.NewReader(`{"source_file_id":"src-1","target_file_id":"tgt-1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-ID", "4e1243bd-22c6-4b9e-9d7f-015c70d3f9a1")
	req.Header.Set("X-Workflow-ID", "wf-7")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "4e1243bd-22c6-4b9e-9d7f-015c70d3f9a1", rec.Header().Get("X-Correlation-ID"))

	var result entity.MappingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, types.WorkflowID("wf-7"), result.Metadata.WorkflowID)
}
