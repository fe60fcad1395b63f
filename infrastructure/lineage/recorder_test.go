package lineage

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
)

type stubRepository struct {
	err     error
	inserts int
}

func (s *stubRepository) Insert(ctx context.Context, record *entity.LineageRecord) error {
	s.inserts++
	return s.err
}

type stubPublisher struct {
	err       error
	published int
}

func (s *stubPublisher) Publish(ctx context.Context, record *entity.LineageRecord) error {
	s.published++
	return s.err
}

func testRecord() *entity.LineageRecord {
	return &entity.LineageRecord{
		MappingID:          "mapping_1_abc",
		SourceFileID:       "src-1",
		TargetFileID:       "tgt-1",
		TransformationType: "data_mapping",
		CreatedAt:          time.Now().UTC(),
	}
}

func TestRecorder_AllSinksWritten(t *testing.T) {
	repo := &stubRepository{}
	pub := &stubPublisher{}
	recorder := NewRecorder(repo, pub, nil, logging.NewDevelopmentLogger("lineage-test"))

	err := recorder.RecordLineage(context.Background(), testRecord())
	assert.NoError(t, err)
	assert.Equal(t, 1, repo.inserts)
	assert.Equal(t, 1, pub.published)
}

func TestRecorder_PartialFailureAbsorbed(t *testing.T) {
	repo := &stubRepository{err: errors.New("db down")}
	pub := &stubPublisher{}
	recorder := NewRecorder(repo, pub, nil, logging.NewDevelopmentLogger("lineage-test"))

	err := recorder.RecordLineage(context.Background(), testRecord())
	assert.NoError(t, err)
	assert.Equal(t, 1, pub.published)
}

func TestRecorder_TotalFailureReported(t *testing.T) {
	repo := &stubRepository{err: errors.New("db down")}
	pub := &stubPublisher{err: errors.New("broker down")}
	recorder := NewRecorder(repo, pub, nil, logging.NewDevelopmentLogger("lineage-test"))

	err := recorder.RecordLineage(context.Background(), testRecord())
	assert.Error(t, err)
}

func TestRecorder_NoSinksConfigured(t *testing.T) {
	recorder := NewRecorder(nil, nil, nil, logging.NewDevelopmentLogger("lineage-test"))
	assert.NoError(t, recorder.RecordLineage(context.Background(), testRecord()))
}
