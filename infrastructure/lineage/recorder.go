package lineage

import (
	"context"

	"github.com/insightgrid/platform/domain/collaborator"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
)

// Repository is the persistent lineage store.
type Repository interface {
	Insert(ctx context.Context, record *entity.LineageRecord) error
}

// Publisher broadcasts lineage records to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, record *entity.LineageRecord) error
}

// Recorder fans one lineage record out to the local store, the lineage
// topic, and the data-access service. Each sink is optional and each
// failure is absorbed independently; the recorder only errors when every
// configured sink failed.
type Recorder struct {
	repository Repository
	publisher  Publisher
	dataAccess collaborator.DataAccess
	logger     *logging.Logger
}

// NewRecorder creates a lineage recorder over the configured sinks.
func NewRecorder(repository Repository, publisher Publisher, dataAccess collaborator.DataAccess, logger *logging.Logger) *Recorder {
	return &Recorder{
		repository: repository,
		publisher:  publisher,
		dataAccess: dataAccess,
		logger:     logger.WithComponent("lineage_recorder"),
	}
}

// RecordLineage writes the record to every configured sink.
func (r *Recorder) RecordLineage(ctx context.Context, record *entity.LineageRecord) error {
	var attempted, failed int
	var lastErr error

	logger := r.logger.WithFields(
		logging.String("mapping_id", string(record.MappingID)))

	if r.repository != nil {
		attempted++
		if err := r.repository.Insert(ctx, record); err != nil {
			failed++
			lastErr = err
			logger.Warn("Lineage store write failed",
				logging.String("error", err.Error()))
		}
	}

	if r.publisher != nil {
		attempted++
		if err := r.publisher.Publish(ctx, record); err != nil {
			failed++
			lastErr = err
			logger.Warn("Lineage publish failed",
				logging.String("error", err.Error()))
		}
	}

	if r.dataAccess != nil {
		attempted++
		if err := r.dataAccess.TrackDataLineage(ctx, record); err != nil {
			failed++
			lastErr = err
			logger.Warn("Lineage tracking call failed",
				logging.String("error", err.Error()))
		}
	}

	if attempted > 0 && failed == attempted {
		return lastErr
	}
	return nil
}
