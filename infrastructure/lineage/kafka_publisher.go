package lineage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/insightgrid/platform/config"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/common"
)

// KafkaPublisher publishes lineage records to the lineage topic so that
// downstream consumers (catalogs, audit) see mappings as they complete.
type KafkaPublisher struct {
	writer  *kafka.Writer
	topic   string
	logger  *logging.Logger
	metrics *metrics.Collector
}

// NewKafkaPublisher creates a lineage publisher.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *logging.Logger, collector *metrics.Collector) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.LineageTopic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
	}

	return &KafkaPublisher{
		writer:  writer,
		topic:   cfg.LineageTopic,
		logger:  logger.WithComponent("lineage_publisher"),
		metrics: collector,
	}
}

// Publish sends one lineage record, keyed by mapping ID so records of
// the same mapping land in one partition.
func (p *KafkaPublisher) Publish(ctx context.Context, record *entity.LineageRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return common.WrapError(err, common.ErrCodeInternal, "failed to marshal lineage record")
	}

	message := kafka.Message{
		Key:   []byte(record.MappingID),
		Value: data,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "record-type", Value: []byte("lineage")},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		p.metrics.RecordMessageSent(p.topic, "error")
		return common.WrapError(err, common.ErrCodeExternalService, "failed to publish lineage record")
	}

	p.metrics.RecordMessageSent(p.topic, "success")
	p.logger.Debug("Lineage record published",
		logging.String("mapping_id", string(record.MappingID)),
		logging.String("topic", p.topic))
	return nil
}

// Close shuts the writer down.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
