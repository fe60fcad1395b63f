// Package lineage persists and publishes data-lineage records. Lineage is
// best-effort throughout: the pipeline logs and absorbs every failure here.
package lineage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/insightgrid/platform/config"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/common"
	"github.com/insightgrid/platform/shared/types"
)

// PostgresRepository stores lineage records in PostgreSQL.
type PostgresRepository struct {
	db      *sqlx.DB
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.Collector
}

// NewPostgresRepository connects to PostgreSQL and returns the repository.
func NewPostgresRepository(cfg config.PostgreSQLConfig, logger *logging.Logger, collector *metrics.Collector) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDSN())
	if err != nil {
		return nil, common.WrapError(err, common.ErrCodeDatabaseConnection, "failed to connect to PostgreSQL")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &PostgresRepository{
		db:      db,
		timeout: cfg.QueryTimeout,
		logger:  logger.WithComponent("lineage_repository"),
		metrics: collector,
	}, nil
}

const lineageSchema = `
	CREATE TABLE IF NOT EXISTS lineage_records (
		id BIGSERIAL PRIMARY KEY,
		mapping_id VARCHAR(64) NOT NULL,
		source_file_id VARCHAR(64) NOT NULL,
		target_file_id VARCHAR(64) NOT NULL,
		transformation_type VARCHAR(64) NOT NULL,
		mapping_rules JSONB NOT NULL DEFAULT '[]',
		quality_score DOUBLE PRECISION,
		workflow_id VARCHAR(128),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_lineage_records_mapping_id ON lineage_records (mapping_id);

	CREATE TABLE IF NOT EXISTS quality_reports (
		id BIGSERIAL PRIMARY KEY,
		mapping_id VARCHAR(64) NOT NULL,
		overall_score DOUBLE PRECISION NOT NULL,
		has_issues BOOLEAN NOT NULL,
		total_records INTEGER NOT NULL,
		report JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_quality_reports_mapping_id ON quality_reports (mapping_id);
`

// EnsureSchema creates the lineage tables when they do not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, lineageSchema); err != nil {
		return common.WrapError(err, common.ErrCodeDatabaseQuery, "failed to create lineage schema")
	}
	return nil
}

// lineageRow is the table shape of a lineage record. Mapping rules are
// stored as a JSONB column next to the scalar provenance fields.
type lineageRow struct {
	MappingID          string          `db:"mapping_id"`
	SourceFileID       string          `db:"source_file_id"`
	TargetFileID       string          `db:"target_file_id"`
	TransformationType string          `db:"transformation_type"`
	MappingRules       json.RawMessage `db:"mapping_rules"`
	QualityScore       *float64        `db:"quality_score"`
	WorkflowID         string          `db:"workflow_id"`
	CreatedAt          time.Time       `db:"created_at"`
}

const insertLineageQuery = `
	INSERT INTO lineage_records (
		mapping_id, source_file_id, target_file_id,
		transformation_type, mapping_rules, quality_score, workflow_id, created_at
	) VALUES (
		:mapping_id, :source_file_id, :target_file_id,
		:transformation_type, :mapping_rules, :quality_score, :workflow_id, :created_at
	)`

const insertQualityReportQuery = `
	INSERT INTO quality_reports (
		mapping_id, overall_score, has_issues, total_records, report, created_at
	) VALUES (
		:mapping_id, :overall_score, :has_issues, :total_records, :report, :created_at
	)`

type qualityReportRow struct {
	MappingID    string          `db:"mapping_id"`
	OverallScore float64         `db:"overall_score"`
	HasIssues    bool            `db:"has_issues"`
	TotalRecords int             `db:"total_records"`
	Report       json.RawMessage `db:"report"`
	CreatedAt    time.Time       `db:"created_at"`
}

// Insert stores one lineage record, and the quality report alongside it
// when the mapping produced one.
func (r *PostgresRepository) Insert(ctx context.Context, record *entity.LineageRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rules, err := json.Marshal(record.MappingRules)
	if err != nil {
		return common.WrapError(err, common.ErrCodeInternal, "failed to encode mapping rules")
	}

	row := lineageRow{
		MappingID:          string(record.MappingID),
		SourceFileID:       string(record.SourceFileID),
		TargetFileID:       string(record.TargetFileID),
		TransformationType: record.TransformationType,
		MappingRules:       rules,
		QualityScore:       record.QualityScore,
		WorkflowID:         string(record.WorkflowID),
		CreatedAt:          record.CreatedAt,
	}

	start := time.Now()
	_, err = r.db.NamedExecContext(ctx, insertLineageQuery, row)
	r.metrics.RecordDatabaseQuery("insert", "lineage_records", time.Since(start))
	if err != nil {
		r.metrics.RecordError("lineage_insert_error", "postgres")
		return common.WrapError(err, common.ErrCodeDatabaseQuery, "failed to insert lineage record")
	}

	if record.QualityReport != nil {
		if err := r.insertQualityReport(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) insertQualityReport(ctx context.Context, record *entity.LineageRecord) error {
	report, err := json.Marshal(record.QualityReport)
	if err != nil {
		return common.WrapError(err, common.ErrCodeInternal, "failed to encode quality report")
	}

	row := qualityReportRow{
		MappingID:    string(record.MappingID),
		OverallScore: record.QualityReport.OverallQualityScore,
		HasIssues:    record.QualityReport.HasIssues,
		TotalRecords: record.QualityReport.Summary.TotalRecords,
		Report:       report,
		CreatedAt:    record.CreatedAt,
	}

	start := time.Now()
	_, err = r.db.NamedExecContext(ctx, insertQualityReportQuery, row)
	r.metrics.RecordDatabaseQuery("insert", "quality_reports", time.Since(start))
	if err != nil {
		r.metrics.RecordError("quality_report_insert_error", "postgres")
		return common.WrapError(err, common.ErrCodeDatabaseQuery, "failed to insert quality report")
	}
	return nil
}

const selectLineageQuery = `
	SELECT mapping_id, source_file_id, target_file_id,
	       transformation_type, mapping_rules, quality_score, workflow_id, created_at
	FROM lineage_records
	WHERE mapping_id = $1`

// GetByMappingID fetches the lineage record of one mapping invocation.
func (r *PostgresRepository) GetByMappingID(ctx context.Context, mappingID types.MappingID) (*entity.LineageRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	var row lineageRow
	err := r.db.GetContext(ctx, &row, selectLineageQuery, string(mappingID))
	r.metrics.RecordDatabaseQuery("select", "lineage_records", time.Since(start))

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, common.ErrNotFound("lineage record")
		}
		r.metrics.RecordError("lineage_select_error", "postgres")
		return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "failed to query lineage record")
	}

	record := &entity.LineageRecord{
		MappingID:          types.MappingID(row.MappingID),
		SourceFileID:       types.FileID(row.SourceFileID),
		TargetFileID:       types.FileID(row.TargetFileID),
		TransformationType: row.TransformationType,
		QualityScore:       row.QualityScore,
		WorkflowID:         types.WorkflowID(row.WorkflowID),
		CreatedAt:          row.CreatedAt,
	}
	if len(row.MappingRules) > 0 {
		if err := json.Unmarshal(row.MappingRules, &record.MappingRules); err != nil {
			return nil, common.WrapError(err, common.ErrCodeInternal, "failed to decode mapping rules")
		}
	}
	return record, nil
}

// Ping checks database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection pool.
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
