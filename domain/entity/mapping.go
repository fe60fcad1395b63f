package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/insightgrid/platform/shared/types"
)

// MappingType classifies a mapping operation by its source shape.
// The target is assumed always structured, so only the source matters.
type MappingType string

const (
	MappingTypeUnstructuredToStructured MappingType = "unstructured_to_structured"
	MappingTypeStructuredToStructured   MappingType = "structured_to_structured"
)

// MappingRequest is the immutable input of one pipeline invocation.
type MappingRequest struct {
	SourceFileID   types.FileID          `json:"source_file_id"`
	TargetFileID   types.FileID          `json:"target_file_id"`
	Options        MappingOptions        `json:"mapping_options,omitempty"`
	RequestContext *types.RequestContext `json:"user_context,omitempty"`
}

// MappingOptions carries opaque caller-supplied mapping configuration.
// It is passed through to collaborators unchanged.
type MappingOptions map[string]interface{}

// FieldDescriptor describes one field of a schema.
type FieldDescriptor struct {
	Name          string   `json:"field_name"`
	Type          string   `json:"field_type"`
	Required      bool     `json:"required"`
	AllowedValues []string `json:"allowed_values,omitempty"`
	Description   string   `json:"description,omitempty"`
	Patterns      []string `json:"patterns,omitempty"`
}

// Schema describes the field layout of a source or target artifact.
// A failed extraction yields an empty field list plus Err; the pipeline
// proceeds in degraded mode rather than aborting.
type Schema struct {
	SchemaType string            `json:"schema_type"`
	FileType   string            `json:"file_type,omitempty"`
	Fields     []FieldDescriptor `json:"fields"`
	Err        string            `json:"error,omitempty"`
}

// Embedding pairs a field name with its vector. Used only as a matching
// signal; an empty set degrades matching but never fails the pipeline.
type Embedding struct {
	FieldName string    `json:"field_name"`
	Vector    []float64 `json:"vector"`
}

// MappingRule maps one source field onto one target field. Rules are
// non-authoritative hints consumed by extraction and transformation.
type MappingRule struct {
	SourceField string  `json:"source_field"`
	TargetField string  `json:"target_field"`
	Confidence  float64 `json:"confidence"`
	Rationale   string  `json:"rationale,omitempty"`
}

// Record is one structured data record keyed by field name.
type Record map[string]interface{}

// ExtractedField holds one field extracted from an unstructured source.
type ExtractedField struct {
	Value      interface{} `json:"value"`
	Citation   string      `json:"citation,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
}

// SourceData is the normalized output of the extraction/transformation
// dispatch stage, for both mapping paths.
type SourceData struct {
	Success          bool                      `json:"success"`
	Records          []Record                  `json:"records,omitempty"`
	Schema           *Schema                   `json:"schema,omitempty"`
	ExtractedFields  map[string]ExtractedField `json:"extracted_fields,omitempty"`
	Citations        map[string]string         `json:"citations,omitempty"`
	ConfidenceScores map[string]float64        `json:"confidence_scores,omitempty"`
	Err              string                    `json:"error,omitempty"`
}

// ExtractionSchema is the field-extraction contract built from mapping rules.
type ExtractionSchema struct {
	Fields []FieldDescriptor `json:"fields"`
}

// ExtractionResult is the field-extraction collaborator response.
type ExtractionResult struct {
	Success         bool                      `json:"success"`
	ExtractedFields map[string]ExtractedField `json:"extracted_fields,omitempty"`
	Err             string                    `json:"error,omitempty"`
}

// TransformRequest is the data-transformation collaborator request.
type TransformRequest struct {
	SourceData    *SourceData    `json:"source_data"`
	MappingRules  []MappingRule  `json:"mapping_rules"`
	TargetSchema  *Schema        `json:"target_schema"`
	OutputFormat  string         `json:"output_format"`
	QualityReport *QualityReport `json:"quality_results,omitempty"`
}

// TransformResult is the data-transformation collaborator response.
// Extra carries opaque downstream payload the transformer attaches.
type TransformResult struct {
	Success      bool                   `json:"success"`
	OutputFileID types.FileID           `json:"output_file_id,omitempty"`
	Err          string                 `json:"error,omitempty"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
}

// MappingMetadata records provenance of one mapping invocation.
type MappingMetadata struct {
	SourceFileID     types.FileID     `json:"source_file_id"`
	TargetFileID     types.FileID     `json:"target_file_id"`
	MappingTimestamp time.Time        `json:"mapping_timestamp"`
	WorkflowID       types.WorkflowID `json:"workflow_id,omitempty"`
}

// MappingResult is the full outcome of one data-mapping invocation.
// Expected failures are reported through Success/Err, never as errors
// escaping to HTTP callers.
type MappingResult struct {
	Success          bool               `json:"success"`
	MappingID        types.MappingID    `json:"mapping_id"`
	MappingType      MappingType        `json:"mapping_type,omitempty"`
	MappingRules     []MappingRule      `json:"mapping_rules,omitempty"`
	MappedData       *TransformResult   `json:"mapped_data,omitempty"`
	DataQuality      *QualityReport     `json:"data_quality,omitempty"`
	CleanupActions   []CleanupAction    `json:"cleanup_actions,omitempty"`
	OutputFileID     types.FileID       `json:"output_file_id,omitempty"`
	Citations        map[string]string  `json:"citations"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
	Metadata         MappingMetadata    `json:"metadata"`
	SagaID           types.SagaID       `json:"saga_id,omitempty"`
	Err              string             `json:"error,omitempty"`
}

// SetSagaID attaches the saga execution handle to the result.
func (r *MappingResult) SetSagaID(id types.SagaID) {
	r.SagaID = id
}

// StepResult condenses the outcome into the payload reported to the saga
// coordinator when the step completes.
func (r *MappingResult) StepResult() map[string]interface{} {
	return map[string]interface{}{
		"success":        r.Success,
		"mapping_id":     string(r.MappingID),
		"mapping_type":   string(r.MappingType),
		"output_file_id": string(r.OutputFileID),
	}
}

// NewMappingID builds a mapping identifier of the form
// mapping_<unix-seconds>_<8-hex>.
func NewMappingID(now time.Time) types.MappingID {
	return types.MappingID(fmt.Sprintf("mapping_%d_%s", now.Unix(), uuid.New().String()[:8]))
}

// FileInfo is the data-access view of a stored file.
type FileInfo struct {
	FileID   types.FileID           `json:"file_id"`
	FileType string                 `json:"file_type"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ParsedFileRef is a lightweight reference to a parsed file.
type ParsedFileRef struct {
	ParsedFileID types.ParsedFileID `json:"parsed_file_id"`
	FileID       types.FileID       `json:"file_id"`
}

// ParseResult carries parser-derived artifacts, including any validation
// rules recovered from legacy copybook definitions.
type ParseResult struct {
	ValidationRules *ValidationRules `json:"validation_rules,omitempty"`
}

// FileData carries the parsed records of a structured file.
type FileData struct {
	Records []Record `json:"records,omitempty"`
}

// ParsedFile is the data-access view of a parsed file. ParsedData keeps
// the parser's raw shape (record list, columns+rows table, or wrapped
// records) for normalization by the structured source path.
type ParsedFile struct {
	ParsedFileID      types.ParsedFileID `json:"parsed_file_id"`
	ContentMetadataID string             `json:"content_metadata_id,omitempty"`
	ParseResult       ParseResult        `json:"parse_result"`
	FileData          FileData           `json:"file_data"`
	ParsedData        interface{}        `json:"parsed_data,omitempty"`
	Schema            *Schema            `json:"schema,omitempty"`
}

// LineageRecord is the persisted provenance of one mapping invocation.
// Together with the quality report, it is the only entity that outlives
// the request.
type LineageRecord struct {
	MappingID          types.MappingID  `json:"mapping_id" db:"mapping_id"`
	SourceFileID       types.FileID     `json:"source_file_id" db:"source_file_id"`
	TargetFileID       types.FileID     `json:"target_file_id" db:"target_file_id"`
	TransformationType string           `json:"transformation_type" db:"transformation_type"`
	MappingRules       []MappingRule    `json:"mapping_rules,omitempty" db:"-"`
	QualityScore       *float64         `json:"quality_score,omitempty" db:"quality_score"`
	QualityReport      *QualityReport   `json:"quality_report,omitempty" db:"-"`
	WorkflowID         types.WorkflowID `json:"workflow_id,omitempty" db:"workflow_id"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
}
