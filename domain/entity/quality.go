package entity

import (
	"github.com/insightgrid/platform/shared/types"
)

// Rule type names carried on every validation issue and applied rule.
const (
	RuleTypeLevel88  = "88_level_field"
	RuleTypeMetadata = "metadata_record"
)

// IssueTypeInvalidValue marks a value outside a field's allowed set.
const IssueTypeInvalidValue = "invalid_value"

// Level88Rule is a copybook level-88 enumerated-value constraint: the
// named field must hold one of the declared values. Matching is exact.
type Level88Rule struct {
	FieldName     string `json:"field_name"`
	Value         string `json:"value"`
	ConditionName string `json:"condition_name"`
}

// MetadataRule is a level-01 metadata-record constraint. Matching trims
// whitespace on both sides, unlike level-88 matching.
type MetadataRule struct {
	TargetField string `json:"target_field"`
	Value       string `json:"value"`
}

// ValidationRules bundles the rule sets recovered from a parsed legacy file.
type ValidationRules struct {
	Level88Fields   []Level88Rule  `json:"88_level_fields,omitempty"`
	MetadataRecords []MetadataRule `json:"metadata_records,omitempty"`
}

// IsEmpty reports whether no rules are configured at all. An empty rule
// set means every record passes trivially (the "no rules configured"
// bypass), not a validation failure.
func (vr *ValidationRules) IsEmpty() bool {
	return vr == nil || (len(vr.Level88Fields) == 0 && len(vr.MetadataRecords) == 0)
}

// ValidationIssue is one rule violation found on one record field.
type ValidationIssue struct {
	Field         string         `json:"field"`
	IssueType     string         `json:"issue_type"`
	Severity      types.Severity `json:"severity"`
	Message       string         `json:"message"`
	Value         interface{}    `json:"value"`
	AllowedValues []string       `json:"allowed_values,omitempty"`
	RuleType      string         `json:"rule_type"`
}

// AppliedRule records a rule that matched a record's value.
type AppliedRule struct {
	Field    string      `json:"field"`
	RuleType string      `json:"rule_type"`
	Value    interface{} `json:"value"`
}

// ValidationResult is the per-record verdict of the rule pass.
// A record is valid iff it accumulated zero issues.
type ValidationResult struct {
	RecordIndex  int               `json:"record_index"`
	IsValid      bool              `json:"is_valid"`
	Issues       []ValidationIssue `json:"issues"`
	AppliedRules []AppliedRule     `json:"applied_rules"`
}

// QualitySummary aggregates issue counts across the report.
// ValidRecords + InvalidRecords always equals TotalRecords, and all
// three severities are always present in IssuesBySeverity.
type QualitySummary struct {
	TotalRecords     int                    `json:"total_records"`
	ValidRecords     int                    `json:"valid_records"`
	InvalidRecords   int                    `json:"invalid_records"`
	IssuesByType     map[string]int         `json:"issues_by_type"`
	IssuesBySeverity map[types.Severity]int `json:"issues_by_severity"`
	TotalIssues      int                    `json:"total_issues"`
}

// Completeness holds the non-empty-value fraction per field and overall.
type Completeness struct {
	Overall float64            `json:"overall"`
	ByField map[string]float64 `json:"by_field"`
}

// MissingValues counts empty/whitespace values per field.
type MissingValues struct {
	ByField      map[string]int `json:"by_field"`
	TotalMissing int            `json:"total_missing"`
}

// QualityMetrics is the output of the completeness pass.
type QualityMetrics struct {
	TotalRecords  int           `json:"total_records"`
	TotalFields   int           `json:"total_fields"`
	Completeness  Completeness  `json:"completeness"`
	MissingValues MissingValues `json:"missing_values"`
}

// SchemaValidation is the independent schema-validation pass, run by the
// data-quality collaborator against a schema synthesized from the same
// validation rules.
type SchemaValidation struct {
	Success           bool               `json:"success"`
	ValidationResults []ValidationResult `json:"validation_results,omitempty"`
	Summary           *QualitySummary    `json:"summary,omitempty"`
	Err               string             `json:"error,omitempty"`
}

// Recommendation is a free-text quality improvement suggestion produced
// by the reasoning collaborator.
type Recommendation struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
}

// QualityReport is the full data-quality verdict for a record set.
// OverallQualityScore is always within [0,1].
type QualityReport struct {
	Success             bool               `json:"success"`
	OverallQualityScore float64            `json:"overall_quality_score"`
	HasIssues           bool               `json:"has_issues"`
	ValidationResults   []ValidationResult `json:"validation_results"`
	SchemaValidation    *SchemaValidation  `json:"schema_validation,omitempty"`
	QualityMetrics      *QualityMetrics    `json:"quality_metrics,omitempty"`
	Recommendations     []Recommendation   `json:"recommendations,omitempty"`
	Summary             QualitySummary     `json:"summary"`
	Err                 string             `json:"error,omitempty"`
}

// CleanupAction is a corrective instruction derived from a validation
// issue, optionally enriched with reasoning rationale.
type CleanupAction struct {
	ActionType  string                 `json:"action_type"`
	Field       string                 `json:"field,omitempty"`
	Description string                 `json:"description"`
	Severity    types.Severity         `json:"severity,omitempty"`
	RecordIndex *int                   `json:"record_index,omitempty"`
	Rationale   string                 `json:"rationale,omitempty"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// CleanupActionResult is the data-quality collaborator response for
// cleanup-action synthesis.
type CleanupActionResult struct {
	Success        bool            `json:"success"`
	CleanupActions []CleanupAction `json:"cleanup_actions,omitempty"`
	Err            string          `json:"error,omitempty"`
}

// QualityAnalysis is the reasoning collaborator's issue analysis used to
// enrich cleanup actions and produce recommendations.
type QualityAnalysis struct {
	Recommendations []Recommendation       `json:"recommendations,omitempty"`
	IssueClusters   map[string]interface{} `json:"issue_clusters,omitempty"`
}

// QualityEvaluationRequest is the input of the standalone quality
// evaluation workflow.
type QualityEvaluationRequest struct {
	FileID         types.FileID           `json:"file_id"`
	ParsedFileID   types.ParsedFileID     `json:"parsed_file_id,omitempty"`
	QualityOptions map[string]interface{} `json:"quality_options,omitempty"`
	RequestContext *types.RequestContext  `json:"user_context,omitempty"`
}

// QualityResult is the outcome of the standalone quality evaluation
// workflow.
type QualityResult struct {
	Success       bool               `json:"success"`
	FileID        types.FileID       `json:"file_id"`
	ParsedFileID  types.ParsedFileID `json:"parsed_file_id,omitempty"`
	QualityReport *QualityReport     `json:"quality_report,omitempty"`
	WorkflowID    types.WorkflowID   `json:"workflow_id,omitempty"`
	Err           string             `json:"error,omitempty"`
}
